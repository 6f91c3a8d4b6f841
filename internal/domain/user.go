package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeDark    Theme = "dark"
	ThemeLight   Theme = "light"
	ThemeCosmic  Theme = "cosmic"
)

var AllThemes = []Theme{ThemeDefault, ThemeDark, ThemeLight, ThemeCosmic}

const DefaultEmoji = "🌟"

// Profile is stored as a JSON column on the users table.
type Profile struct {
	Bio           string `json:"bio"`
	FavoriteEmoji string `json:"favoriteEmoji"`
	Theme         Theme  `json:"theme"`
}

func DefaultProfile() Profile {
	return Profile{
		FavoriteEmoji: DefaultEmoji,
		Theme:         ThemeDefault,
	}
}

// User is a diary account. PasswordHash never leaves the process: it is
// excluded from JSON and only the credential service reads it.
type User struct {
	ID           uuid.UUID                   `json:"_id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Username     string                      `json:"username" gorm:"uniqueIndex;size:30;not null"`
	PasswordHash string                      `json:"-" gorm:"not null"`
	DisplayName  string                      `json:"displayName" gorm:"size:50;not null"`
	Avatar       *string                     `json:"avatar"`
	Profile      datatypes.JSONType[Profile] `json:"profile"`
	IsActive     bool                        `json:"isActive" gorm:"not null"`
	IsAdmin      bool                        `json:"isAdmin" gorm:"not null"`
	LastLogin    *time.Time                  `json:"lastLogin"`
	CreatedAt    time.Time                   `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Emoji returns the user's favourite emoji or the default one.
func (u *User) Emoji() string {
	if e := u.Profile.Data().FavoriteEmoji; e != "" {
		return e
	}
	return DefaultEmoji
}

// UserSummary is the author block embedded in entry responses.
type UserSummary struct {
	ID          uuid.UUID `json:"_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Avatar      *string   `json:"avatar"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
	}
}
