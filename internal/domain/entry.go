package domain

import (
	"time"

	"github.com/google/uuid"
)

const MaxEntryLength = 2000

type Entry struct {
	ID        uuid.UUID  `json:"_id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Content   string     `json:"content" gorm:"size:2000;not null"`
	Date      time.Time  `json:"date"`
	Seq       int64      `json:"id" gorm:"index"`
	UserID    *uuid.UUID `json:"-" gorm:"type:uuid;index"`
	IsPrivate bool       `json:"isPrivate" gorm:"not null"`
	CreatedAt time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time  `json:"updatedAt"`

	// Relations
	Author *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
}

// OwnedBy reports whether the entry was written by the given user.
func (e *Entry) OwnedBy(userID uuid.UUID) bool {
	return e.UserID != nil && *e.UserID == userID
}

// EntryFilter narrows entry listings. ViewerID, when set, also admits that
// user's private entries; everyone else only sees public ones.
type EntryFilter struct {
	AuthorID *uuid.UUID
	ViewerID *uuid.UUID
	Limit    int
	Offset   int
}

type UserFilter struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}
