package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/repository"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ProfileService struct {
	users repository.UserRepository
	creds *CredentialService
}

func NewProfileService(users repository.UserRepository, creds *CredentialService) *ProfileService {
	return &ProfileService{users: users, creds: creds}
}

// UpdateProfileInput holds optional fields; nil means "leave unchanged".
type UpdateProfileInput struct {
	DisplayName   *string `json:"displayName"`
	Avatar        *string `json:"avatar"`
	Bio           *string `json:"bio"`
	FavoriteEmoji *string `json:"favoriteEmoji"`
	Theme         *string `json:"theme"`
}

func (in UpdateProfileInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.DisplayName, displayNameRules()...),
		validation.Field(&in.Bio, validation.RuneLength(0, MaxBioLength).Error("Bio cannot exceed 200 characters")),
		validation.Field(&in.FavoriteEmoji, validation.RuneLength(0, 16).Error("Favorite emoji is too long")),
		validation.Field(&in.Theme, validation.In(themeValues()...).Error("Invalid theme")),
	)
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (in ChangePasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CurrentPassword, validation.Required.Error("Current password is required")),
		validation.Field(&in.NewPassword,
			validation.Required.Error("New password is required"),
			validation.RuneLength(MinPasswordLength, 0).Error("New password must be at least 6 characters"),
		),
	)
}

func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*domain.User, error) {
	if input.DisplayName != nil {
		trimmed := strings.TrimSpace(*input.DisplayName)
		input.DisplayName = &trimmed
	}
	if input.Bio != nil {
		trimmed := strings.TrimSpace(*input.Bio)
		input.Bio = &trimmed
	}
	if err := validationError(input.Validate()); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		user.DisplayName = *input.DisplayName
		if user.DisplayName == "" {
			user.DisplayName = user.Username
		}
	}
	if input.Avatar != nil {
		if *input.Avatar == "" {
			user.Avatar = nil
		} else {
			avatar := *input.Avatar
			user.Avatar = &avatar
		}
	}

	profile := user.Profile.Data()
	if input.Bio != nil {
		profile.Bio = *input.Bio
	}
	if input.FavoriteEmoji != nil && *input.FavoriteEmoji != "" {
		profile.FavoriteEmoji = *input.FavoriteEmoji
	}
	if input.Theme != nil {
		profile.Theme = domain.Theme(*input.Theme)
	}
	user.Profile = datatypes.NewJSONType(profile)
	user.UpdatedAt = time.Now()

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (s *ProfileService) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	if err := validationError(input.Validate()); err != nil {
		return err
	}
	return s.creds.ChangePassword(ctx, userID, input.CurrentPassword, input.NewPassword)
}

// DeactivateAccount is the self-service delete: the row stays, the account
// can no longer log in and its tokens stop resolving.
func (s *ProfileService) DeactivateAccount(ctx context.Context, userID uuid.UUID) error {
	return s.creds.SetActive(ctx, userID, false)
}
