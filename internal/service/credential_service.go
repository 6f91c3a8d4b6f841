package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

var (
	ErrUsernameExists    = domain.Conflict("Username already exists")
	ErrUserNotFound      = domain.NotFound("User not found")
	ErrPasswordIncorrect = domain.BadRequest("Current password is incorrect")
)

// CredentialService owns user records and everything that touches the
// password hash. No other component reads or writes PasswordHash.
type CredentialService struct {
	users repository.UserRepository
	cost  int
	now   func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewCredentialService(users repository.UserRepository, cost int) *CredentialService {
	return &CredentialService{
		users: users,
		cost:  cost,
		now:   time.Now,
	}
}

type CreateUserInput struct {
	Username    string
	Password    string
	DisplayName string
}

// Create stores a new active, non-admin user. The password is hashed before
// the record is persisted.
func (s *CredentialService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	existing, err := s.users.GetByUsername(ctx, input.Username)
	if err == nil && existing != nil {
		return nil, ErrUsernameExists
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup username: %w", err)
	}

	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = input.Username
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     input.Username,
		PasswordHash: hash,
		DisplayName:  displayName,
		Profile:      datatypes.NewJSONType(domain.DefaultProfile()),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Verify returns the user when password matches the stored hash, and
// (nil, nil) otherwise. Unknown usernames and wrong passwords are not
// distinguished, and both cost one bcrypt comparison.
func (s *CredentialService) Verify(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, nil
		}
		return nil, fmt.Errorf("lookup username: %w", err)
	}

	if !s.matches(user.PasswordHash, password) {
		return nil, nil
	}
	return user, nil
}

// TouchLogin records a successful login and returns its timestamp.
func (s *CredentialService) TouchLogin(ctx context.Context, id uuid.UUID) (time.Time, error) {
	at := s.now()
	if err := s.users.UpdateLastLogin(ctx, id, at); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return time.Time{}, ErrUserNotFound
		}
		return time.Time{}, fmt.Errorf("update last login: %w", err)
	}
	return at, nil
}

func (s *CredentialService) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.users.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// ChangePassword re-hashes next after checking current against the stored
// hash. Only the hash column is written.
func (s *CredentialService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	if !s.matches(user.PasswordHash, current) {
		return ErrPasswordIncorrect
	}

	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, id, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// RemoveByUsername hard-deletes a user. Only the admin bot does this.
func (s *CredentialService) RemoveByUsername(ctx context.Context, username string) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup username: %w", err)
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *CredentialService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domain.BadRequest("Password cannot exceed 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *CredentialService) matches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *CredentialService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.cost)
	})
	return s.dummyHash
}
