package repository

import (
	"context"
	"time"

	"github.com/dom/star-diary/internal/domain"
	"github.com/google/uuid"
)

// Implementations return domain.ErrNotFound for missing rows and
// domain.ErrDuplicateKey for unique violations.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error)
	UpdateProfile(ctx context.Context, user *domain.User) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type EntryRepository interface {
	Create(ctx context.Context, entry *domain.Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Entry, error)
	List(ctx context.Context, filter domain.EntryFilter) ([]*domain.Entry, int64, error)
	Update(ctx context.Context, entry *domain.Entry) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Repositories struct {
	User  UserRepository
	Entry EntryRepository
}
