package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/repository"
	"github.com/google/uuid"
)

// MemoryUserRepository is an in-process repository.UserRepository for tests
// that do not need postgres. Records are copied on the way in and out.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User

	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uuid.UUID]*domain.User)}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	if u.Avatar != nil {
		a := *u.Avatar
		c.Avatar = &a
	}
	if u.LastLogin != nil {
		l := *u.LastLogin
		c.LastLogin = &l
	}
	return &c
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return domain.ErrDuplicateKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, u := range r.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryUserRepository) List(_ context.Context, filter domain.UserFilter) ([]*domain.User, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		if filter.ActiveOnly && !u.IsActive {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Username), search) &&
			!strings.Contains(strings.ToLower(u.DisplayName), search) {
			continue
		}
		matched = append(matched, copyUser(u))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return paginate(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
}

func (r *MemoryUserRepository) UpdateProfile(_ context.Context, user *domain.User) error {
	return r.mutate(user.ID, func(u *domain.User) {
		u.DisplayName = user.DisplayName
		u.Avatar = user.Avatar
		u.Profile = user.Profile
		u.UpdatedAt = user.UpdatedAt
	})
}

func (r *MemoryUserRepository) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	return r.mutate(id, func(u *domain.User) {
		u.PasswordHash = hash
		u.UpdatedAt = time.Now()
	})
}

func (r *MemoryUserRepository) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.mutate(id, func(u *domain.User) { u.LastLogin = &at })
}

func (r *MemoryUserRepository) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return r.mutate(id, func(u *domain.User) {
		u.IsActive = active
		u.UpdatedAt = time.Now()
	})
}

func (r *MemoryUserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// Put stores user as-is, bypassing uniqueness checks. Handy for fixtures.
func (r *MemoryUserRepository) Put(user *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = copyUser(user)
}

func (r *MemoryUserRepository) mutate(id uuid.UUID, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(u)
	return nil
}

// MemoryEntryRepository resolves authors through the user repository the
// way the postgres implementation preloads them.
type MemoryEntryRepository struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*domain.Entry
	users   *MemoryUserRepository
}

func NewMemoryEntryRepository(users *MemoryUserRepository) *MemoryEntryRepository {
	return &MemoryEntryRepository{
		entries: make(map[uuid.UUID]*domain.Entry),
		users:   users,
	}
}

func (r *MemoryEntryRepository) withAuthor(ctx context.Context, e *domain.Entry) *domain.Entry {
	c := *e
	c.Author = nil
	if c.UserID != nil {
		if u, err := r.users.GetByID(ctx, *c.UserID); err == nil {
			c.Author = u
		}
	}
	return &c
}

func (r *MemoryEntryRepository) Create(_ context.Context, entry *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	c := *entry
	c.Author = nil
	r.entries[entry.ID] = &c
	return nil
}

func (r *MemoryEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.withAuthor(ctx, e), nil
}

func (r *MemoryEntryRepository) List(ctx context.Context, filter domain.EntryFilter) ([]*domain.Entry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*domain.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if filter.AuthorID != nil && !e.OwnedBy(*filter.AuthorID) {
			continue
		}
		if e.IsPrivate && (filter.ViewerID == nil || !e.OwnedBy(*filter.ViewerID)) {
			continue
		}
		matched = append(matched, r.withAuthor(ctx, e))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return paginate(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
}

func (r *MemoryEntryRepository) Update(_ context.Context, entry *domain.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entry.ID]
	if !ok {
		return domain.ErrNotFound
	}
	e.Content = entry.Content
	e.IsPrivate = entry.IsPrivate
	e.UpdatedAt = entry.UpdatedAt
	return nil
}

func (r *MemoryEntryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// NewMemoryRepositories wires both memory repositories together.
func NewMemoryRepositories() (*repository.Repositories, *MemoryUserRepository, *MemoryEntryRepository) {
	users := NewMemoryUserRepository()
	entries := NewMemoryEntryRepository(users)
	return &repository.Repositories{User: users, Entry: entries}, users, entries
}
