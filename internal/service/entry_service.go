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
)

var (
	ErrEntryNotFound  = domain.NotFound("Entry not found")
	ErrEntryForbidden = domain.Forbidden("You can only change your own entries")
)

type EntryService struct {
	entries  repository.EntryRepository
	notifier Notifier
	now      func() time.Time
}

func NewEntryService(entries repository.EntryRepository, notifier Notifier) *EntryService {
	return &EntryService{
		entries:  entries,
		notifier: notifier,
		now:      time.Now,
	}
}

type CreateEntryInput struct {
	Content   string `json:"content"`
	IsPrivate *bool  `json:"isPrivate"`
}

func (in CreateEntryInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Content,
			validation.Required.Error("Content is required"),
			validation.RuneLength(1, domain.MaxEntryLength).Error("Content cannot exceed 2000 characters"),
		),
	)
}

type UpdateEntryInput struct {
	Content   *string `json:"content"`
	IsPrivate *bool   `json:"isPrivate"`
}

func (in UpdateEntryInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Content,
			validation.By(notBlank("Content cannot be empty")),
			validation.RuneLength(1, domain.MaxEntryLength).Error("Content cannot exceed 2000 characters"),
		),
	)
}

type ListEntriesInput struct {
	AuthorID *uuid.UUID
	Viewer   *domain.User
	Page     domain.PageRequest
}

// Create stores a new entry for author. Public entries are announced to the
// notifier; private ones never leave the database.
func (s *EntryService) Create(ctx context.Context, author *domain.User, input CreateEntryInput) (*domain.Entry, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := validationError(input.Validate()); err != nil {
		return nil, err
	}

	isPrivate := true
	if input.IsPrivate != nil {
		isPrivate = *input.IsPrivate
	}

	now := s.now()
	entry := &domain.Entry{
		ID:        uuid.New(),
		Content:   input.Content,
		Date:      now,
		Seq:       now.UnixMilli(),
		UserID:    &author.ID,
		IsPrivate: isPrivate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	entry.Author = author

	if !entry.IsPrivate {
		s.notifier.Notify(domain.NewEntryEvent(entry, author))
	}
	return entry, nil
}

// List returns public entries plus the viewer's own private ones.
func (s *EntryService) List(ctx context.Context, input ListEntriesInput) ([]*domain.Entry, domain.Pagination, error) {
	page := input.Page.Normalize(domain.DefaultPageLimit)
	filter := domain.EntryFilter{
		AuthorID: input.AuthorID,
		Limit:    page.Limit,
		Offset:   page.Offset(),
	}
	if input.Viewer != nil {
		filter.ViewerID = &input.Viewer.ID
	}

	entries, total, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("list entries: %w", err)
	}
	return entries, domain.NewPagination(total, page), nil
}

// Get hides private entries from everyone but their author and admins.
func (s *EntryService) Get(ctx context.Context, viewer *domain.User, id uuid.UUID) (*domain.Entry, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.IsPrivate && !canManage(viewer, entry) {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

func (s *EntryService) Update(ctx context.Context, actor *domain.User, id uuid.UUID, input UpdateEntryInput) (*domain.Entry, error) {
	if input.Content != nil {
		trimmed := strings.TrimSpace(*input.Content)
		input.Content = &trimmed
	}
	if err := validationError(input.Validate()); err != nil {
		return nil, err
	}

	entry, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Content != nil {
		entry.Content = *input.Content
	}
	if input.IsPrivate != nil {
		entry.IsPrivate = *input.IsPrivate
	}
	entry.UpdatedAt = s.now()

	if err := s.entries.Update(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return entry, nil
}

func (s *EntryService) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *EntryService) authorize(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Entry, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, entry) {
		if entry.IsPrivate {
			return nil, ErrEntryNotFound
		}
		return nil, ErrEntryForbidden
	}
	return entry, nil
}

func (s *EntryService) load(ctx context.Context, id uuid.UUID) (*domain.Entry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("load entry: %w", err)
	}
	return entry, nil
}

func canManage(u *domain.User, e *domain.Entry) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || e.OwnedBy(u.ID)
}

func notBlank(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		var s string
		switch v := value.(type) {
		case string:
			s = v
		case *string:
			if v == nil {
				return nil
			}
			s = *v
		default:
			return nil
		}
		if strings.TrimSpace(s) == "" {
			return errors.New(msg)
		}
		return nil
	}
}
