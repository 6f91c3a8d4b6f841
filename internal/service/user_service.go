package service

import (
	"context"
	"fmt"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/repository"
)

// UserService backs the admin listings (HTTP and bot).
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

type ListUsersInput struct {
	Search string
	Page   domain.PageRequest
}

func (s *UserService) List(ctx context.Context, input ListUsersInput) ([]*domain.User, domain.Pagination, error) {
	page := input.Page.Normalize(domain.DefaultPageLimit)
	users, total, err := s.users.List(ctx, domain.UserFilter{
		Search: input.Search,
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("list users: %w", err)
	}
	return users, domain.NewPagination(total, page), nil
}

// ListActive returns every active user, newest first.
func (s *UserService) ListActive(ctx context.Context) ([]*domain.User, error) {
	users, _, err := s.users.List(ctx, domain.UserFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return users, nil
}
