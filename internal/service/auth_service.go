package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/repository"
	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	ErrInvalidCredentials = domain.Unauthorized("Invalid username or password")
	ErrAccountInactive    = domain.Unauthorized("Account has been deactivated")
	ErrCredentialsMissing = domain.BadRequest("Username and password are required")
)

// AuthService implements registration, login and identity resolution on
// top of the credential and token services.
type AuthService struct {
	creds    *CredentialService
	tokens   *TokenService
	users    repository.UserRepository
	notifier Notifier
}

func NewAuthService(creds *CredentialService, tokens *TokenService, users repository.UserRepository, notifier Notifier) *AuthService {
	return &AuthService{
		creds:    creds,
		tokens:   tokens,
		users:    users,
		notifier: notifier,
	}
}

type RegisterInput struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, usernameRules()...),
		validation.Field(&in.Password, passwordRules()...),
		validation.Field(&in.DisplayName, displayNameRules()...),
	)
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	User  *domain.User
	Token string
}

// Identity is the caller resolved from a bearer token.
type Identity struct {
	Claims *Claims
	User   *domain.User
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if err := validationError(input.Validate()); err != nil {
		return nil, err
	}

	user, err := s.creds.Create(ctx, CreateUserInput{
		Username:    input.Username,
		Password:    input.Password,
		DisplayName: input.DisplayName,
	})
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.NewRegistrationEvent(user))

	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrCredentialsMissing
	}

	user, err := s.creds.Verify(ctx, username, input.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	at, err := s.creds.TouchLogin(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.LastLogin = &at

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.NewLoginEvent(user, at))

	return &AuthResult{User: user, Token: token}, nil
}

// Resolve verifies the token and then re-checks the principal against the
// store: a token for a deleted or deactivated user is rejected even before
// it expires.
func (s *AuthService) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	id, err := claims.PrincipalID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}

	return &Identity{Claims: claims, User: user}, nil
}
