package service

import (
	"github.com/dom/star-diary/internal/config"
	"github.com/dom/star-diary/internal/repository"
)

type Services struct {
	Credentials *CredentialService
	Tokens      *TokenService
	Auth        *AuthService
	Profile     *ProfileService
	Users       *UserService
	Entries     *EntryService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, notifier Notifier) *Services {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	creds := NewCredentialService(repos.User, cfg.BcryptRounds)
	tokens := NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)

	return &Services{
		Credentials: creds,
		Tokens:      tokens,
		Auth:        NewAuthService(creds, tokens, repos.User, notifier),
		Profile:     NewProfileService(repos.User, creds),
		Users:       NewUserService(repos.User),
		Entries:     NewEntryService(repos.Entry, notifier),
	}
}
