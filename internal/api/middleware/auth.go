package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dom/star-diary/internal/api/respond"
	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/service"
)

type contextKey string

const identityKey contextKey = "identity"

var (
	ErrTokenRequired = domain.Unauthorized("Access token is required")
	ErrAdminRequired = domain.Forbidden("Admin access required")
)

// Resolver turns a bearer token into an identity. *service.AuthService
// implements it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*service.Identity, error)
}

// Auth requires a valid token for an existing, active user.
func Auth(auth Resolver, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				respond.Error(w, r, log, ErrTokenRequired)
				return
			}

			identity, err := auth.Resolve(r.Context(), token)
			if err != nil {
				log.Debug(r.Context(), "token rejected", "error", err)
				respond.Error(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth attaches an identity when the token resolves and otherwise
// continues anonymously. It never fails the request.
func OptionalAuth(auth Resolver, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := BearerToken(r); ok {
				identity, err := auth.Resolve(r.Context(), token)
				if err == nil {
					r = r.WithContext(WithIdentity(r.Context(), identity))
				} else {
					log.Debug(r.Context(), "optional token ignored", "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				respond.Error(w, r, log, ErrTokenRequired)
				return
			}
			if !identity.User.IsAdmin {
				respond.Error(w, r, log, ErrAdminRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func WithIdentity(ctx context.Context, identity *service.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFrom(ctx context.Context) (*service.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*service.Identity)
	return identity, ok && identity != nil
}

// UserFrom returns the authenticated user or nil.
func UserFrom(ctx context.Context) *domain.User {
	if identity, ok := IdentityFrom(ctx); ok {
		return identity.User
	}
	return nil
}
