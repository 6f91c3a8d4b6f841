package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dom/star-diary/internal/api/middleware"
	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	identities map[string]*service.Identity
	err        error
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (*service.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	identity, ok := f.identities[token]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return identity, nil
}

func newResolver() *fakeResolver {
	member := &domain.User{ID: uuid.New(), Username: "member", IsActive: true}
	admin := &domain.User{ID: uuid.New(), Username: "boss", IsActive: true, IsAdmin: true}
	return &fakeResolver{identities: map[string]*service.Identity{
		"member-token": {User: member},
		"admin-token":  {User: admin},
	}}
}

// whoami echoes the username attached to the request, or "anonymous".
var whoami = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	name := "anonymous"
	if user := middleware.UserFrom(r.Context()); user != nil {
		name = user.Username
	}
	w.Write([]byte(name))
})

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Message
}

func TestAuth(t *testing.T) {
	h := middleware.Auth(newResolver(), logging.Discard())(whoami)

	tests := []struct {
		name           string
		authorization  string
		expectedStatus int
		expectedBody   string
		expectedError  string
	}{
		{
			name:           "valid token",
			authorization:  "Bearer member-token",
			expectedStatus: http.StatusOK,
			expectedBody:   "member",
		},
		{
			name:           "missing header",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Access token is required",
		},
		{
			name:           "wrong scheme",
			authorization:  "Basic member-token",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Access token is required",
		},
		{
			name:           "bearer without token",
			authorization:  "Bearer ",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Access token is required",
		},
		{
			name:           "unknown token",
			authorization:  "Bearer forged",
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.authorization)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, message(t, rec))
				return
			}
			assert.Equal(t, tt.expectedBody, rec.Body.String())
		})
	}
}

func TestAuth_StoreFailureIsServerError(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("connection refused")}
	h := middleware.Auth(resolver, logging.Discard())(whoami)

	rec := serve(h, "Bearer member-token")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", message(t, rec))
}

func TestOptionalAuth(t *testing.T) {
	h := middleware.OptionalAuth(newResolver(), logging.Discard())(whoami)

	tests := []struct {
		name          string
		authorization string
		expected      string
	}{
		{name: "valid token", authorization: "Bearer admin-token", expected: "boss"},
		{name: "no header", expected: "anonymous"},
		{name: "invalid token", authorization: "Bearer forged", expected: "anonymous"},
		{name: "wrong scheme", authorization: "Token admin-token", expected: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.authorization)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.expected, rec.Body.String())
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	log := logging.Discard()
	h := middleware.Auth(newResolver(), log)(middleware.RequireAdmin(log)(whoami))

	t.Run("admin passes", func(t *testing.T) {
		rec := serve(h, "Bearer admin-token")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "boss", rec.Body.String())
	})

	t.Run("member is forbidden", func(t *testing.T) {
		rec := serve(h, "Bearer member-token")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Admin access required", message(t, rec))
	})

	t.Run("without identity", func(t *testing.T) {
		rec := serve(middleware.RequireAdmin(log)(whoami), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Access token is required", message(t, rec))
	})
}

func TestIdentityFrom(t *testing.T) {
	_, ok := middleware.IdentityFrom(context.Background())
	assert.False(t, ok)

	identity := &service.Identity{User: &domain.User{Username: "star01"}}
	ctx := middleware.WithIdentity(context.Background(), identity)

	got, ok := middleware.IdentityFrom(ctx)
	require.True(t, ok)
	assert.Same(t, identity, got)
	assert.Equal(t, "star01", middleware.UserFrom(ctx).Username)
}
