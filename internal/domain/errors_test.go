package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	sentinel := Conflict("Username already exists")

	tests := []struct {
		name       string
		err        error
		wantKind   Kind
		wantStatus int
	}{
		{name: "direct", err: Unauthorized("nope"), wantKind: KindUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "wrapped", err: fmt.Errorf("register: %w", sentinel), wantKind: KindConflict, wantStatus: http.StatusConflict},
		{name: "plain error", err: errors.New("boom"), wantKind: KindServerError, wantStatus: http.StatusInternalServerError},
		{name: "bad request", err: BadRequest("invalid", "username: too short"), wantKind: KindBadRequest, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := KindOf(tt.err)
			assert.Equal(t, tt.wantKind, k)
			assert.Equal(t, tt.wantStatus, k.HTTPStatus())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := Wrap(ErrDuplicateKey, KindConflict, "Username already exists")

	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, "Username already exists: duplicate key", err.Error())
}

func TestError_IsMatchesWrappedSentinel(t *testing.T) {
	sentinel := Unauthorized("Invalid token")
	err := Wrap(errors.New("token is expired"), KindUnauthorized, "Invalid token")

	assert.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, err, Unauthorized("Access token is required"))
}
