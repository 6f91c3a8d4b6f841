// Package handlers implements the HTTP endpoints under /api.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dom/star-diary/internal/api/respond"
	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 10 << 20

var (
	errInvalidBody = domain.BadRequest("Invalid request body")
	errInvalidID   = domain.BadRequest("Invalid ID format")
)

func writeError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	respond.Error(w, r, log, err)
}

// decodeJSON reads the request body into v. An empty body leaves v zeroed.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

// pageRequest reads ?page= and ?limit=; bad values fall back to defaults.
func pageRequest(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return domain.PageRequest{Page: page, Limit: limit}
}
