// Package respond writes the JSON envelope every API response shares:
// {success, message?, data?, errors?, pagination?}.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/logging"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type Envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	Data       any                `json:"data,omitempty"`
	Errors     []string           `json:"errors,omitempty"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
}

func JSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

func Page(w http.ResponseWriter, data any, page domain.Pagination) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: &page})
}

// Error normalises err into a status and failure envelope. Errors without
// a domain kind are logged and reported as a generic 500.
func Error(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		log.Error(r.Context(), "unhandled error",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err,
		)
		JSON(w, http.StatusInternalServerError, Envelope{Message: "Internal server error"})
		return
	}

	status := de.Kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "server error",
			"path", r.URL.Path,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err,
		)
		JSON(w, status, Envelope{Message: "Internal server error"})
		return
	}

	JSON(w, status, Envelope{Message: de.Message, Errors: de.Details})
}
