package handlers

import (
	"net/http"
	"time"

	"github.com/dom/star-diary/internal/api/middleware"
	"github.com/dom/star-diary/internal/api/respond"
	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/service"
	"github.com/google/uuid"
)

type EntryHandler struct {
	entryService *service.EntryService
	log          logging.Logger
}

func NewEntryHandler(entryService *service.EntryService, log logging.Logger) *EntryHandler {
	return &EntryHandler{entryService: entryService, log: log}
}

// EntryResponse embeds the author summary under "userId", the shape the
// frontend expects. Author is null once the author has been removed.
type EntryResponse struct {
	ID        uuid.UUID           `json:"_id"`
	Content   string              `json:"content"`
	Date      time.Time           `json:"date"`
	Seq       int64               `json:"id"`
	IsPrivate bool                `json:"isPrivate"`
	Author    *domain.UserSummary `json:"userId"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

func toEntryResponse(e *domain.Entry) EntryResponse {
	resp := EntryResponse{
		ID:        e.ID,
		Content:   e.Content,
		Date:      e.Date,
		Seq:       e.Seq,
		IsPrivate: e.IsPrivate,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Author != nil {
		resp.Author = e.Author.Summary()
	}
	return resp
}

func toEntryResponses(entries []*domain.Entry) []EntryResponse {
	resp := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toEntryResponse(e))
	}
	return resp
}

// List serves GET /api/entries with an optional ?userId= filter.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	input := service.ListEntriesInput{
		Viewer: middleware.UserFrom(r.Context()),
		Page:   pageRequest(r),
	}
	if raw := r.URL.Query().Get("userId"); raw != "" {
		authorID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, r, h.log, errInvalidID)
			return
		}
		input.AuthorID = &authorID
	}

	h.list(w, r, input)
}

// ListByUser serves GET /api/entries/user/{userId}.
func (h *EntryHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	authorID, err := pathUUID(r, "userId")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	h.list(w, r, service.ListEntriesInput{
		AuthorID: &authorID,
		Viewer:   middleware.UserFrom(r.Context()),
		Page:     pageRequest(r),
	})
}

func (h *EntryHandler) list(w http.ResponseWriter, r *http.Request, input service.ListEntriesInput) {
	entries, page, err := h.entryService.List(r.Context(), input)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	respond.Page(w, toEntryResponses(entries), page)
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req service.CreateEntryInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	entry, err := h.entryService.Create(r.Context(), user, req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	respond.Created(w, "Your wish has been sent to the stars! ✨", toEntryResponse(entry))
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	entry, err := h.entryService.Get(r.Context(), middleware.UserFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	respond.OK(w, "", toEntryResponse(entry))
}

func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	var req service.UpdateEntryInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	entry, err := h.entryService.Update(r.Context(), middleware.UserFrom(r.Context()), id, req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	respond.OK(w, "Entry updated", toEntryResponse(entry))
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if err := h.entryService.Delete(r.Context(), middleware.UserFrom(r.Context()), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	respond.OK(w, "Entry deleted", nil)
}
