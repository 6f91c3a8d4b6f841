package handlers

import (
	"net/http"
	"strings"

	"github.com/dom/star-diary/internal/api/respond"
	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/service"
)

type UserHandler struct {
	userService *service.UserService
	log         logging.Logger
}

func NewUserHandler(userService *service.UserService, log logging.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

// List is admin-only: GET /api/users?search=&page=&limit=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, page, err := h.userService.List(r.Context(), service.ListUsersInput{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Page:   pageRequest(r),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if users == nil {
		users = []*domain.User{}
	}
	respond.Page(w, users, page)
}
