package handlers

import (
	"net/http"

	"github.com/dom/star-diary/internal/api/respond"
	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	log         logging.Logger
}

func NewAuthHandler(authService *service.AuthService, log logging.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	h.log.Info(r.Context(), "user registered", "username", result.User.Username)
	respond.Created(w, "Account created successfully! 🌟", AuthResponse{
		User:  result.User,
		Token: result.Token,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	respond.OK(w, "Login successful! 🌟", AuthResponse{
		User:  result.User,
		Token: result.Token,
	})
}
