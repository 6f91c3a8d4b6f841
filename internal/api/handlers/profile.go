package handlers

import (
	"net/http"

	"github.com/dom/star-diary/internal/api/middleware"
	"github.com/dom/star-diary/internal/api/respond"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/service"
)

// ProfileHandler serves the caller's own account. Every route sits behind
// middleware.Auth.
type ProfileHandler struct {
	profileService *service.ProfileService
	log            logging.Logger
}

func NewProfileHandler(profileService *service.ProfileService, log logging.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, log: log}
}

// UpdateProfileRequest accepts profile fields either nested under "profile"
// or at the top level; nested values win.
type UpdateProfileRequest struct {
	DisplayName   *string `json:"displayName"`
	Avatar        *string `json:"avatar"`
	Bio           *string `json:"bio"`
	FavoriteEmoji *string `json:"favoriteEmoji"`
	Theme         *string `json:"theme"`
	Profile       *struct {
		Bio           *string `json:"bio"`
		FavoriteEmoji *string `json:"favoriteEmoji"`
		Theme         *string `json:"theme"`
	} `json:"profile"`
}

func (req UpdateProfileRequest) input() service.UpdateProfileInput {
	in := service.UpdateProfileInput{
		DisplayName:   req.DisplayName,
		Avatar:        req.Avatar,
		Bio:           req.Bio,
		FavoriteEmoji: req.FavoriteEmoji,
		Theme:         req.Theme,
	}
	if p := req.Profile; p != nil {
		if p.Bio != nil {
			in.Bio = p.Bio
		}
		if p.FavoriteEmoji != nil {
			in.FavoriteEmoji = p.FavoriteEmoji
		}
		if p.Theme != nil {
			in.Theme = p.Theme
		}
	}
	return in
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	profile, err := h.profileService.Get(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	respond.OK(w, "", profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	updated, err := h.profileService.Update(r.Context(), user.ID, req.input())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	respond.OK(w, "Profile updated successfully", updated)
}

func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	var req service.ChangePasswordInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if err := h.profileService.ChangePassword(r.Context(), user.ID, req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	respond.OK(w, "Password changed successfully", nil)
}

// DeleteAccount deactivates the caller. The row stays; login is refused
// afterwards.
func (h *ProfileHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())

	if err := h.profileService.DeactivateAccount(r.Context(), user.ID); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	h.log.Info(r.Context(), "account deactivated", "username", user.Username)
	respond.OK(w, "Account has been deleted", nil)
}
