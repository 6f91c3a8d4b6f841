package handlers

import (
	"net/http"

	"github.com/dom/star-diary/internal/api/middleware"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/websocket"
	ws "github.com/gorilla/websocket"
)

// FeedHandler upgrades admins to the live event feed. Browsers cannot set
// headers on a websocket handshake, so the token comes from ?token=.
type FeedHandler struct {
	hub      *websocket.Hub
	auth     middleware.Resolver
	upgrader ws.Upgrader
	log      logging.Logger
}

func NewFeedHandler(hub *websocket.Hub, auth middleware.Resolver, allowedOrigins []string, log logging.Logger) *FeedHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &FeedHandler{
		hub:  hub,
		auth: auth,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
		log: log,
	}
}

func (h *FeedHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, r, h.log, middleware.ErrTokenRequired)
		return
	}

	identity, err := h.auth.Resolve(r.Context(), token)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if !identity.User.IsAdmin {
		writeError(w, r, h.log, middleware.ErrAdminRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "feed upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(h.hub, conn, identity.User.ID, identity.User.Username)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
