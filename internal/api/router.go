package api

import (
	"net/http"

	"github.com/dom/star-diary/internal/api/handlers"
	"github.com/dom/star-diary/internal/api/middleware"
	"github.com/dom/star-diary/internal/config"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/service"
	"github.com/dom/star-diary/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the HTTP surface. webhook, when non-nil, receives
// Telegram updates for the admin bot.
func NewRouter(services *service.Services, hub *websocket.Hub, webhook http.Handler, cfg *config.Config, log logging.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	r.NotFound(handlers.NotFound)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, log)
	profileHandler := handlers.NewProfileHandler(services.Profile, log)
	userHandler := handlers.NewUserHandler(services.Users, log)
	entryHandler := handlers.NewEntryHandler(services.Entries, log)
	feedHandler := handlers.NewFeedHandler(hub, services.Auth, cfg.AllowedOrigins(), log)

	requireAuth := middleware.Auth(services.Auth, log)
	optionalAuth := middleware.OptionalAuth(services.Auth, log)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", handlers.Info)
		r.Get("/health", handlers.Health)

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)

			// Protected user routes
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/profile", profileHandler.Get)
				r.Put("/profile", profileHandler.Update)
				r.Put("/password", profileHandler.ChangePassword)
				r.Delete("/account", profileHandler.DeleteAccount)

				r.With(middleware.RequireAdmin(log)).Get("/", userHandler.List)
			})
		})

		r.Route("/entries", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/", entryHandler.List)
				r.Get("/user/{userId}", entryHandler.ListByUser)
				r.Get("/{id}", entryHandler.Get)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", entryHandler.Create)
				r.Put("/{id}", entryHandler.Update)
				r.Delete("/{id}", entryHandler.Delete)
			})
		})

		// WebSocket endpoint
		r.Get("/ws/feed", feedHandler.Handle)
	})

	if webhook != nil {
		r.Method(http.MethodPost, "/telegram/webhook/{secret}", webhook)
	}

	return r
}
