package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/star-diary/internal/adminbot"
	"github.com/dom/star-diary/internal/api"
	"github.com/dom/star-diary/internal/config"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/notify"
	"github.com/dom/star-diary/internal/repository/postgres"
	"github.com/dom/star-diary/internal/service"
	"github.com/dom/star-diary/internal/telegram"
	"github.com/dom/star-diary/internal/websocket"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logging.New("development").Error(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Environment)

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Error(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	// Initialize live feed hub
	hub := websocket.NewHub(log)
	go hub.Run()

	// Initialize notifier
	tg := telegram.NewClient(cfg.TelegramAPIURL, cfg.TelegramBotToken)
	dispatcher := notify.NewDispatcher(log, notify.Options{
		QueueSize: cfg.NotifyQueueSize,
		Workers:   cfg.NotifyWorkers,
		Timeout:   cfg.NotifyTimeout,
	},
		notify.NewTelegramSink(tg, cfg.TelegramChatID, log),
		notify.NewFeedSink(hub, log),
	)

	// Initialize services
	services := service.NewServices(repos, cfg, dispatcher)

	// Initialize admin bot
	bot := adminbot.New(tg, cfg.TelegramBotToken, services.Credentials, services.Users, adminbot.Options{
		AdminChatID:   cfg.TelegramChatID,
		WebhookDomain: cfg.TelegramWebhookDomain,
	}, log)

	var webhook http.Handler
	if bot.Enabled() && cfg.TelegramWebhookDomain != "" {
		webhook = bot
	}

	// Initialize router
	router := api.NewRouter(services, hub, webhook, cfg, log)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		log.Error(ctx, "failed to listen", "addr", srv.Addr, "error", err)
		os.Exit(1)
	}

	go func() {
		log.Info(ctx, "server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server failed", "error", err)
			os.Exit(1)
		}
	}()

	// The bot binds only once the server is accepting requests, so a
	// webhook registration can be delivered immediately.
	go bot.Launch(ctx)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server")

	bot.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server forced to shutdown", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn(ctx, "notifications dropped on shutdown", "error", err)
	}
	hub.Stop()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info(ctx, "server stopped")
}
