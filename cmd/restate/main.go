package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/farookquisar/restate-client/internal/app"
	"github.com/farookquisar/restate-client/internal/config"
	"github.com/farookquisar/restate-client/internal/session"
	"github.com/farookquisar/restate-client/pkg/logger"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logger.
	log := logger.New("restate-client", cfg.LogLevel)
	log.Info("starting data layer",
		slog.String("environment", cfg.Environment),
		slog.String("auth_base_url", cfg.AuthBaseURL),
	)

	// Session failures surface through the log until a presentation layer
	// supplies a real notification sink.
	notifier := session.NotifierFunc(func(ctx context.Context, message string) {
		log.WarnContext(ctx, "session notice", slog.String("message", message))
	})

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg, log, notifier)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("data layer stopped")
}
