// Package app wires the data layer together: the PostgreSQL table gateway,
// the auth client, the query cache, the session, and the client facade.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farookquisar/restate-client/internal/cache"
	"github.com/farookquisar/restate-client/internal/client"
	"github.com/farookquisar/restate-client/internal/config"
	"github.com/farookquisar/restate-client/internal/gateway/auth"
	"github.com/farookquisar/restate-client/internal/gateway/postgres"
	"github.com/farookquisar/restate-client/internal/session"
	"github.com/farookquisar/restate-client/pkg/database"
	"github.com/farookquisar/restate-client/pkg/health"
	"github.com/farookquisar/restate-client/pkg/httpclient"
)

// App holds the wired dependency graph.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	pool    *pgxpool.Pool
	checks  *health.Registry
	Client  *client.Client
	Session *session.Session
}

// New creates the application, connecting to the backend and building the
// dependency graph. The notifier receives the session's one-shot failure
// notices; pass nil to silence them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, notifier session.Notifier) (*App, error) {
	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.PostgresDSN()), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "tables")

	tables := postgres.New(pool, logger)

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.HTTPTimeout
	httpc := httpclient.New(httpCfg)
	cb := httpclient.NewCircuitBreakerClient(httpc,
		httpclient.DefaultCircuitBreakerConfig("auth"), logger)
	authClient := auth.NewClient(cfg.AuthBaseURL, cfg.AuthAnonKey, cb, logger)

	queryCache := cache.New(logger, cache.Options{
		StaleAfter:     cfg.CacheStaleAfter,
		RetryCount:     cfg.CacheRetryCount,
		RefetchOnFocus: cfg.CacheRefetchOnFocus,
	})

	c := client.New(tables, authClient, queryCache, logger)

	userKey, userFetch := c.SessionQuery()
	sess := session.New(queryCache, userKey, userFetch, notifier, logger)

	checks := health.NewRegistry()
	checks.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	return &App{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		checks:  checks,
		Client:  c,
		Session: sess,
	}, nil
}

// Health runs the registered dependency checks.
func (a *App) Health(ctx context.Context) health.Report {
	return a.checks.Check(ctx)
}

// Run starts the session and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.Session.Start(ctx)
	a.logger.Info("data layer ready")

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.Shutdown()
}

// Shutdown stops the session watcher and closes the connection pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down...")

	a.Session.Close()
	a.pool.Close()

	a.logger.Info("shutdown complete")
	return nil
}
