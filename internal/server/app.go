// Package server initializes and runs the authentication API server: it
// opens the database, applies migrations, wires the services and starts the
// HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tileschb/larang-api/internal/logging"
	"github.com/tileschb/larang-api/internal/respond"
	"github.com/tileschb/larang-api/internal/server/config"
	"github.com/tileschb/larang-api/internal/server/httpapi"
	"github.com/tileschb/larang-api/internal/server/repositories/repomanager"
	"github.com/tileschb/larang-api/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

// newSlogHandler picks the log format for the environment: JSON for
// production log pipelines, text for reading during development.
func newSlogHandler(cfg *config.Config) slog.Handler {
	if cfg.IsProduction() {
		return slog.NewJSONHandler(os.Stdout, nil)
	}
	return slog.NewTextHandler(os.Stdout, nil)
}

func NewApp(cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(newSlogHandler(cfg)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	us := services.NewUserService(db, m)
	ts := services.NewTokenService(db, m, cfg)

	formatter := respond.NewFormatter(respond.NewKeyCache())
	srv := httpapi.NewServer(cfg, logger, formatter, us, ts)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "server error", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
