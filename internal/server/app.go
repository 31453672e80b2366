// Package server wires the notes server together: configuration, the
// PostgreSQL pool and its migrations, services and the HTTP API. App.Run
// serves until the context is cancelled or a termination signal arrives,
// then shuts down gracefully.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/server/config"
	"github.com/dmitrijs2005/notekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/notekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
)

const (
	dbPingAttempts = 5
	dbPingDelay    = 500 * time.Millisecond
)

// tokenPurgeInterval is how often expired refresh tokens are removed.
var tokenPurgeInterval = time.Hour

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	users  *services.UserService
	notes  *services.NoteService
	server *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := waitForDB(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database is unreachable: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return newApp(cfg, logger, db, rm), nil
}

func newApp(cfg *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) *App {
	users := services.NewUserService(db, rm, cfg)
	notes := services.NewNoteService(db, rm, cfg)

	handler := httpapi.NewRouter(users, notes,
		httpapi.WithLogger(logger),
		httpapi.WithBaseURL(cfg.PublicBaseURL),
	)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		users:  users,
		notes:  notes,
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// waitForDB pings db with exponential backoff so the server can start
// alongside its database.
func waitForDB(ctx context.Context, db *sql.DB, logger logging.Logger) error {
	return retry.Do(
		func() error { return db.PingContext(ctx) },
		retry.Context(ctx),
		retry.Attempts(dbPingAttempts),
		retry.Delay(dbPingDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn(ctx, "database not ready", "attempt", n+1, "error", err)
		}),
	)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	app.logger.Info(ctx, "listening", "addr", app.config.ListenAddr)
	if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
		return err
	}
	return nil
}

func (app *App) purgeExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.users.PurgeExpiredTokens(ctx)
			if err != nil {
				app.logger.Warn(ctx, "refresh token purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired refresh tokens removed", "count", n)
			}
		}
	}
}

// Run serves until ctx is cancelled or a termination signal arrives. It
// returns the error that stopped the HTTP server, if any.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var (
		wg       sync.WaitGroup
		serveErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		serveErr = app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.purgeExpiredTokens(ctx)
	}()

	<-ctx.Done()
	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancelShutdown()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "graceful shutdown failed", "error", err)
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "failed to close database", "error", err)
	}
	return serveErr
}
