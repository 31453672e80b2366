package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/config"
	"github.com/dmitrijs2005/notekeeper/internal/client/feed"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/client/session"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config  *config.Config
	db      *sql.DB
	session *session.Session
	auth    services.AuthService
	notes   services.NoteService
	sync    services.SyncService
	backup  services.BackupService
	feed    *feed.Controller
	logger  logging.Logger
	reader  *bufio.Reader
	out     io.Writer

	mu   sync.Mutex
	mode Mode
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	sess := session.New()
	tokens := client.NewMetadataTokenStore(metadata.NewSQLiteRepository(db))
	api := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, tokens,
		client.WithLogger(logger),
		client.WithLogoutNotifier(sess),
	)

	notes := services.NewNoteService(api, db, sess, logger)
	syncer := services.NewSyncService(api, db, logger)

	return &App{
		config:  c,
		db:      db,
		session: sess,
		auth:    services.NewAuthService(api, tokens, db, sess, logger),
		notes:   notes,
		sync:    syncer,
		backup: services.NewBackupService(services.BackupConfig{
			Bucket:    c.Backup.Bucket,
			Region:    c.Backup.Region,
			Endpoint:  c.Backup.Endpoint,
			AccessKey: c.Backup.AccessKey,
			SecretKey: c.Backup.SecretKey,
		}, db, sess, logger),
		feed:   feed.NewController(api, notes, syncer, feed.WithPageSize(c.PageSize), feed.WithLogger(logger)),
		logger: logger,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

// Run restores the previous session, starts the watchers and blocks in the
// REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to notekeeper (type 'help' for commands)")

	restored, err := a.auth.Restore(ctx)
	if err != nil {
		a.logger.Warn(ctx, "failed to restore session", "error", err)
	}
	if restored {
		fmt.Fprintf(a.out, "Logged in as %s\n", a.session.Username())
	}

	go a.WatchSession(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() {
	a.feed.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Error(context.Background(), "failed to close database", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.IsLoggedIn()
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// setMode records the connectivity mode and reports whether it changed.
func (a *App) setMode(mode Mode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == mode {
		return false
	}
	a.mode = mode
	return true
}

func (a *App) getStatus() string {
	s := ""
	if a.isLoggedIn() {
		s = a.session.Username() + " "
	}
	if m := a.Mode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the server every interval. Each time the
// server becomes reachable again the pending local changes are pushed.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.auth.Ping(pingCtx)
	cancel()

	if err != nil {
		if a.setMode(ModeOffline) {
			a.logger.Info(ctx, "switched to offline mode", "error", err)
		}
		return
	}

	if !a.setMode(ModeOnline) {
		return
	}
	a.logger.Info(ctx, "switched to online mode")
	if !a.isLoggedIn() {
		return
	}
	report, err := a.sync.SyncAll(ctx)
	if err != nil {
		a.logger.Warn(ctx, "background sync incomplete", "error", err)
		return
	}
	a.logger.Debug(ctx, "background sync done", "pending", report.Pending())
}

// WatchSession prints a notice whenever the session ends, including when the
// server revokes it.
func (a *App) WatchSession(ctx context.Context) {
	updates, cancel := a.session.Subscribe()
	defer cancel()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if snap.State == session.LoggedOut {
				fmt.Fprintln(a.out, "You are logged out. Local notes stay available after you log in again.")
			}
		case <-ctx.Done():
			return
		}
	}
}
