// Command steno runs the recording server: the duplex ingestion endpoint,
// the HTTP fallback, the session lifecycle API, and the code generator.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stenoweb/steno/pkg/codegen"
	"github.com/stenoweb/steno/pkg/config"
	"github.com/stenoweb/steno/pkg/ingest"
	"github.com/stenoweb/steno/pkg/logging"
	"github.com/stenoweb/steno/pkg/session"
	"github.com/stenoweb/steno/pkg/storage"
)

// Version information - set via ldflags during build
var (
	version   = "1.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "steno.yaml", "path to the configuration file")
		bind        = flag.String("bind", "", "listen address override (host:port)")
		dbPath      = flag.String("db", "", "sqlite snapshot database path (empty keeps snapshots in memory)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("steno %s (%s, built %s)\n", version, commit, buildDate)
		return
	}

	if err := run(*configPath, *bind, *dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, bindOverride, dbPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if bindOverride != "" {
		cfg.Server.Bind = bindOverride
	}

	log, err := logging.NewLogger(cfg.Logging.Dir)
	if err != nil {
		return err
	}
	defer log.Close()
	log.SetMinLevel(logging.Level(cfg.Logging.Level))

	var store storage.SnapshotStore
	if dbPath != "" {
		store, err = storage.NewSQLiteStore(dbPath)
		if err != nil {
			return err
		}
	} else {
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	manager := session.NewManager(cfg.Recording.MaxEventCount)
	server := ingest.NewServer(cfg, manager, codegen.NewService(), store, log)

	httpServer := &http.Server{
		Addr:              cfg.Server.Bind,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go reapIdleSessions(ctx, cfg, manager, store, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info(logging.CategoryServer, "server_started", "", "listening", map[string]any{
			"bind":    cfg.Server.Bind,
			"version": version,
		})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(logging.CategoryServer, "server_stopping", "", "shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// reapIdleSessions fails recordings with no activity past the idle timeout
// and archives their snapshots so partial work is not lost.
func reapIdleSessions(ctx context.Context, cfg *config.Config, manager *session.Manager, store storage.SnapshotStore, log *logging.Logger) {
	interval := cfg.Recording.IdleTimeout / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, id := range manager.FailIdle(cfg.Recording.IdleTimeout) {
				rec, err := manager.Get(id)
				if err != nil {
					continue
				}
				if err := store.Save(rec.Snapshot()); err != nil {
					log.Error(logging.CategorySession, "idle_archive_failed", id, err.Error(), nil)
				}
				manager.Remove(id)
				log.Info(logging.CategorySession, "session_reaped", id, "recording failed after idle timeout", nil)
			}
		case <-ctx.Done():
			return
		}
	}
}
