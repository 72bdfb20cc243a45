package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	clipboardadapter "github.com/ericfisherdev/fastclip/internal/adapter/driven/clipboard"
	fileadapter "github.com/ericfisherdev/fastclip/internal/adapter/driven/file"
	"github.com/ericfisherdev/fastclip/internal/adapter/driven/keyfile"
	sqliteadapter "github.com/ericfisherdev/fastclip/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/fastclip/internal/adapter/driving/http"
	"github.com/ericfisherdev/fastclip/internal/adapter/driving/rpc"
	"github.com/ericfisherdev/fastclip/internal/application"
	"github.com/ericfisherdev/fastclip/internal/config"
	"github.com/ericfisherdev/fastclip/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"data_dir", cfg.DataDir,
		"storage", cfg.Storage,
		"max_entries", cfg.MaxEntries,
		"poll_interval", cfg.PollInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Load or create the history key. The key itself is never logged.
	key, created, err := keyfile.LoadOrGenerate(cfg.KeyPath, cfg.GenerateKey)
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}
	if created {
		slog.Warn("generated new history key", "path", cfg.KeyPath)
	}

	// 4. Open durable storage.
	entryFile, err := openEntryFile(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := entryFile.Close(); closeErr != nil {
			slog.Error("error closing history storage", "error", closeErr)
		}
	}()

	// 5. Load the history.
	store := application.NewHistoryStore(entryFile, key,
		application.WithMaxEntries(cfg.MaxEntries),
		application.WithDiscardCorrupt(cfg.DiscardCorrupt),
		application.WithLogger(logger),
	)
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	slog.Info("history loaded", "entries", store.Size())

	// 6. Wire the capture loop.
	hub := application.NewHub(cfg.HubCapacity)
	source := clipboardadapter.New()
	tracker := application.NewChangeTracker(source, cfg.PollInterval, logger)
	if !cfg.CaptureExisting {
		tracker.Prime(ctx)
	}
	captureSvc := application.NewCaptureService(tracker, store, hub, time.Now, logger)

	// 7. Create the query boundary and its transports.
	clipSvc := application.NewClipboardService(store, hub, logger)
	rpcServer := rpc.NewServer(clipSvc, logger)
	apiHandler := httphandler.NewHandler(clipSvc, logger)

	// No WriteTimeout: long-poll responses may wait indefinitely for a change.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, rpcServer, logger),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		captureSvc.Start(gctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		// Wake pending subscribers before draining so long-polls return.
		hub.Close()
		rpcServer.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	slog.Info("fastclipd started", "listen_addr", cfg.ListenAddr, "entries", store.Size())

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}

// openEntryFile opens the storage backend selected by cfg.Storage.
func openEntryFile(ctx context.Context, cfg *config.Config) (driven.EntryFile, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath())
		if err != nil {
			return nil, err
		}
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, err
		}
		slog.Info("database opened", "path", cfg.DBPath())
		return sqliteadapter.NewEntryBlobRepo(db), nil
	default:
		f, err := fileadapter.Open(cfg.EntriesPath())
		if err != nil {
			return nil, err
		}
		slog.Info("history file opened", "path", f.Path())
		return f, nil
	}
}
