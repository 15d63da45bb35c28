// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tenderwatch/internal/api"
	"github.com/starford/tenderwatch/internal/index"
	"github.com/starford/tenderwatch/internal/scheduler"
	"github.com/starford/tenderwatch/internal/sse"
	"github.com/starford/tenderwatch/internal/storage"
)

// Run starts the HTTP server, the data watcher and, when enabled, the batch
// scheduler. It blocks until ctx is cancelled or a signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := NewLogger(app.logOut, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("notify_driver", cfg.Notify.Driver),
		slog.Bool("schedule_enabled", cfg.Schedule.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	a, err := NewApp(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer a.Close()

	// Run initial sync.
	if _, err := index.Sync(a.Index, a.Collections, time.Now().In(a.Location), logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	if _, err := a.Pipeline.RenderStored(); err != nil {
		logger.Warn("initial feed render failed", slog.String("error", err.Error()))
	}

	r := NewHTTPHandler(a, broker)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gCtx)
	defer stop()

	// Watch the data directory for edits made outside this process.
	g.Go(func() error {
		err := index.Watch(runCtx, a.Index, a.Collections, logger, func(kind, name string) {
			// A run renders its own feeds after persisting active.json.
			if name == storage.SeedsFile || (name == storage.ActiveFile && !a.Pipeline.Running()) {
				if _, err := a.Pipeline.RenderStored(); err != nil {
					logger.Warn("feed render after data change failed",
						slog.String("file", name), slog.String("error", err.Error()))
				}
			}
			broker.PublishDataChange(kind, name)
		})
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	if cfg.Schedule.Enabled {
		sched, err := scheduler.New(cfg.Schedule.Cron, a.Location, func(ctx context.Context) error {
			_, err := a.Service.TriggerRun(ctx)
			return err
		}, logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			logger.Info("Starting scheduler", slog.String("cron", cfg.Schedule.Cron))
			return sched.Run(runCtx)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// NewHTTPHandler builds the root router: health checks, the API under /api
// and the public feeds under /feeds. broker may be nil.
func NewHTTPHandler(a *App, broker *sse.Broker) http.Handler {
	var events http.Handler
	if broker != nil {
		events = broker
	}
	apiRouter := api.NewRouter(a.Service, a.Config.Auth.AuthEnabled(), a.Config.Auth.Token, events)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if err := a.Service.Ready(); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	r.Mount("/api", apiRouter)
	r.Mount("/feeds", api.NewFeedRouter(a.Service))

	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
