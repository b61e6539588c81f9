// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/flowboard/internal/api"
	"github.com/starford/flowboard/internal/mcpserver"
	"github.com/starford/flowboard/internal/session"
	"github.com/starford/flowboard/internal/sse"
	pkgconfig "github.com/starford/flowboard/pkg/config"
)

func setup(opts []Option) (*application, *slog.Logger, *slog.LevelVar, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, nil, fmt.Errorf("config is required")
	}

	// Structured JSON logger; the level can change on config reload.
	level := new(slog.LevelVar)
	level.Set(app.config.App.LogLevel)
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return app, logger, level, nil
}

// NewHandler builds the HTTP handler tree: health checks, the REST API
// under /api and the SSE stream at /api/events.
func NewHandler(cfg *Config, sessions *session.Manager, broker *sse.Broker) http.Handler {
	apiRouter := api.NewRouter(sessions, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	return r
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, level, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Duration("graph_throttle", cfg.Events.GraphThrottle),
		slog.Int("max_sessions", cfg.Session.MaxOpen),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.GraphThrottle)
	defer broker.Close()

	sessions := session.NewManager(cfg.Session.MaxOpen, broker, logger)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: NewHandler(cfg, sessions, broker),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Hot reload of the log level.
	if app.configPath != "" {
		g.Go(func() error {
			err := pkgconfig.Watch(gCtx, app.configPath, NewDefaultConfig, logger, func(next *Config) {
				if next.App.LogLevel != level.Level() {
					logger.Info("log level changed",
						slog.String("from", level.Level().String()),
						slog.String("to", next.App.LogLevel.String()))
					level.Set(next.App.LogLevel)
				}
			})
			if err != nil {
				logger.Warn("config watcher disabled", slog.String("error", err.Error()))
			}
			return nil
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		sessions.CloseAll()

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the config watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves one editor session to an MCP client over stdio. Logs go
// to stderr since stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	_, logger, _, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	sessions := session.NewManager(1, nil, logger)
	defer sessions.CloseAll()

	s, err := sessions.Open()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	logger.Info("MCP server starting", slog.String("session", s.ID))
	return mcpserver.New(s).ServeStdio()
}
