// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/bluecheck/inquiries/internal/api"
	"github.com/bluecheck/inquiries/internal/inquiry"
	"github.com/bluecheck/inquiries/internal/mailer"
	"github.com/bluecheck/inquiries/internal/mcpserver"
	"github.com/bluecheck/inquiries/internal/metrics"
	"github.com/bluecheck/inquiries/internal/notify"
	"github.com/bluecheck/inquiries/internal/sse"
	"github.com/bluecheck/inquiries/internal/store"
)

// components are the process-scoped dependencies shared by the HTTP and MCP
// entry points. They are built once and released by close.
type components struct {
	logger   *slog.Logger
	store    store.Store
	pool     *mailer.Pool
	renderer *mailer.Renderer
	notifier *notify.Dispatcher
	broker   *sse.Broker
	svc      *inquiry.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func bootstrap(ctx context.Context, app *application) (*components, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("version", app.version),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.Bool("mail_enabled", cfg.Mail.Enabled),
		slog.Int("mail_workers", cfg.Mail.Workers),
		slog.Bool("slack_enabled", cfg.Notify.SlackWebhookURL != ""),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := store.Open(ctx, cfg.Store.Options(), logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	renderer, err := mailer.NewRenderer(cfg.Mail.TemplatesDir, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init templates: %w", err)
	}

	var sender mailer.Sender = mailer.NewLogSender(logger)
	if cfg.Mail.Enabled {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
			Timeout:  cfg.Mail.SMTP.Timeout,
			From:     cfg.Mail.From,
			FromName: cfg.Mail.FromName,
		})
	} else {
		logger.Warn("email delivery disabled, notifications will only be logged")
	}

	pool := mailer.NewPool(cfg.Mail.Workers, cfg.Mail.QueueSize, logger)
	notifier := notify.New(notify.Config{
		BusinessEmail:   cfg.Notify.BusinessEmail,
		BusinessName:    cfg.Notify.BusinessName,
		BusinessPhone:   cfg.Notify.BusinessPhone,
		ResponseWindow:  cfg.Notify.ResponseWindow,
		SlackWebhookURL: cfg.Notify.SlackWebhookURL,
	}, sender, pool, renderer, logger)

	broker := sse.NewBroker(cfg.SSE.StatsThrottle, sse.WithLogger(logger))

	svc := inquiry.NewService(st,
		inquiry.WithNotifier(notifier),
		inquiry.WithEvents(broker),
		inquiry.WithLogger(logger),
		inquiry.WithResponseWindow(cfg.Notify.ResponseWindow),
	)

	return &components{
		logger:   logger,
		store:    st,
		pool:     pool,
		renderer: renderer,
		notifier: notifier,
		broker:   broker,
		svc:      svc,
	}, nil
}

// close releases everything in dependency order: in-flight notifications
// finish before the pool stops, and the store goes last.
func (c *components) close() {
	c.notifier.Wait()
	c.pool.Close()
	c.broker.Close()
	if err := c.store.Close(); err != nil {
		c.logger.Error("store close error", slog.String("error", err.Error()))
	}
}

func (c *components) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		w.Header().Set("Content-Type", "application/json")
		if err := c.store.Ping(ctx); err != nil {
			c.logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(c.svc, c.broker))

	return r
}

// Run starts the HTTP server and blocks until it is stopped by a signal or
// fails.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	c, err := bootstrap(ctx, app)
	if err != nil {
		return err
	}
	defer c.close()
	logger := c.logger

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           c.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(sigCtx)

	if dir := cfg.Mail.TemplatesDir; dir != "" {
		g.Go(func() error {
			if err := c.renderer.Watch(gCtx, dir); err != nil {
				logger.Warn("template watcher not started", slog.String("error", err.Error()))
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

	// Shut down on signal or when another goroutine fails.
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		timeout := cfg.App.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
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

// RunMCP serves the inquiry tools over stdio. Logs go to stderr unless
// WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	c, err := bootstrap(ctx, app)
	if err != nil {
		return err
	}
	defer c.close()

	c.logger.Info("Starting MCP server on stdio")
	if err := mcpserver.New(c.svc, app.version).ServeStdio(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
