// Package server hosts the inbound HTTP surface: the LINE webhook, health and
// metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/askbot/core/config"
	"github.com/m3rciful/askbot/core/logger"
	"github.com/m3rciful/askbot/core/metrics"
)

// Options wires the HTTP server.
type Options struct {
	Config  config.HTTPConfig
	Webhook http.Handler
	// Metrics is optional; without it /metrics is not mounted.
	Metrics *metrics.Metrics
}

// Server runs the HTTP listener until its context ends.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

// NewRouter builds the chi route table.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(Recover)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(AccessLog)

	r.Method(http.MethodPost, opts.Config.CallbackPath, opts.Webhook)
	r.Get("/healthz", health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	return r
}

// New prepares the listener on cfg.Listen:cfg.Port.
func New(opts Options) *Server {
	addr := net.JoinHostPort(opts.Config.Listen, strconv.Itoa(opts.Config.Port))
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(opts),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      WriteTimeout(opts.Config),
			IdleTimeout:       2 * time.Minute,
		},
		shutdownTimeout: time.Duration(opts.Config.ShutdownTimeoutSeconds) * time.Second,
	}
}

// writeHeadroom leaves room for replies and the response after the delivery budget.
const writeHeadroom = 15 * time.Second

// WriteTimeout outlasts the webhook delivery budget, since provider calls run
// inside the request.
func WriteTimeout(cfg config.HTTPConfig) time.Duration {
	budget := time.Duration(cfg.DeliveryTimeoutSeconds) * time.Second
	if budget <= 0 {
		budget = time.Minute
	}
	return budget + writeHeadroom
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.HTTP.Info("listening",
			slog.String("event", "http.listen"),
			slog.String("addr", s.srv.Addr),
		)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	start := time.Now()
	err := s.srv.Shutdown(shutdownCtx)
	logger.HTTP.Info("stopped",
		slog.String("event", "http.shutdown"),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	)
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
