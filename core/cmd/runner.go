// Package cmd runs the service: load configuration, bootstrap, serve until a signal arrives.
package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/askbot/core/app"
	"github.com/m3rciful/askbot/core/bootstrap"
	"github.com/m3rciful/askbot/core/config"
	"github.com/m3rciful/askbot/core/logger"
)

// Options describe where configuration comes from.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string
}

// Run loads configuration, bootstraps storage, and serves until SIGINT or SIGTERM.
func Run(opts Options) error {
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	store, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	application, err := app.New(ctx, cfg, store)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("cmd: app build failed: %w", err)
	}
	logger.Info(ctx, logger.CompApp, "app.started",
		slog.String("status", "ok"),
		slog.Duration("startup_duration", logger.Took(startedAt)),
	)

	runErr := application.Run(ctx)
	logger.Info(context.Background(), logger.CompApp, "app.shutdown",
		slog.String("status", logger.Status(runErr)),
	)
	if err := application.Close(); err != nil {
		logger.Warn(context.Background(), logger.CompApp, "app.close",
			slog.String("status", "error"),
			slog.String("err", err.Error()),
		)
	}
	return runErr
}
