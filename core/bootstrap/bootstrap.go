// Package bootstrap initialises logging and the storage backends selected by configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/askbot/core/config"
	"github.com/m3rciful/askbot/core/database"
	"github.com/m3rciful/askbot/core/logger"
	"github.com/m3rciful/askbot/core/session"
	"github.com/m3rciful/askbot/core/vote"
)

// Options control the bootstrap pipeline. Nil hooks use the package defaults.
type Options struct {
	Config *config.Config

	LoggerInit func(*config.Config) error
	Connect    func(context.Context, config.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(*sqlx.DB) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil for the memory driver.
	DB       *sqlx.DB
	Sessions session.Store
	Votes    vote.Tally
}

// Close releases the database pool, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger and the configured storage. For postgres it
// connects and applies migrations before returning.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	ids := make([]string, 0, len(cfg.Vote.Candidates))
	for _, c := range cfg.Vote.Candidates {
		ids = append(ids, c.ID)
	}

	if cfg.Storage.Driver != config.StoragePostgres {
		logger.Info(ctx, logger.CompStore, "store.ready",
			slog.String("status", "ok"),
			slog.String("driver", config.StorageMemory),
		)
		return &Result{Sessions: session.NewMemory(), Votes: vote.NewMemory(ids)}, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = database.Connect
	}
	db, err := connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = database.RunMigrations
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	logger.Info(ctx, logger.CompStore, "store.ready",
		slog.String("status", "ok"),
		slog.String("driver", config.StoragePostgres),
	)
	return &Result{
		DB:       db,
		Sessions: session.NewPostgres(db),
		Votes:    vote.NewPostgres(db, ids),
	}, nil
}
