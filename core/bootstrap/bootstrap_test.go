package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/askbot/core/config"
	"github.com/m3rciful/askbot/core/session"
	"github.com/m3rciful/askbot/core/vote"
)

func noLogger(*config.Config) error { return nil }

func testConfig(driver string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Driver: driver},
		Vote:    config.VoteConfig{Candidates: config.DefaultCandidates()},
	}
}

func TestRunMemory(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Config:     testConfig(config.StorageMemory),
		LoggerInit: noLogger,
		Connect: func(context.Context, config.DatabaseConfig) (*sqlx.DB, error) {
			t.Fatal("memory driver must not connect")
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.Nil(t, res.DB)
	assert.IsType(t, &session.Memory{}, res.Sessions)
	assert.IsType(t, &vote.Memory{}, res.Votes)

	snap, err := res.Votes.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, vote.Snapshot{"gemini": 0, "chatgpt": 0}, snap)
	assert.NoError(t, res.Close())
}

func TestRunPostgres(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "postgres")
	migrated := false

	res, err := Run(context.Background(), Options{
		Config:     testConfig(config.StoragePostgres),
		LoggerInit: noLogger,
		Connect: func(context.Context, config.DatabaseConfig) (*sqlx.DB, error) {
			return db, nil
		},
		Migrate: func(got *sqlx.DB) error {
			migrated = got == db
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, migrated)
	assert.IsType(t, &session.Postgres{}, res.Sessions)
	assert.IsType(t, &vote.Postgres{}, res.Votes)

	mock.ExpectClose()
	require.NoError(t, res.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunFailures(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)

	_, err = Run(context.Background(), Options{
		Config:     testConfig(config.StorageMemory),
		LoggerInit: func(*config.Config) error { return errors.New("no disk") },
	})
	assert.ErrorContains(t, err, "logger init failed")

	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	_, err = Run(context.Background(), Options{
		Config:     testConfig(config.StoragePostgres),
		LoggerInit: noLogger,
		Connect: func(context.Context, config.DatabaseConfig) (*sqlx.DB, error) {
			return sqlx.NewDb(raw, "postgres"), nil
		},
		Migrate: func(*sqlx.DB) error { return errors.New("dirty") },
	})
	assert.ErrorContains(t, err, "migrations failed")
	assert.NoError(t, mock.ExpectationsWereMet(), "pool is closed after a failed migration")
}
