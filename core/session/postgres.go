package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/askbot/core/provider"
)

const (
	selectProviderSQL = `SELECT selected_provider FROM user_sessions WHERE user_id = $1`
	upsertProviderSQL = `INSERT INTO user_sessions (user_id, selected_provider, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE SET selected_provider = EXCLUDED.selected_provider, updated_at = now()`
)

// Postgres persists sessions in the user_sessions table.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps db; the schema comes from database.RunMigrations.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Provider(ctx context.Context, userID string) (provider.ID, bool, error) {
	if userID == "" {
		return "", false, ErrEmptyUserID
	}
	var id string
	err := p.db.GetContext(ctx, &id, selectProviderSQL, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("session: get provider: %w", err)
	}
	return provider.ID(id), id != "", nil
}

func (p *Postgres) SetProvider(ctx context.Context, userID string, id provider.ID) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if _, err := p.db.ExecContext(ctx, upsertProviderSQL, userID, string(id)); err != nil {
		return fmt.Errorf("session: set provider: %w", err)
	}
	return nil
}
