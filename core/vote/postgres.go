package vote

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	incrementSQL = `INSERT INTO vote_tally (candidate_id, count, updated_at) VALUES ($1, 1, now())
ON CONFLICT (candidate_id) DO UPDATE SET count = vote_tally.count + 1, updated_at = now()`
	resetSQL    = `UPDATE vote_tally SET count = 0, updated_at = now()`
	snapshotSQL = `SELECT candidate_id, count FROM vote_tally`
)

type row struct {
	Candidate string `db:"candidate_id"`
	Count     int    `db:"count"`
}

// Postgres keeps the tally in the vote_tally table. Rows for ids outside the
// configured set are ignored in snapshots.
type Postgres struct {
	db  *sqlx.DB
	ids candidates
}

// NewPostgres wraps db for the given candidate set.
func NewPostgres(db *sqlx.DB, ids []string) *Postgres {
	return &Postgres{db: db, ids: append([]string(nil), ids...)}
}

// Increment adds the vote and reads the snapshot in one transaction.
func (p *Postgres) Increment(ctx context.Context, candidate string) (Snapshot, error) {
	if !p.ids.has(candidate) {
		return nil, ErrUnknownCandidate
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("vote: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, incrementSQL, candidate); err != nil {
		return nil, fmt.Errorf("vote: increment: %w", err)
	}
	snap, err := p.snapshot(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("vote: commit: %w", err)
	}
	return snap, nil
}

func (p *Postgres) Reset(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, resetSQL); err != nil {
		return fmt.Errorf("vote: reset: %w", err)
	}
	return nil
}

func (p *Postgres) Snapshot(ctx context.Context) (Snapshot, error) {
	return p.snapshot(ctx, p.db)
}

func (p *Postgres) snapshot(ctx context.Context, q sqlx.QueryerContext) (Snapshot, error) {
	var rows []row
	if err := sqlx.SelectContext(ctx, q, &rows, snapshotSQL); err != nil {
		return nil, fmt.Errorf("vote: snapshot: %w", err)
	}
	snap := p.ids.zero()
	for _, r := range rows {
		if _, ok := snap[r.Candidate]; ok {
			snap[r.Candidate] = r.Count
		}
	}
	return snap, nil
}
