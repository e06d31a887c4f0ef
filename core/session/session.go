// Package session keeps the provider each user selected.
//
// Entries are created on first selection and never removed. With the memory
// store they live until the process exits; nothing bounds their number.
package session

import (
	"context"
	"errors"

	"github.com/m3rciful/askbot/core/provider"
)

// ErrEmptyUserID is returned when a store is asked about an empty user id.
var ErrEmptyUserID = errors.New("session: empty user id")

// State is the per-user record.
type State struct {
	SelectedProvider provider.ID
}

// Store maps user ids to their selected provider.
type Store interface {
	// Provider returns the selected provider; a missing user is ("", false, nil).
	Provider(ctx context.Context, userID string) (provider.ID, bool, error)
	// SetProvider is an idempotent upsert; the last write wins.
	SetProvider(ctx context.Context, userID string, id provider.ID) error
}
