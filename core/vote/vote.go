// Package vote counts votes over a fixed, closed candidate set.
package vote

import (
	"context"
	"errors"
	"slices"
)

// ErrUnknownCandidate is returned for ids outside the configured candidate set.
var ErrUnknownCandidate = errors.New("vote: unknown candidate")

// Snapshot maps every candidate id to its count.
type Snapshot map[string]int

// Tally counts votes. There is no per-user limit; every call to Increment counts.
type Tally interface {
	// Increment adds exactly one vote and returns the full tally afterwards.
	Increment(ctx context.Context, candidate string) (Snapshot, error)
	// Reset zeroes every candidate.
	Reset(ctx context.Context) error
	Snapshot(ctx context.Context) (Snapshot, error)
}

// candidates is the closed id set shared by both implementations.
type candidates []string

func (c candidates) has(id string) bool {
	return slices.Contains(c, id)
}

func (c candidates) zero() Snapshot {
	s := make(Snapshot, len(c))
	for _, id := range c {
		s[id] = 0
	}
	return s
}
