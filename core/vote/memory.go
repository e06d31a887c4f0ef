package vote

import (
	"context"
	"sync"
)

// Memory is a Tally guarded by a single mutex.
type Memory struct {
	ids candidates

	mu     sync.Mutex
	counts Snapshot
}

// NewMemory starts every candidate at zero.
func NewMemory(ids []string) *Memory {
	c := candidates(append([]string(nil), ids...))
	return &Memory{ids: c, counts: c.zero()}
}

func (m *Memory) Increment(_ context.Context, candidate string) (Snapshot, error) {
	if !m.ids.has(candidate) {
		return nil, ErrUnknownCandidate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[candidate]++
	return m.copyLocked(), nil
}

func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = m.ids.zero()
	return nil
}

func (m *Memory) Snapshot(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyLocked(), nil
}

func (m *Memory) copyLocked() Snapshot {
	out := make(Snapshot, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}
