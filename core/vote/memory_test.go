package vote

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIncrementIsolatedPerCandidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory([]string{"gemini", "chatgpt"})

	snap, err := m.Increment(ctx, "gemini")
	require.NoError(t, err)
	assert.Equal(t, Snapshot{"gemini": 1, "chatgpt": 0}, snap)

	snap, err = m.Increment(ctx, "gemini")
	require.NoError(t, err)
	assert.Equal(t, Snapshot{"gemini": 2, "chatgpt": 0}, snap)

	snap, err = m.Increment(ctx, "chatgpt")
	require.NoError(t, err)
	assert.Equal(t, Snapshot{"gemini": 2, "chatgpt": 1}, snap)
}

func TestMemoryUnknownCandidate(t *testing.T) {
	m := NewMemory([]string{"gemini"})
	_, err := m.Increment(context.Background(), "llama")
	assert.ErrorIs(t, err, ErrUnknownCandidate)

	snap, _ := m.Snapshot(context.Background())
	assert.Equal(t, Snapshot{"gemini": 0}, snap)
}

func TestMemoryResetZeroesAll(t *testing.T) {
	ctx := context.Background()
	m := NewMemory([]string{"gemini", "chatgpt"})
	for range 3 {
		_, err := m.Increment(ctx, "gemini")
		require.NoError(t, err)
	}
	_, _ = m.Increment(ctx, "chatgpt")

	require.NoError(t, m.Reset(ctx))
	snap, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{"gemini": 0, "chatgpt": 0}, snap)
}

func TestMemorySnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory([]string{"a"})
	snap, _ := m.Increment(ctx, "a")
	snap["a"] = 100
	got, _ := m.Snapshot(ctx)
	assert.Equal(t, 1, got["a"])
}

func TestMemoryConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	m := NewMemory([]string{"a", "b"})
	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := "a"
			if i%2 == 1 {
				id = "b"
			}
			_, _ = m.Increment(ctx, id)
		}()
	}
	wg.Wait()
	snap, _ := m.Snapshot(ctx)
	assert.Equal(t, Snapshot{"a": 100, "b": 100}, snap)
}
