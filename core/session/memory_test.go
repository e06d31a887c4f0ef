package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/askbot/core/provider"
)

func TestMemoryMissingUserIsUnselected(t *testing.T) {
	m := NewMemory()
	id, ok, err := m.Provider(context.Background(), "U1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Zero(t, m.Len())
}

func TestMemoryLastWriteWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SetProvider(ctx, "U1", provider.Gemini))
	require.NoError(t, m.SetProvider(ctx, "U1", provider.Gemini))
	require.NoError(t, m.SetProvider(ctx, "U1", provider.ChatGPT))
	require.NoError(t, m.SetProvider(ctx, "U2", provider.Gemini))

	id, ok, err := m.Provider(ctx, "U1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, provider.ChatGPT, id)

	id, _, _ = m.Provider(ctx, "U2")
	assert.Equal(t, provider.Gemini, id)
	assert.Equal(t, 2, m.Len())
}

func TestMemoryRejectsEmptyUser(t *testing.T) {
	m := NewMemory()
	assert.ErrorIs(t, m.SetProvider(context.Background(), "", provider.Gemini), ErrEmptyUserID)
	_, _, err := m.Provider(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyUserID)
}

func TestMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := fmt.Sprintf("U%d", i%5)
			_ = m.SetProvider(ctx, user, provider.Gemini)
			_, _, _ = m.Provider(ctx, user)
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, m.Len())
}
