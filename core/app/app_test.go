package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/askbot/core/bootstrap"
	"github.com/m3rciful/askbot/core/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Line: config.LineConfig{ChannelSecret: "secret", ChannelAccessToken: "token"},
		Providers: config.ProvidersConfig{
			Gemini: config.ProviderConfig{APIKey: "g-key"},
			OpenAI: config.ProviderConfig{APIKey: "o-key"},
		},
	}
	require.NoError(t, config.Normalize(cfg))
	return cfg
}

func TestNewAndClose(t *testing.T) {
	cfg := testConfig(t)
	store, err := bootstrap.Run(context.Background(), bootstrap.Options{
		Config:     cfg,
		LoggerInit: func(*config.Config) error { return nil },
	})
	require.NoError(t, err)

	a, err := New(context.Background(), cfg, store)
	require.NoError(t, err)
	assert.Len(t, a.catalog.Candidates, 2)
	assert.Equal(t, "gemini,chatgpt", providerList(a.gateway.IDs()))
	assert.Nil(t, a.tgOut, "telegram is off without a token")

	families, err := a.metrics.Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["askbot_sessions"])
	assert.True(t, names["askbot_outbound_failed_jobs_total"])
	assert.NoError(t, a.Close())
}

func TestNewRequiresInputs(t *testing.T) {
	_, err := New(context.Background(), nil, nil)
	assert.Error(t, err)
}
