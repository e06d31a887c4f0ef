package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/askbot/core/config"
)

func TestBuildPollerFromConfig(t *testing.T) {
	lp, ok := BuildPoller(config.TelegramConfig{}).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, lp.Timeout)

	wh, ok := BuildPoller(config.TelegramConfig{
		RunMode: "Webhook",
		Webhook: config.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example/tg"},
	}).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "https://bot.example/tg", wh.Endpoint.PublicURL)
}

func TestClientOptionsLeaveRetriesToDispatcher(t *testing.T) {
	opts := clientOptions(config.TelegramConfig{LongPollTimeoutSeconds: 30}, "askbot/test")
	assert.Zero(t, opts.MaxRetries)
	assert.Greater(t, opts.Timeout, 30*time.Second)
	assert.Greater(t, opts.ResponseTimeout, 30*time.Second)
	assert.Equal(t, "askbot/test", opts.UserAgent)
}
