package telegram

import (
	"net"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/askbot/core/config"
)

const defaultLongPollSeconds = 10

// BuildPoller returns a webhook poller for run_mode "webhook" and a long poller otherwise.
func BuildPoller(cfg config.TelegramConfig) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(cfg.RunMode), config.RunModeWebhook) {
		return &tele.Webhook{
			Listen:   net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: longPollTimeout(cfg)}
}

func longPollTimeout(cfg config.TelegramConfig) time.Duration {
	sec := cfg.LongPollTimeoutSeconds
	if sec <= 0 {
		sec = defaultLongPollSeconds
	}
	return time.Duration(sec) * time.Second
}
