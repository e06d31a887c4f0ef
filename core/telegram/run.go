// Package telegram runs the optional Telegram channel on top of the shared router.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/askbot/core/config"
	"github.com/m3rciful/askbot/core/logger"
	"github.com/m3rciful/askbot/core/netutil"
	"github.com/m3rciful/askbot/core/router"
	"github.com/m3rciful/askbot/core/sender"
	"github.com/m3rciful/askbot/core/telegram/helpers"
)

// RunOptions controls the behaviour of Run.
type RunOptions struct {
	Config  config.TelegramConfig
	Router  Dispatcher
	Catalog *router.Catalog

	// DispatcherOptions is used when Dispatcher is nil.
	DispatcherOptions sender.Options
	Dispatcher        *sender.Dispatcher

	UserAgent string
}

// Run starts the bot and blocks until ctx is done.
func Run(ctx context.Context, opts RunOptions) error {
	if opts.Router == nil || opts.Catalog == nil {
		return errors.New("telegram: router and catalog are required")
	}
	cfg := opts.Config
	poller := BuildPoller(cfg)

	buildStart := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: poller,
		Client: netutil.BuildHTTPClient(clientOptions(cfg, opts.UserAgent)),
		OnError: func(err error, c tele.Context) {
			ctx := context.Background()
			if c != nil {
				ctx = helpers.BuildContext(c)
			}
			logger.Error(ctx, logger.CompTG, "tg.handler_error",
				slog.String("status", "error"),
				slog.String("err", err.Error()),
			)
		},
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	out := opts.Dispatcher
	if out == nil {
		out = sender.NewDispatcher(opts.DispatcherOptions)
	}
	defer out.Close()

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.TG.Info("webhook mode",
			slog.String("event", "tg.mode"),
			slog.String("mode", config.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.Duration("duration", logger.Took(buildStart)),
		)
	default:
		logger.TG.Info("polling mode",
			slog.String("event", "tg.mode"),
			slog.String("mode", config.RunModeLongpoll),
			slog.Duration("timeout", longPollTimeout(cfg)),
			slog.Duration("duration", logger.Took(buildStart)),
		)
		if err := bot.RemoveWebhook(false); err != nil {
			logger.TG.Warn("failed to delete webhook",
				slog.String("event", "tg.delete_webhook"),
				slog.String("err", err.Error()),
			)
		}
	}

	for _, mw := range DefaultMiddlewares(cfg, nil) {
		bot.Use(mw.Use)
	}
	h := NewHandler(opts.Router, NewComposer(opts.Catalog), bot, out)
	bot.Handle(tele.OnText, h.OnText)

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
	case <-runDone:
	}
	logger.TG.Info("stopped", slog.String("event", "tg.stop"))
	return nil
}

// clientOptions leaves transport retries off: sends are retried by the
// dispatcher, and replaying a sendMessage body could deliver it twice.
func clientOptions(cfg config.TelegramConfig, userAgent string) netutil.ClientOptions {
	return netutil.ClientOptions{
		// long polling holds the request open for the poll timeout
		Timeout:         longPollTimeout(cfg) + 20*time.Second,
		ResponseTimeout: longPollTimeout(cfg) + 10*time.Second,
		UserAgent:       userAgent,
	}
}
