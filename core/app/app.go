// Package app wires configuration, storage, providers and channels into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/m3rciful/askbot/core/bootstrap"
	"github.com/m3rciful/askbot/core/buildinfo"
	"github.com/m3rciful/askbot/core/config"
	"github.com/m3rciful/askbot/core/line"
	"github.com/m3rciful/askbot/core/logger"
	"github.com/m3rciful/askbot/core/metrics"
	"github.com/m3rciful/askbot/core/netutil"
	"github.com/m3rciful/askbot/core/provider"
	"github.com/m3rciful/askbot/core/router"
	"github.com/m3rciful/askbot/core/sender"
	"github.com/m3rciful/askbot/core/server"
	"github.com/m3rciful/askbot/core/session"
	"github.com/m3rciful/askbot/core/telegram"
)

// App is the assembled service.
type App struct {
	cfg     *config.Config
	store   *bootstrap.Result
	metrics *metrics.Metrics
	router  *router.Router
	catalog *router.Catalog
	server  *server.Server
	replies *sender.Dispatcher
	tgOut   *sender.Dispatcher
	gateway *provider.Gateway
	gemini  *provider.GeminiProvider
}

// New builds every component. It does not start listeners.
func New(ctx context.Context, cfg *config.Config, store *bootstrap.Result) (*App, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("app: config and storage are required")
	}
	m := metrics.New()
	ua := buildinfo.UserAgent()

	gemini, err := provider.NewGemini(ctx, cfg.Providers.Gemini, option.WithUserAgent(ua))
	if err != nil {
		return nil, err
	}
	providerTimeout := time.Duration(cfg.Providers.TimeoutSeconds) * time.Second
	openai := provider.NewOpenAI(cfg.Providers.OpenAI, netutil.BuildHTTPClient(netutil.ClientOptions{
		Timeout:         providerTimeout,
		ResponseTimeout: providerTimeout,
		UserAgent:       ua,
	}))
	gateway, err := provider.NewGateway(provider.GatewayOptions{
		Timeout:    providerTimeout,
		MaxRetries: cfg.Providers.MaxRetries,
		Backoff:    time.Duration(cfg.Providers.RetryBackoffMS) * time.Millisecond,
		Observe:    m.ObserveProvider,
	}, gemini, openai)
	if err != nil {
		_ = gemini.Close()
		return nil, err
	}

	cat := router.NewCatalog(cfg.Vote.Candidates)
	for _, opt := range cat.Providers {
		if !gateway.Has(opt.ID) {
			_ = gemini.Close()
			return nil, fmt.Errorf("app: menu offers %q but no backend serves it", opt.ID)
		}
	}
	r, err := router.New(router.Options{
		Catalog:  cat,
		Sessions: store.Sessions,
		Tally:    store.Votes,
		Asker:    gateway,
		Observer: m,
	})
	if err != nil {
		_ = gemini.Close()
		return nil, fmt.Errorf("app: router: %w", err)
	}

	replies := sender.NewDispatcher(sender.Options{
		Component:    "line.sender",
		MaxRetries:   2,
		RetryBackoff: 500 * time.Millisecond,
		OnResult:     m.ObserveSend,
	})
	replySender, err := line.NewReplySender(cfg.Line, netutil.BuildHTTPClient(netutil.ClientOptions{
		Timeout:   10 * time.Second,
		UserAgent: ua,
	}), replies)
	if err != nil {
		replies.Close()
		_ = gemini.Close()
		return nil, err
	}

	m.TrackSendFailures("line.sender", replies.ErrorCount)
	if mem, ok := store.Sessions.(*session.Memory); ok {
		m.TrackSessions(mem.Len)
	}

	var tgOut *sender.Dispatcher
	if cfg.TelegramEnabled() {
		tgOut = sender.NewDispatcher(sender.Options{
			Component:  "tg.sender",
			MaxRetries: 2,
			OnResult:   m.ObserveSend,
		})
		m.TrackSendFailures("tg.sender", tgOut.ErrorCount)
	}

	webhook := line.NewHandler(line.HandlerOptions{
		Verifier: line.NewVerifier(cfg.Line.ChannelSecret),
		Router:   r,
		Composer: line.NewComposer(cat),
		Replier:  replySender,
		Observer: m,

		DeliveryTimeout: time.Duration(cfg.HTTP.DeliveryTimeoutSeconds) * time.Second,
	})

	return &App{
		cfg:     cfg,
		store:   store,
		metrics: m,
		router:  r,
		catalog: cat,
		server:  server.New(server.Options{Config: cfg.HTTP, Webhook: webhook, Metrics: m}),
		replies: replies,
		tgOut:   tgOut,
		gateway: gateway,
		gemini:  gemini,
	}, nil
}

// Run serves the LINE webhook and, when configured, the Telegram bot until
// ctx ends or either of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Run(ctx) })

	if a.cfg.TelegramEnabled() {
		g.Go(func() error {
			return telegram.Run(ctx, telegram.RunOptions{
				Config:     a.cfg.Telegram,
				Router:     a.router,
				Catalog:    a.catalog,
				Dispatcher: a.tgOut,
				UserAgent:  buildinfo.UserAgent(),
			})
		})
	}

	logger.Info(ctx, logger.CompApp, "app.ready",
		slog.String("status", "ok"),
		slog.String("version", buildinfo.Version),
		slog.Bool("telegram", a.cfg.TelegramEnabled()),
		slog.String("storage", a.cfg.Storage.Driver),
		slog.Int("candidates", len(a.catalog.Candidates)),
		slog.String("providers", providerList(a.gateway.IDs())),
	)
	return g.Wait()
}

// Close drains pending replies and releases clients and storage.
func (a *App) Close() error {
	a.replies.Close()
	if a.tgOut != nil {
		a.tgOut.Close()
	}
	return errors.Join(a.gemini.Close(), a.store.Close())
}

func providerList(ids []provider.ID) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	return strings.Join(names, ",")
}
