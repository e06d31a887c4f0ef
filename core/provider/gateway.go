package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/askbot/core/logger"
)

// GatewayOptions bounds every Ask call.
type GatewayOptions struct {
	// Timeout covers all attempts of one Ask, backoff included.
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	// Observe, when set, receives the outcome of every Ask ("ok" or a Kind).
	Observe func(id ID, outcome string, took time.Duration)
}

// Gateway routes questions to the configured backends.
// It holds no locks while a backend call is in flight.
type Gateway struct {
	opts      GatewayOptions
	providers map[ID]Provider
	order     []ID
}

// NewGateway registers providers in order. Duplicate IDs are rejected.
func NewGateway(opts GatewayOptions, providers ...Provider) (*Gateway, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	g := &Gateway{opts: opts, providers: make(map[ID]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, dup := g.providers[p.ID()]; dup {
			return nil, fmt.Errorf("provider %q registered twice", p.ID())
		}
		g.providers[p.ID()] = p
		g.order = append(g.order, p.ID())
	}
	return g, nil
}

// IDs returns the registered backends in registration order.
func (g *Gateway) IDs() []ID {
	return append([]ID(nil), g.order...)
}

// Has reports whether id is registered.
func (g *Gateway) Has(id ID) bool {
	_, ok := g.providers[id]
	return ok
}

// Ask forwards question to backend id. Any failure is returned as *Error.
func (g *Gateway) Ask(ctx context.Context, id ID, question string) (string, error) {
	p, ok := g.providers[id]
	if !ok {
		return "", &Error{Provider: id, Kind: KindUnknown, Err: ErrNotConfigured}
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	start := time.Now()
	answer, attempts, err := g.attempt(ctx, p, question)
	took := logger.Took(start)

	outcome := "ok"
	attrs := []slog.Attr{
		slog.String("provider", string(id)),
		slog.Int("attempts", attempts),
		slog.Duration("duration", took),
	}
	if err != nil {
		var pe *Error
		errors.As(err, &pe)
		outcome = string(pe.Kind)
		attrs = append(attrs,
			slog.String("status", "fail"),
			slog.String("outcome", outcome),
			slog.String("err", logger.SanitizeLimit(pe.Err.Error(), 256)),
		)
		if pe.Status != 0 {
			attrs = append(attrs, slog.Int("http_code", pe.Status))
		}
		logger.Warn(ctx, logger.CompProvider, "provider.ask", attrs...)
	} else {
		attrs = append(attrs, slog.String("status", "ok"), slog.String("outcome", outcome))
		logger.Info(ctx, logger.CompProvider, "provider.ask", attrs...)
	}
	if g.opts.Observe != nil {
		g.opts.Observe(id, outcome, took)
	}
	return answer, err
}

func (g *Gateway) attempt(ctx context.Context, p Provider, question string) (string, int, error) {
	attempts := g.opts.MaxRetries + 1
	var last *Error
	for n := 1; n <= attempts; n++ {
		answer, err := p.Ask(ctx, question)
		if err == nil {
			if answer = strings.TrimSpace(answer); answer != "" {
				return answer, n, nil
			}
			err = ErrEmptyAnswer
		}
		last = asError(p, err)
		if ctx.Err() != nil {
			last.Kind = KindTimeout
			return "", n, last
		}
		if !last.Retryable() || n == attempts {
			return "", n, last
		}

		delay := g.opts.Backoff * time.Duration(n)
		logger.Debug(ctx, logger.CompProvider, "provider.retry",
			slog.String("provider", string(p.ID())),
			slog.Int("attempt", n),
			slog.Duration("backoff", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			last.Kind = KindTimeout
			return "", n, last
		case <-timer.C:
		}
	}
	return "", attempts, last
}

// statuser is implemented by providers that understand their SDK's error types.
type statuser interface {
	errorStatus(error) (int, bool)
}

func asError(p Provider, err error) *Error {
	var fn statusFunc
	if s, ok := p.(statuser); ok {
		fn = s.errorStatus
	}
	return classify(p.ID(), err, fn)
}
