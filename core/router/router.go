// Package router decides how to answer one inbound chat message.
//
// Decisions come from a fixed-order rule table evaluated against the
// normalised text: command phrases first, then forwarding to the selected
// provider, then the "select a provider first" fallback. Command phrases are
// checked before forwarding so a user with a provider selected can still open
// the menu or vote.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/askbot/core/logger"
	"github.com/m3rciful/askbot/core/provider"
	"github.com/m3rciful/askbot/core/vote"
)

// Event is one inbound text message, independent of the chat platform.
type Event struct {
	// ID is the platform event id, used as the log correlation id when present.
	ID      string
	Channel string
	UserID  string
	Text    string
	// ReplyToken is the opaque single-use handle needed to answer the event.
	ReplyToken string
}

// Kind enumerates router decisions.
type Kind int

const (
	ShowProviderMenu Kind = iota + 1
	ShowVoteCarousel
	Ack
	ProviderReply
	Passthrough
)

func (k Kind) String() string {
	switch k {
	case ShowProviderMenu:
		return "provider_menu"
	case ShowVoteCarousel:
		return "vote_carousel"
	case Ack:
		return "ack"
	case ProviderReply:
		return "provider_reply"
	case Passthrough:
		return "passthrough"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Decision is the result of routing one event.
type Decision struct {
	Kind Kind
	// Text is the reply for Ack and Passthrough.
	Text string
	// Provider and Question are set for ProviderReply.
	Provider provider.ID
	Question string
	// Rule names the table entry that produced the decision.
	Rule string
}

// Sessions is the subset of session.Store the router needs.
type Sessions interface {
	Provider(ctx context.Context, userID string) (provider.ID, bool, error)
	SetProvider(ctx context.Context, userID string, id provider.ID) error
}

// Asker resolves ProviderReply decisions; *provider.Gateway implements it.
type Asker interface {
	Ask(ctx context.Context, id provider.ID, question string) (string, error)
}

// Observer receives counters; *metrics.Metrics implements it.
type Observer interface {
	ObserveDecision(channel, kind string)
	ObserveVote(candidate string)
}

// Options wires a Router.
type Options struct {
	Catalog  *Catalog
	Sessions Sessions
	Tally    vote.Tally
	Asker    Asker
	Observer Observer
}

// Router is safe for concurrent use; all shared state lives in the stores.
type Router struct {
	cat      *Catalog
	sessions Sessions
	tally    vote.Tally
	asker    Asker
	observer Observer
	rules    []rule
}

// New validates the catalog and builds the rule table.
func New(opts Options) (*Router, error) {
	if opts.Catalog == nil || opts.Sessions == nil || opts.Tally == nil || opts.Asker == nil {
		return nil, errors.New("router: catalog, sessions, tally and asker are required")
	}
	if err := opts.Catalog.Validate(); err != nil {
		return nil, err
	}
	r := &Router{
		cat:      opts.Catalog,
		sessions: opts.Sessions,
		tally:    opts.Tally,
		asker:    opts.Asker,
		observer: opts.Observer,
	}
	r.rules = buildRules(opts.Catalog)
	return r, nil
}

// Catalog returns the phrases the router matches against.
func (r *Router) Catalog() *Catalog { return r.cat }

// Decide classifies ev without calling a provider. Store failures become an Ack.
func (r *Router) Decide(ctx context.Context, ev Event) Decision {
	norm := Normalize(ev.Text)
	for _, rl := range r.rules {
		if !rl.match(norm) {
			continue
		}
		ctx := logger.WithRule(ctx, rl.name)
		d, err := rl.apply(ctx, r, ev, norm)
		if err != nil {
			logger.Error(ctx, logger.CompRouter, "router.store_failed",
				slog.String("status", "error"),
				slog.String("err", err.Error()),
			)
			d = Decision{Kind: Ack, Text: r.cat.Texts.StoreFailure}
		}
		d.Rule = rl.name
		return d
	}
	// the fallback rule always matches
	return Decision{Kind: Ack, Text: r.cat.Texts.SelectFirst, Rule: ruleFallback}
}

// Dispatch decides and resolves ProviderReply through the Asker: an answer
// becomes Passthrough, a provider failure becomes the provider's fixed
// failure text. The returned decision never carries an error.
func (r *Router) Dispatch(ctx context.Context, ev Event) Decision {
	start := time.Now()
	d := r.Decide(ctx, ev)
	if d.Kind == ProviderReply {
		d = r.resolve(ctx, d)
	}
	if r.observer != nil {
		r.observer.ObserveDecision(ev.Channel, d.Kind.String())
	}
	logger.Debug(logger.WithRule(ctx, d.Rule), logger.CompRouter, "router.decision",
		slog.String("decision", d.Kind.String()),
		slog.String("provider", string(d.Provider)),
		slog.Duration("duration", logger.Took(start)),
	)
	return d
}

func (r *Router) resolve(ctx context.Context, d Decision) Decision {
	answer, err := r.asker.Ask(ctx, d.Provider, d.Question)
	if err != nil {
		var pe *provider.Error
		if !errors.As(err, &pe) {
			logger.Error(ctx, logger.CompRouter, "router.provider_error",
				slog.String("provider", string(d.Provider)),
				slog.String("err", err.Error()),
			)
		}
		return Decision{Kind: Ack, Text: r.cat.FailureText(d.Provider), Provider: d.Provider, Rule: d.Rule}
	}
	return Decision{Kind: Passthrough, Text: answer, Provider: d.Provider, Rule: d.Rule}
}
