package router

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/askbot/core/provider"
	"github.com/m3rciful/askbot/core/vote"
)

const (
	ruleMenu     = "menu"
	ruleCarousel = "carousel"
	ruleVote     = "vote"
	ruleReset    = "reset_vote"
	ruleSelect   = "select_provider"
	ruleForward  = "forward"
	ruleFallback = "select_first"
)

// rule is one row of the routing table. match sees the normalised text.
type rule struct {
	name  string
	match func(norm string) bool
	apply func(ctx context.Context, r *Router, ev Event, norm string) (Decision, error)
}

func equals(phrase string) func(string) bool {
	want := Normalize(phrase)
	return func(norm string) bool { return norm == want }
}

func always(string) bool { return true }

// buildRules returns the table in priority order; the first match wins.
func buildRules(cat *Catalog) []rule {
	votePrefix := Normalize(cat.VotePrefix) + " "
	selections := make(map[string]provider.ID, len(cat.Providers))
	for _, p := range cat.Providers {
		selections[Normalize(p.SelectPhrase)] = p.ID
	}

	return []rule{
		{
			name:  ruleMenu,
			match: equals(cat.MenuPhrase),
			apply: func(context.Context, *Router, Event, string) (Decision, error) {
				return Decision{Kind: ShowProviderMenu}, nil
			},
		},
		{
			name:  ruleCarousel,
			match: equals(cat.CarouselPhrase),
			apply: func(context.Context, *Router, Event, string) (Decision, error) {
				return Decision{Kind: ShowVoteCarousel}, nil
			},
		},
		{
			name:  ruleVote,
			match: func(norm string) bool {
				rest, ok := strings.CutPrefix(norm, votePrefix)
				return ok && len(strings.Fields(rest)) == 1
			},
			apply: func(ctx context.Context, r *Router, _ Event, norm string) (Decision, error) {
				candidate := strings.TrimPrefix(norm, votePrefix)
				snap, err := r.tally.Increment(ctx, candidate)
				if errors.Is(err, vote.ErrUnknownCandidate) {
					return Decision{Kind: Ack, Text: r.cat.Texts.NoSuchCandidate}, nil
				}
				if err != nil {
					return Decision{}, err
				}
				if r.observer != nil {
					r.observer.ObserveVote(candidate)
				}
				return Decision{Kind: Ack, Text: r.cat.TallySummary(snap)}, nil
			},
		},
		{
			name:  ruleReset,
			match: equals(cat.ResetPhrase),
			apply: func(ctx context.Context, r *Router, _ Event, _ string) (Decision, error) {
				if err := r.tally.Reset(ctx); err != nil {
					return Decision{}, err
				}
				return Decision{Kind: Ack, Text: r.cat.Texts.VotesReset}, nil
			},
		},
		{
			name: ruleSelect,
			match: func(norm string) bool {
				_, ok := selections[norm]
				return ok
			},
			apply: func(ctx context.Context, r *Router, ev Event, norm string) (Decision, error) {
				id := selections[norm]
				if err := r.sessions.SetProvider(ctx, ev.UserID, id); err != nil {
					return Decision{}, err
				}
				opt, _ := r.cat.Provider(id)
				return Decision{Kind: Ack, Text: opt.Selected, Provider: id}, nil
			},
		},
		{
			name:  ruleForward,
			match: always,
			apply: func(ctx context.Context, r *Router, ev Event, _ string) (Decision, error) {
				id, ok, err := r.sessions.Provider(ctx, ev.UserID)
				if err != nil {
					return Decision{}, err
				}
				if !ok {
					return Decision{Kind: Ack, Text: r.cat.Texts.SelectFirst, Rule: ruleFallback}, nil
				}
				return Decision{Kind: ProviderReply, Provider: id, Question: strings.TrimSpace(ev.Text)}, nil
			},
		},
	}
}
