package router

import (
	"fmt"
	"strings"

	"github.com/m3rciful/askbot/core/config"
	"github.com/m3rciful/askbot/core/provider"
	"github.com/m3rciful/askbot/core/vote"
)

// ProviderOption is one entry of the provider menu.
type ProviderOption struct {
	ID    provider.ID
	Label string
	// SelectPhrase is both the menu button text and what the router matches.
	SelectPhrase string
	Selected     string
	Failure      string
}

// Candidate is one poll option; its vote phrase is Catalog.VotePhrase(ID).
type Candidate struct {
	ID          string
	Label       string
	Description string
	ImageURL    string
}

// Texts holds every fixed user-facing string.
type Texts struct {
	MenuTitle       string
	MenuAlt         string
	CarouselAlt     string
	SelectFirst     string
	NoSuchCandidate string
	VotesReset      string
	TallyHeader     string
	TallyLine       string
	StoreFailure    string
	GenericFailure  string
}

// Catalog is the single source of phrases. The router matches against it and
// reply composers render from it, which keeps menu labels and recognised
// commands identical.
type Catalog struct {
	MenuPhrase     string
	CarouselPhrase string
	ResetPhrase    string
	// VotePrefix precedes a candidate id, e.g. "vote gemini".
	VotePrefix string

	Providers  []ProviderOption
	Candidates []Candidate
	Texts      Texts
}

// DefaultProviders returns the built-in menu entries.
func DefaultProviders() []ProviderOption {
	return []ProviderOption{
		providerOption(provider.Gemini, "Gemini"),
		providerOption(provider.ChatGPT, "ChatGPT"),
	}
}

func providerOption(id provider.ID, label string) ProviderOption {
	return ProviderOption{
		ID:           id,
		Label:        label,
		SelectPhrase: "使用 " + label,
		Selected:     "你已選擇 " + label + "，請輸入你的問題。",
		Failure:      "很抱歉，" + label + " 回覆失敗。請稍後再試。",
	}
}

// NewCatalog builds the default catalog for the configured candidates.
func NewCatalog(cands []config.CandidateConfig) *Catalog {
	c := &Catalog{
		MenuPhrase:     "hi ai",
		CarouselPhrase: "我要投票",
		ResetPhrase:    "reset vote",
		VotePrefix:     "vote ",
		Providers:      DefaultProviders(),
		Texts: Texts{
			MenuTitle:       "請選擇要使用的 AI 模型",
			MenuAlt:         "請選擇 AI 模型",
			CarouselAlt:     "投票：你最喜歡哪個 AI？",
			SelectFirst:     "請先輸入「hi ai」選擇 AI 模型。",
			NoSuchCandidate: "沒有這個投票選項。",
			VotesReset:      "投票已重設。",
			TallyHeader:     "目前票數：",
			TallyLine:       "%s：%d 票",
			StoreFailure:    "系統忙碌中，請稍後再試。",
			GenericFailure:  "很抱歉，AI 回覆失敗。請稍後再試。",
		},
	}
	for _, cc := range cands {
		c.Candidates = append(c.Candidates, Candidate{
			ID:          cc.ID,
			Label:       cc.Label,
			Description: cc.Description,
			ImageURL:    cc.ImageURL,
		})
	}
	return c
}

// VotePhrase is the exact text that casts a vote for candidate id.
func (c *Catalog) VotePhrase(id string) string {
	return c.VotePrefix + id
}

// CandidateIDs lists candidate ids in display order.
func (c *Catalog) CandidateIDs() []string {
	ids := make([]string, 0, len(c.Candidates))
	for _, cand := range c.Candidates {
		ids = append(ids, cand.ID)
	}
	return ids
}

// Provider looks up the menu entry for id.
func (c *Catalog) Provider(id provider.ID) (ProviderOption, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderOption{}, false
}

// FailureText is the fixed message shown when provider id fails.
func (c *Catalog) FailureText(id provider.ID) string {
	if p, ok := c.Provider(id); ok && p.Failure != "" {
		return p.Failure
	}
	return c.Texts.GenericFailure
}

// TallySummary renders snap in candidate order.
func (c *Catalog) TallySummary(snap vote.Snapshot) string {
	var b strings.Builder
	b.WriteString(c.Texts.TallyHeader)
	for _, cand := range c.Candidates {
		b.WriteByte('\n')
		fmt.Fprintf(&b, c.Texts.TallyLine, cand.Label, snap[cand.ID])
	}
	return b.String()
}

// Validate rejects catalogs where two commands normalise to the same text,
// or where a vote phrase could be mistaken for another command.
func (c *Catalog) Validate() error {
	seen := map[string]string{}
	add := func(what, phrase string) error {
		n := Normalize(phrase)
		if n == "" {
			return fmt.Errorf("catalog: empty %s", what)
		}
		if prev, dup := seen[n]; dup {
			return fmt.Errorf("catalog: %s %q collides with %s", what, phrase, prev)
		}
		seen[n] = what
		return nil
	}
	if err := add("menu phrase", c.MenuPhrase); err != nil {
		return err
	}
	if err := add("carousel phrase", c.CarouselPhrase); err != nil {
		return err
	}
	if err := add("reset phrase", c.ResetPhrase); err != nil {
		return err
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("catalog: no providers")
	}
	for _, p := range c.Providers {
		if err := add("selection phrase", p.SelectPhrase); err != nil {
			return err
		}
	}
	if len(c.Candidates) == 0 {
		return fmt.Errorf("catalog: no vote candidates")
	}
	prefix := Normalize(c.VotePrefix)
	for n, what := range seen {
		if prefix != "" && strings.HasPrefix(n, prefix+" ") {
			return fmt.Errorf("catalog: %s %q starts with the vote prefix", what, n)
		}
	}
	for _, cand := range c.Candidates {
		if err := add("vote phrase", c.VotePhrase(cand.ID)); err != nil {
			return err
		}
	}
	return nil
}

// Normalize trims, lower-cases and collapses inner whitespace.
// It is applied to command matching only, never to forwarded questions.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
