package line

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/m3rciful/askbot/core/router"
)

// Messaging API field limits, in characters.
const (
	maxTextMessage   = 5000
	maxAltText       = 400
	maxConfirmText   = 240
	maxButtonsText   = 160
	maxButtonsTitled = 60
	maxButtonActions = 4
	maxColumnTitle   = 40
	maxColumnText    = 60
	maxColumns       = 10
	maxActionLabel   = 20
)

// Composer renders router decisions as LINE messages from the same catalog
// the router matches against.
type Composer struct {
	cat *router.Catalog
}

// NewComposer returns a Composer for cat.
func NewComposer(cat *router.Catalog) *Composer {
	return &Composer{cat: cat}
}

// Compose returns the reply for d. ProviderReply is expected to be resolved
// by Router.Dispatch; if one slips through it is answered with the generic
// failure text.
func (c *Composer) Compose(d router.Decision) []messaging_api.MessageInterface {
	switch d.Kind {
	case router.ShowProviderMenu:
		return []messaging_api.MessageInterface{c.providerMenu()}
	case router.ShowVoteCarousel:
		return []messaging_api.MessageInterface{c.voteCarousel()}
	case router.Ack, router.Passthrough:
		return []messaging_api.MessageInterface{text(d.Text)}
	}
	return []messaging_api.MessageInterface{text(c.cat.Texts.GenericFailure)}
}

func text(s string) *messaging_api.TextMessage {
	if s == "" {
		s = "…"
	}
	return &messaging_api.TextMessage{Text: truncate(s, maxTextMessage)}
}

func (c *Composer) providerMenu() *messaging_api.TemplateMessage {
	actions := make([]messaging_api.ActionInterface, 0, len(c.cat.Providers))
	for _, p := range c.cat.Providers {
		actions = append(actions, phraseAction(p.SelectPhrase))
	}

	var tmpl messaging_api.TemplateInterface
	if len(actions) == 2 {
		tmpl = &messaging_api.ConfirmTemplate{
			Text:    truncate(c.cat.Texts.MenuTitle, maxConfirmText),
			Actions: actions,
		}
	} else {
		if len(actions) > maxButtonActions {
			actions = actions[:maxButtonActions]
		}
		tmpl = &messaging_api.ButtonsTemplate{
			Text:    truncate(c.cat.Texts.MenuTitle, maxButtonsText),
			Actions: actions,
		}
	}
	return &messaging_api.TemplateMessage{
		AltText:  truncate(c.cat.Texts.MenuAlt, maxAltText),
		Template: tmpl,
	}
}

func (c *Composer) voteCarousel() *messaging_api.TemplateMessage {
	cands := c.cat.Candidates
	if len(cands) > maxColumns {
		cands = cands[:maxColumns]
	}
	// every column must carry the same fields, so images are all or nothing
	withImages := len(cands) > 0
	for _, cand := range cands {
		if cand.ImageURL == "" {
			withImages = false
			break
		}
	}

	columns := make([]messaging_api.CarouselColumn, 0, len(cands))
	for _, cand := range cands {
		body := cand.Description
		if body == "" {
			body = cand.Label
		}
		col := messaging_api.CarouselColumn{
			Title:   truncate(cand.Label, maxColumnTitle),
			Text:    truncate(body, maxColumnText),
			Actions: []messaging_api.ActionInterface{phraseAction(c.cat.VotePhrase(cand.ID))},
		}
		if withImages {
			col.ThumbnailImageUrl = cand.ImageURL
		}
		columns = append(columns, col)
	}
	return &messaging_api.TemplateMessage{
		AltText:  truncate(c.cat.Texts.CarouselAlt, maxAltText),
		Template: &messaging_api.CarouselTemplate{Columns: columns},
	}
}

// phraseAction sends phrase back as the user's message when tapped.
func phraseAction(phrase string) *messaging_api.MessageAction {
	return &messaging_api.MessageAction{
		Label: truncate(phrase, maxActionLabel),
		Text:  phrase,
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
