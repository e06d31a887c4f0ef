package telegram

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/askbot/core/router"
	"github.com/m3rciful/askbot/core/telegram/keyboard"
)

const maxMessageRunes = 4096

// Reply is one outbound Telegram message.
type Reply struct {
	Text   string
	Markup *tele.ReplyMarkup
}

// Composer renders router decisions as Telegram messages. Menus become reply
// keyboards whose button texts are the catalog phrases the router matches.
type Composer struct {
	cat *router.Catalog
}

// NewComposer returns a Composer for cat.
func NewComposer(cat *router.Catalog) *Composer {
	return &Composer{cat: cat}
}

// Compose returns the reply for d.
func (c *Composer) Compose(d router.Decision) Reply {
	switch d.Kind {
	case router.ShowProviderMenu:
		phrases := make([]string, 0, len(c.cat.Providers))
		for _, p := range c.cat.Providers {
			phrases = append(phrases, p.SelectPhrase)
		}
		return Reply{
			Text:   c.cat.Texts.MenuTitle,
			Markup: keyboard.ReplyButtons(keyboard.Chunk(phrases, 2)...),
		}
	case router.ShowVoteCarousel:
		return c.voteMenu()
	case router.Ack, router.Passthrough:
		// any plain answer closes a menu keyboard left open
		return Reply{Text: clip(d.Text), Markup: keyboard.RemoveKeyboard()}
	}
	return Reply{Text: c.cat.Texts.GenericFailure, Markup: keyboard.RemoveKeyboard()}
}

func (c *Composer) voteMenu() Reply {
	var b strings.Builder
	b.WriteString(c.cat.Texts.CarouselAlt)
	phrases := make([]string, 0, len(c.cat.Candidates))
	for _, cand := range c.cat.Candidates {
		b.WriteString("\n• ")
		b.WriteString(cand.Label)
		if cand.Description != "" {
			b.WriteString(" - ")
			b.WriteString(cand.Description)
		}
		phrases = append(phrases, c.cat.VotePhrase(cand.ID))
	}
	return Reply{
		Text:   clip(b.String()),
		Markup: keyboard.ReplyButtons(keyboard.Chunk(phrases, 2)...),
	}
}

func clip(s string) string {
	if s == "" {
		return "…"
	}
	r := []rune(s)
	if len(r) <= maxMessageRunes {
		return s
	}
	return string(r[:maxMessageRunes-1]) + "…"
}
