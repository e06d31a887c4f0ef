package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/askbot/core/logger"
	"github.com/m3rciful/askbot/core/router"
	"github.com/m3rciful/askbot/core/sender"
	"github.com/m3rciful/askbot/core/telegram/helpers"
)

// Dispatcher is the router capability the bot needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev router.Event) router.Decision
}

// Messenger sends a message; *tele.Bot implements it.
type Messenger interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// Handler feeds text messages through the shared router.
type Handler struct {
	router   Dispatcher
	composer *Composer
	bot      Messenger
	out      *sender.Dispatcher
}

// NewHandler wires a Handler. A nil out sends replies inline.
func NewHandler(r Dispatcher, composer *Composer, bot Messenger, out *sender.Dispatcher) *Handler {
	return &Handler{router: r, composer: composer, bot: bot, out: out}
}

// OnText handles tele.OnText updates.
func (h *Handler) OnText(c tele.Context) error {
	user, chat := c.Sender(), c.Chat()
	if user == nil || chat == nil {
		return nil
	}
	ctx := helpers.BuildContext(c)
	ev := router.Event{
		ID:         helpers.RID(c.Update().ID),
		Channel:    helpers.Channel,
		UserID:     helpers.UserID(user.ID),
		Text:       c.Text(),
		ReplyToken: strconv.FormatInt(chat.ID, 10),
	}
	d := h.router.Dispatch(ctx, ev)
	return h.send(ctx, tele.ChatID(chat.ID), h.composer.Compose(d))
}

func (h *Handler) send(ctx context.Context, to tele.Recipient, r Reply) error {
	run := func(context.Context) error {
		_, err := h.bot.Send(to, r.Text, &tele.SendOptions{ReplyMarkup: r.Markup})
		return err
	}
	if h.out == nil {
		return run(ctx)
	}
	err := h.out.Enqueue(ctx, "send.text", run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, logger.CompTG, "queue.fallback",
			slog.String("status", "retry"),
			slog.String("err", err.Error()),
		)
		return run(ctx)
	}
	return err
}
