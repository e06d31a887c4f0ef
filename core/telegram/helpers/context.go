// Package helpers carries request-scoped values between Telegram middleware and handlers.
package helpers

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/askbot/core/logger"
)

// Channel is the value of router.Event.Channel for Telegram updates.
const Channel = "telegram"

const contextKey = "logger_ctx"

// StoreContext attaches ctx to c for downstream handlers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	if ctx, ok := c.Get(contextKey).(context.Context); ok {
		return ctx, true
	}
	return nil, false
}

// UserID namespaces Telegram ids so they never collide with LINE ids in a shared store.
func UserID(id int64) string {
	if id == 0 {
		return ""
	}
	return "tg:" + strconv.FormatInt(id, 10)
}

// RID is the log correlation id of one update.
func RID(updateID int) string {
	return fmt.Sprintf("tg-%d", updateID)
}

// BuildContext returns the stored context or builds one with rid, channel and user metadata.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}
	var userID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	ctx := logger.WithRID(context.Background(), RID(c.Update().ID))
	ctx = logger.WithEventMeta(ctx, Channel, UserID(userID))
	ctx = logger.WithLogger(ctx, logger.TG)
	StoreContext(c, ctx)
	return ctx
}
