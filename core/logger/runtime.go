package logger

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

type contextKey string

const (
	ctxRID     contextKey = "rid"
	ctxUserID  contextKey = "user_id"
	ctxChannel contextKey = "channel"
	ctxRule    contextKey = "rule"
	ctxLogger  contextKey = "logger"
)

// WithLogger stores log in ctx for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLogger, log)
}

// FromContext returns the logger stored in ctx, L, or slog.Default, whichever is found first.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxLogger).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	if L != nil {
		return L
	}
	return slog.Default()
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts the request correlation id.
func RIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxRID)
}

// WithEventMeta attaches the inbound channel name and the opaque user id.
func WithEventMeta(ctx context.Context, channel, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxChannel, channel)
	return context.WithValue(ctx, ctxUserID, userID)
}

// UserIDFrom extracts the chat-platform user id.
func UserIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxUserID)
}

// ChannelFrom extracts the inbound channel name ("line", "telegram").
func ChannelFrom(ctx context.Context) string {
	return stringValue(ctx, ctxChannel)
}

// WithRule records the routing rule that matched the current event.
func WithRule(ctx context.Context, rule string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if rule == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxRule, rule)
}

// RuleFrom returns the matched routing rule, if any.
func RuleFrom(ctx context.Context) string {
	return stringValue(ctx, ctxRule)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// Sanitize drops control and format runes except tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and truncates the result to max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}

// ShortRID keeps the first 8 characters of long correlation ids for KV output.
func ShortRID(rid string) string {
	rid = strings.TrimSpace(rid)
	if len(rid) <= 12 {
		return rid
	}
	return rid[:8]
}
