// Package line adapts the LINE Messaging API to the router: it authenticates
// and decodes webhook deliveries, renders decisions as LINE messages and sends
// replies.
package line

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/m3rciful/askbot/core/router"
)

// Channel is the value of router.Event.Channel for LINE events.
const Channel = "line"

// ErrInvalidSignature is returned for a missing or mismatching X-Line-Signature.
var ErrInvalidSignature = errors.New("line: invalid signature")

// ParseError reports a webhook body that is not a valid callback request.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("line: malformed webhook body: %v", e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// Verifier checks webhook signatures with the channel secret.
type Verifier struct {
	secret string
}

// NewVerifier returns a Verifier keyed by secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify compares the base64 HMAC-SHA256 of body against signature in constant time.
func (v *Verifier) Verify(body []byte, signature string) error {
	if signature == "" || v.secret == "" {
		return ErrInvalidSignature
	}
	if !webhook.ValidateSignature(v.secret, signature, body) {
		return ErrInvalidSignature
	}
	return nil
}

// Parser decodes callback bodies into router events.
type Parser struct{}

// Parse decodes body eagerly so malformed input fails before any event is
// handled. The returned sequence yields text-message events only and can be
// ranged over once; later ranges yield nothing.
func (Parser) Parse(body []byte) (iter.Seq[router.Event], error) {
	var cb webhook.CallbackRequest
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, &ParseError{Err: err}
	}
	var used atomic.Bool
	return func(yield func(router.Event) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		for _, raw := range cb.Events {
			ev, ok := textEvent(raw)
			if !ok {
				continue
			}
			if !yield(ev) {
				return
			}
		}
	}, nil
}

func textEvent(raw webhook.EventInterface) (router.Event, bool) {
	var me *webhook.MessageEvent
	switch e := raw.(type) {
	case webhook.MessageEvent:
		me = &e
	case *webhook.MessageEvent:
		me = e
	default:
		return router.Event{}, false
	}

	var text string
	switch m := me.Message.(type) {
	case webhook.TextMessageContent:
		text = m.Text
	case *webhook.TextMessageContent:
		text = m.Text
	default:
		return router.Event{}, false
	}

	userID := sourceUserID(me.Source)
	if userID == "" || me.ReplyToken == "" {
		return router.Event{}, false
	}
	return router.Event{
		ID:         me.WebhookEventId,
		Channel:    Channel,
		UserID:     userID,
		Text:       text,
		ReplyToken: me.ReplyToken,
	}, true
}

// sourceUserID prefers the sending user; group and room events from users who
// have not consented to profile access fall back to the conversation id.
func sourceUserID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case *webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return orPrefixed(s.UserId, "group:", s.GroupId)
	case *webhook.GroupSource:
		return orPrefixed(s.UserId, "group:", s.GroupId)
	case webhook.RoomSource:
		return orPrefixed(s.UserId, "room:", s.RoomId)
	case *webhook.RoomSource:
		return orPrefixed(s.UserId, "room:", s.RoomId)
	}
	return ""
}

func orPrefixed(userID, prefix, fallback string) string {
	if userID != "" {
		return userID
	}
	if fallback == "" {
		return ""
	}
	return prefix + fallback
}
