package line

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/m3rciful/askbot/core/config"
	"github.com/m3rciful/askbot/core/logger"
	"github.com/m3rciful/askbot/core/sender"
)

// Replier delivers messages for one reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken string, msgs []messaging_api.MessageInterface) error
}

// ReplySender calls the Messaging API reply endpoint through the outbound
// dispatcher. When the queue is saturated the call is made inline.
type ReplySender struct {
	api  *messaging_api.MessagingApiAPI
	disp *sender.Dispatcher
}

// NewReplySender builds the API client. A nil disp sends every reply inline.
func NewReplySender(cfg config.LineConfig, httpClient *http.Client, disp *sender.Dispatcher) (*ReplySender, error) {
	var opts []messaging_api.MessagingApiAPIOption
	if httpClient != nil {
		opts = append(opts, messaging_api.WithHTTPClient(httpClient))
	}
	if cfg.APIEndpoint != "" {
		opts = append(opts, messaging_api.WithEndpoint(cfg.APIEndpoint))
	}
	api, err := messaging_api.NewMessagingApiAPI(cfg.ChannelAccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("line messaging api: %w", err)
	}
	return &ReplySender{api: api, disp: disp}, nil
}

// Reply schedules the reply. With a dispatcher the returned error only
// reports scheduling; delivery failures are logged by the dispatcher.
func (s *ReplySender) Reply(ctx context.Context, replyToken string, msgs []messaging_api.MessageInterface) error {
	send := func(ctx context.Context) error {
		_, err := s.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
			ReplyToken: replyToken,
			Messages:   msgs,
		})
		return err
	}
	if s.disp == nil {
		return send(ctx)
	}

	err := s.disp.Enqueue(ctx, "reply", send)
	if errors.Is(err, sender.ErrQueueFull) {
		logger.Warn(ctx, logger.CompLine, "reply.queue_full",
			slog.String("status", "retry"),
		)
		return send(ctx)
	}
	return err
}
