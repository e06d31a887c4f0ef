package line

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/askbot/core/logger"
	"github.com/m3rciful/askbot/core/router"
)

const (
	signatureHeader = "X-Line-Signature"
	maxBodyBytes    = 1 << 20
)

// Dispatcher is the router capability the webhook needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev router.Event) router.Decision
}

// Observer counts webhook deliveries by outcome ("ok", "rejected", "malformed").
type Observer interface {
	ObserveWebhook(status string)
}

// HandlerOptions wires a Handler.
type HandlerOptions struct {
	Verifier *Verifier
	Router   Dispatcher
	Composer *Composer
	Replier  Replier
	Observer Observer
	// DeliveryTimeout bounds routing of one delivery; events still pending at
	// the deadline are answered with failure text. Zero disables the bound.
	DeliveryTimeout time.Duration
}

// Handler serves the LINE webhook endpoint.
type Handler struct {
	verifier *Verifier
	parser   Parser
	router   Dispatcher
	composer *Composer
	replier  Replier
	observer Observer
	budget   time.Duration
}

// NewHandler returns the webhook handler.
func NewHandler(opts HandlerOptions) *Handler {
	return &Handler{
		verifier: opts.Verifier,
		router:   opts.Router,
		composer: opts.Composer,
		replier:  opts.Replier,
		observer: opts.Observer,
		budget:   opts.DeliveryTimeout,
	}
}

// ServeHTTP authenticates and decodes the whole delivery before touching any
// state, then routes each text event in order. Anything after authentication
// and decoding is answered 200 so LINE does not redeliver.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := logger.WithRID(r.Context(), uuid.NewString())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.reject(ctx, w, "malformed", err)
		return
	}
	if err := h.verifier.Verify(body, r.Header.Get(signatureHeader)); err != nil {
		h.reject(ctx, w, "rejected", err)
		return
	}
	events, err := h.parser.Parse(body)
	if err != nil {
		h.reject(ctx, w, "malformed", err)
		return
	}

	routeCtx := ctx
	if h.budget > 0 {
		var cancel context.CancelFunc
		routeCtx, cancel = context.WithTimeout(ctx, h.budget)
		defer cancel()
	}
	n := 0
	for ev := range events {
		n++
		h.handleEvent(routeCtx, ev)
	}
	if errors.Is(routeCtx.Err(), context.DeadlineExceeded) {
		logger.Warn(ctx, logger.CompHTTP, "webhook.budget_exceeded",
			slog.String("status", "fail"),
			slog.Duration("budget", h.budget),
		)
	}

	h.observe("ok")
	logger.Info(ctx, logger.CompHTTP, "webhook.handled",
		slog.String("status", "ok"),
		slog.Int("events", n),
		slog.Duration("duration", logger.Took(start)),
	)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func (h *Handler) handleEvent(ctx context.Context, ev router.Event) {
	rid := ev.ID
	if rid == "" {
		rid = uuid.NewString()
	}
	ctx = logger.WithEventMeta(logger.WithRID(ctx, rid), ev.Channel, ev.UserID)

	d := h.router.Dispatch(ctx, ev)
	msgs := h.composer.Compose(d)
	// the reply token outlives the routing budget
	if err := h.replier.Reply(context.WithoutCancel(ctx), ev.ReplyToken, msgs); err != nil {
		logger.Error(ctx, logger.CompLine, "reply.fail",
			slog.String("status", "fail"),
			slog.String("decision", d.Kind.String()),
			slog.String("err", err.Error()),
		)
	}
}

func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, status string, err error) {
	h.observe(status)
	var tooLarge *http.MaxBytesError
	code := http.StatusBadRequest
	if errors.As(err, &tooLarge) {
		code = http.StatusRequestEntityTooLarge
	}
	logger.Warn(ctx, logger.CompHTTP, "webhook.rejected",
		slog.String("status", "rejected"),
		slog.String("reason", status),
		slog.Int("http_code", code),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	http.Error(w, http.StatusText(code), code)
}

func (h *Handler) observe(status string) {
	if h.observer != nil {
		h.observer.ObserveWebhook(status)
	}
}
