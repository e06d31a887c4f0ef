package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/askbot/core/config"
	"github.com/m3rciful/askbot/core/provider"
	"github.com/m3rciful/askbot/core/router"
)

type sentReply struct {
	token string
	msgs  []messaging_api.MessageInterface
}

type recordingReplier struct {
	mu      sync.Mutex
	replies []sentReply
}

func (r *recordingReplier) Reply(_ context.Context, token string, msgs []messaging_api.MessageInterface) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, sentReply{token: token, msgs: msgs})
	return nil
}

func (r *recordingReplier) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rep := range r.replies {
		for _, m := range rep.msgs {
			if tm, ok := m.(*messaging_api.TextMessage); ok {
				out = append(out, tm.Text)
			} else {
				out = append(out, fmt.Sprintf("%T", m))
			}
		}
	}
	return out
}

type failingAsker struct{ calls int }

func (f *failingAsker) Ask(_ context.Context, id provider.ID, _ string) (string, error) {
	f.calls++
	return "", &provider.Error{Provider: id, Kind: provider.KindNetwork, Err: errors.New("connection reset")}
}

// blockingAsker answers only when the caller gives up.
type blockingAsker struct{}

func (blockingAsker) Ask(ctx context.Context, id provider.ID, _ string) (string, error) {
	<-ctx.Done()
	return "", &provider.Error{Provider: id, Kind: provider.KindTimeout, Err: ctx.Err()}
}

type statusCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (s *statusCounter) ObserveWebhook(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = map[string]int{}
	}
	s.counts[status]++
}

type handlerFixture struct {
	h       *Handler
	replies *recordingReplier
	asker   *failingAsker
	stats   *statusCounter
	cat     *router.Catalog
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	cat := router.NewCatalog(config.DefaultCandidates())
	f := &handlerFixture{
		replies: &recordingReplier{},
		asker:   &failingAsker{},
		stats:   &statusCounter{},
		cat:     cat,
	}
	f.h = NewHandler(HandlerOptions{
		Verifier: NewVerifier(testSecret),
		Router:   newTestRouter(t, cat, f.asker),
		Composer: NewComposer(cat),
		Replier:  f.replies,
		Observer: f.stats,
	})
	return f
}

func textEventsBody(user string, texts ...string) string {
	events := make([]string, 0, len(texts))
	for i, text := range texts {
		events = append(events, fmt.Sprintf(`{"type":"message","mode":"active","timestamp":%d,
		"webhookEventId":"evt-%d","deliveryContext":{"isRedelivery":false},"replyToken":"tok-%d",
		"source":{"type":"user","userId":%q},
		"message":{"type":"text","id":"m%d","quoteToken":"q","text":%q}}`, i, i, i, user, i, text))
	}
	return `{"destination":"U0","events":[` + strings.Join(events, ",") + `]}`
}

func post(h http.Handler, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerScenarioWithFailingProvider(t *testing.T) {
	f := newHandlerFixture(t)
	body := textEventsBody("U1", "Hi AI", "使用 Gemini", "what is 2+2")

	rec := post(f.h, body, sign(testSecret, []byte(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	assert.Equal(t, []string{
		"*messaging_api.TemplateMessage",
		"你已選擇 Gemini，請輸入你的問題。",
		"很抱歉，Gemini 回覆失敗。請稍後再試。",
	}, f.replies.texts())
	assert.Equal(t, 1, f.asker.calls)

	f.replies.mu.Lock()
	assert.Equal(t, "tok-2", f.replies.replies[2].token)
	f.replies.mu.Unlock()
	assert.Equal(t, 1, f.stats.counts["ok"])
}

func TestHandlerRejectsBadSignature(t *testing.T) {
	f := newHandlerFixture(t)
	body := textEventsBody("U1", "使用 Gemini")

	for _, sig := range []string{"", sign("wrong", []byte(body))} {
		rec := post(f.h, body, sig)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Empty(t, f.replies.texts(), "rejected deliveries never reach the router")
	assert.Equal(t, 2, f.stats.counts["rejected"])

	// the selection above must not have been recorded
	body = textEventsBody("U1", "hello")
	post(f.h, body, sign(testSecret, []byte(body)))
	assert.Equal(t, []string{f.cat.Texts.SelectFirst}, f.replies.texts())
}

func TestHandlerRejectsMalformedBody(t *testing.T) {
	f := newHandlerFixture(t)
	body := `{"events": [`
	rec := post(f.h, body, sign(testSecret, []byte(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, f.stats.counts["malformed"])
	assert.Empty(t, f.replies.texts())
}

func TestHandlerEmptyDelivery(t *testing.T) {
	f := newHandlerFixture(t)
	body := `{"destination":"U0","events":[]}`
	rec := post(f.h, body, sign(testSecret, []byte(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.replies.texts())
}

func TestHandlerVotesAndReset(t *testing.T) {
	f := newHandlerFixture(t)
	body := textEventsBody("U1", "vote gemini", "vote gemini", "vote gemini", "reset vote", "vote chatgpt")
	rec := post(f.h, body, sign(testSecret, []byte(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	texts := f.replies.texts()
	require.Len(t, texts, 5)
	assert.Equal(t, "目前票數：\nGemini：3 票\nChatGPT：0 票", texts[2])
	assert.Equal(t, f.cat.Texts.VotesReset, texts[3])
	assert.Equal(t, "目前票數：\nGemini：0 票\nChatGPT：1 票", texts[4])
}

func TestHandlerDeliveryTimeoutStillAnswersOK(t *testing.T) {
	cat := router.NewCatalog(config.DefaultCandidates())
	replies := &recordingReplier{}
	h := NewHandler(HandlerOptions{
		Verifier:        NewVerifier(testSecret),
		Router:          newTestRouter(t, cat, blockingAsker{}),
		Composer:        NewComposer(cat),
		Replier:         replies,
		DeliveryTimeout: 50 * time.Millisecond,
	})
	body := textEventsBody("U1", "使用 Gemini", "first question", "second question")

	start := time.Now()
	rec := post(h, body, sign(testSecret, []byte(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Less(t, time.Since(start), 5*time.Second)

	failure := cat.FailureText(provider.Gemini)
	assert.Equal(t, []string{cat.Providers[0].Selected, failure, failure}, replies.texts())
}
