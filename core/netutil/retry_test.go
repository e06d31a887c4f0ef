package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("api error %d", int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("ask: %w", context.DeadlineExceeded), false},
		{"net timeout", timeoutErr{}, true},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"url timeout", &url.Error{Op: "Post", URL: "https://x", Err: timeoutErr{}}, true},
		{"429", statusErr(429), true},
		{"503 wrapped", fmt.Errorf("call: %w", statusErr(503)), true},
		{"400", statusErr(400), false},
		{"status text", errors.New("unexpected status code: 502, bad gateway"), true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldRetry(tc.err))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "", Classify(nil))
	assert.Equal(t, "cancelled", Classify(context.Canceled))
	assert.Equal(t, "timeout", Classify(context.DeadlineExceeded))
	assert.Equal(t, "dns", Classify(&net.DNSError{Err: "no such host", Name: "api.line.me"}))
	assert.Equal(t, "dial", Classify(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "http_4xx", Classify(statusErr(401)))
	assert.Equal(t, "http_5xx", Classify(errors.New("telegram: internal error (500)")))
	assert.Equal(t, "unknown", Classify(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 429, HTTPStatus(statusErr(429)))
	assert.Equal(t, 400, HTTPStatus(errors.New("unexpected status code: 400, {\"message\":\"Invalid reply token\"}")))
	assert.Zero(t, HTTPStatus(errors.New("took 1500ms")))
}
