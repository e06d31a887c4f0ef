package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/askbot/core/config"
	"github.com/m3rciful/askbot/core/metrics"
)

func testOptions(webhook http.Handler) Options {
	return Options{
		Config:  config.HTTPConfig{Listen: "127.0.0.1", CallbackPath: "/callback", ShutdownTimeoutSeconds: 1},
		Webhook: webhook,
		Metrics: metrics.New(),
	}
}

func TestRoutes(t *testing.T) {
	called := 0
	h := NewRouter(testOptions(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called++
		_, _ = io.WriteString(w, "OK")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader("{}")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, called)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "askbot_http_requests_total")
}

func TestRecover(t *testing.T) {
	h := NewRouter(testOptions(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	opts := testOptions(http.NotFoundHandler())
	opts.Config.Port = port
	s := New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + s.srv.Addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestWriteTimeoutOutlastsDelivery(t *testing.T) {
	cfg := config.HTTPConfig{CallbackPath: "/callback", DeliveryTimeoutSeconds: 150}
	assert.Greater(t, WriteTimeout(cfg), 150*time.Second)
	assert.Equal(t, WriteTimeout(cfg), New(Options{Config: cfg, Webhook: http.NotFoundHandler()}).srv.WriteTimeout)

	assert.Greater(t, WriteTimeout(config.HTTPConfig{}), time.Minute)
}
