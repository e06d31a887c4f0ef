package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/askbot/core/logger"
)

// Recover turns a handler panic into a 500 and a log line with the stack.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error(r.Context(), logger.CompHTTP, "http.panic",
				slog.String("status", "error"),
				slog.String("err", fmt.Sprint(rec)),
				slog.String("path", r.URL.Path),
				slog.String("stack", string(debug.Stack())),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// AccessLog writes one line per request. Health and metrics scrapes are
// logged at debug level and sampled.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_code", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("duration", logger.Took(start)),
		}
		switch {
		case r.URL.Path == "/healthz" || r.URL.Path == "/metrics":
			if logger.ShouldSampleDebug() {
				logger.Debug(r.Context(), logger.CompHTTP, "http.request", attrs...)
			}
		case status >= http.StatusInternalServerError:
			logger.Error(r.Context(), logger.CompHTTP, "http.request", append(attrs, slog.String("status", "error"))...)
		case status >= http.StatusBadRequest:
			logger.Warn(r.Context(), logger.CompHTTP, "http.request", append(attrs, slog.String("status", "rejected"))...)
		default:
			logger.Info(r.Context(), logger.CompHTTP, "http.request", append(attrs, slog.String("status", "ok"))...)
		}
	})
}
