// Package metrics exposes Prometheus counters for webhook traffic, routing
// decisions, votes, provider calls and outbound sends.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/askbot/core/provider"
)

const namespace = "askbot"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	webhooks  *prometheus.CounterVec
	decisions *prometheus.CounterVec
	votes     *prometheus.CounterVec
	providers *prometheus.HistogramVec
	sends     *prometheus.CounterVec
	requests  *prometheus.CounterVec
	latency   *prometheus.SummaryVec
}

// New registers all collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		webhooks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "LINE webhook deliveries by outcome.",
		}, []string{"status"}),
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Routing decisions by channel and kind.",
		}, []string{"channel", "kind"}),
		votes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Votes cast per candidate since start.",
		}, []string{"candidate"}),
		providers: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "AI provider call duration by provider and outcome.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"provider", "outcome"}),
		sends: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_sends_total",
			Help:      "Outbound platform calls by action and status.",
		}, []string{"action", "status"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status_code"}),
		latency: f.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.99: 0.001,
			},
		}, []string{"method", "path", "status_code"}),
	}
}

// ObserveWebhook counts one webhook delivery.
func (m *Metrics) ObserveWebhook(status string) {
	m.webhooks.WithLabelValues(status).Inc()
}

// ObserveDecision counts one routed event.
func (m *Metrics) ObserveDecision(channel, kind string) {
	m.decisions.WithLabelValues(channel, kind).Inc()
}

// ObserveVote counts one accepted vote.
func (m *Metrics) ObserveVote(candidate string) {
	m.votes.WithLabelValues(candidate).Inc()
}

// ObserveProvider records one gateway call; it matches provider.GatewayOptions.Observe.
func (m *Metrics) ObserveProvider(id provider.ID, outcome string, took time.Duration) {
	m.providers.WithLabelValues(string(id), outcome).Observe(took.Seconds())
}

// ObserveSend records one finished outbound job; it matches sender.Options.OnResult.
func (m *Metrics) ObserveSend(action string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.sends.WithLabelValues(action, status).Inc()
}

// TrackSessions exposes the number of users with a selected provider.
func (m *Metrics) TrackSessions(count func() int) prometheus.GaugeFunc {
	return promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions",
		Help:      "Users with a selected provider (memory storage only).",
	}, func() float64 { return float64(count()) })
}

// TrackSendFailures exposes the dispatcher's count of jobs that exhausted
// their retries, labelled by queue.
func (m *Metrics) TrackSendFailures(queue string, count func() uint64) prometheus.CounterFunc {
	return promauto.With(m.reg).NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "outbound_failed_jobs_total",
		Help:        "Outbound jobs dropped after their last retry.",
		ConstLabels: prometheus.Labels{"queue": queue},
	}, func() float64 { return float64(count()) })
}

// Middleware counts HTTP requests by route pattern, so path parameters do not
// explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)
		m.latency.WithLabelValues(r.Method, path, code).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(r.Method, path, code).Inc()
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }
