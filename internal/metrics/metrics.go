// Package metrics exposes session and HTTP metrics for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hammamikhairi/cookmode/internal/domain"
	"github.com/hammamikhairi/cookmode/internal/session"
)

const namespace = "cookmode"

// Compile-time interface check.
var _ session.Recorder = (*Collector)(nil)

// Collector records metrics on its own registry so several instances
// (one per test, say) never collide.
type Collector struct {
	registry *prometheus.Registry

	sessionsStarted prometheus.Counter
	sessionsEnded   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	commands        *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	timersCompleted prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a collector with Go runtime and process metrics included.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		sessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Cooking sessions started.",
		}),
		sessionsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Cooking sessions ended, by final status.",
		}, []string{"status"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Cooking sessions currently in progress.",
		}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled, by input source and command.",
		}, []string{"source", "command"}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_dropped_total",
			Help:      "Commands dropped because the session inbox was full.",
		}, []string{"source"}),
		timersCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_completed_total",
			Help:      "Timers that ran to zero.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// SessionStarted implements session.Recorder.
func (c *Collector) SessionStarted() {
	c.sessionsStarted.Inc()
	c.activeSessions.Inc()
}

// SessionEnded implements session.Recorder.
func (c *Collector) SessionEnded(status domain.SessionStatus) {
	c.sessionsEnded.WithLabelValues(status.String()).Inc()
	c.activeSessions.Dec()
}

// CommandHandled implements session.Recorder.
func (c *Collector) CommandHandled(src session.Source, kind domain.CommandKind) {
	c.commands.WithLabelValues(src.String(), kind.String()).Inc()
}

// CommandDropped implements session.Recorder.
func (c *Collector) CommandDropped(src session.Source) {
	c.dropped.WithLabelValues(src.String()).Inc()
}

// TimerCompleted implements session.Recorder.
func (c *Collector) TimerCompleted() {
	c.timersCompleted.Inc()
}

// ObserveHTTP records one served request. route is the route pattern,
// not the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, code int, took time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
