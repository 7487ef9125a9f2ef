// Package metrics collects Prometheus metrics for the HTTP layer, the follow workflow and push delivery.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Recorder is what services, middleware and the worker record through.
type Recorder interface {
	RecordOperation(op, outcome string)
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordPushSend(outcome string)
	RecordStreamEvent(eventType string)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	operations   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	pushSends    *prometheus.CounterVec
	streamEvents *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialmaps_operations_total",
			Help: "Follow and notification workflow operations by outcome",
		}, []string{"op", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialmaps_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socialmaps_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
		pushSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialmaps_push_sends_total",
			Help: "Push notification deliveries by outcome",
		}, []string{"outcome"}),
		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialmaps_stream_events_total",
			Help: "Notification stream events consumed by type",
		}, []string{"type"}),
	}

	reg.MustRegister(
		c.operations,
		c.httpRequests,
		c.httpDuration,
		c.pushSends,
		c.streamEvents,
	)

	return c
}

func (c *Collector) RecordOperation(op, outcome string) {
	c.operations.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordPushSend(outcome string) {
	c.pushSends.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordStreamEvent(eventType string) {
	c.streamEvents.WithLabelValues(eventType).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used when no registry is wired, mostly in tests.
type Nop struct{}

func (Nop) RecordOperation(string, string)                       {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordPushSend(string)                                {}
func (Nop) RecordStreamEvent(string)                             {}

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
