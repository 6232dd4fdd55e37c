// Package metrics provides Prometheus metrics for the bridge
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. Each instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	WebhookEventsTotal *prometheus.CounterVec
	RelaySendsTotal    *prometheus.CounterVec
	BotResponsesTotal  *prometheus.CounterVec
	BotTogglesTotal    *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	BSPRequestDuration prometheus.Histogram
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wabridge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wabridge_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	m.WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wabridge_webhook_events_total",
			Help: "Inbound BSP events by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	m.RelaySendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wabridge_relay_sends_total",
			Help: "Outbound relay attempts by outcome",
		},
		[]string{"outcome"},
	)
	m.BotResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wabridge_bot_responses_total",
			Help: "Registered bot responses by outcome",
		},
		[]string{"outcome"},
	)
	m.BotTogglesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wabridge_bot_toggles_total",
			Help: "Bot flag transitions by source and target state",
		},
		[]string{"source", "active"},
	)
	m.EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wabridge_events_published_total",
			Help: "Domain events handed to publishers by type and outcome",
		},
		[]string{"type", "outcome"},
	)
	m.BSPRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wabridge_bsp_request_duration_seconds",
			Help:    "Duration of BSP API calls in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
	)

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WebhookEventsTotal,
		m.RelaySendsTotal,
		m.BotResponsesTotal,
		m.BotTogglesTotal,
		m.EventsPublished,
		m.BSPRequestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and durations per route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// The helpers below are nil-safe so use cases can run without metrics.

func (m *Metrics) ObserveWebhook(kind, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveRelay(outcome string) {
	if m == nil {
		return
	}
	m.RelaySendsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBotResponse(outcome string) {
	if m == nil {
		return
	}
	m.BotResponsesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBotToggle(source string, active bool) {
	if m == nil {
		return
	}
	m.BotTogglesTotal.WithLabelValues(source, strconv.FormatBool(active)).Inc()
}

func (m *Metrics) ObserveEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) ObserveBSP(d time.Duration) {
	if m == nil {
		return
	}
	m.BSPRequestDuration.Observe(d.Seconds())
}
