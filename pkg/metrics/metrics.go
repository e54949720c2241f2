// Package metrics exposes prometheus instrumentation for the adapter.
// It is optional: an App without a Collector records nothing.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the adapter's metrics. Create one with New and pass
// it to app.WithMetrics.
type Collector struct {
	requests       *prometheus.CounterVec
	failures       *prometheus.CounterVec
	responseBytes  prometheus.Counter
	openWebsockets prometheus.Gauge
}

// New builds a Collector and registers its metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asgineer_requests_total",
			Help: "Connections served, by protocol kind and status (HTTP status or websocket close code).",
		}, []string{"kind", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asgineer_handler_failures_total",
			Help: "Handler failures, by failure class.",
		}, []string{"class"}),
		responseBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "asgineer_response_bytes_total",
			Help: "Body bytes sent across all HTTP responses.",
		}),
		openWebsockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "asgineer_open_websockets",
			Help: "Websocket connections currently open.",
		}),
	}
	reg.MustRegister(c.requests, c.failures, c.responseBytes, c.openWebsockets)
	return c
}

// Request records one finished exchange.
func (c *Collector) Request(kind string, status int) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(kind, strconv.Itoa(status)).Inc()
}

// Failure records one handler failure of the given class
// ("handler_error", "bad_response" or "usage_error").
func (c *Collector) Failure(class string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(class).Inc()
}

// ResponseBytes adds n to the response byte counter.
func (c *Collector) ResponseBytes(n int) {
	if c == nil {
		return
	}
	c.responseBytes.Add(float64(n))
}

// WebsocketOpened / WebsocketClosed track the open-connection gauge.
func (c *Collector) WebsocketOpened() {
	if c == nil {
		return
	}
	c.openWebsockets.Inc()
}

func (c *Collector) WebsocketClosed() {
	if c == nil {
		return
	}
	c.openWebsockets.Dec()
}
