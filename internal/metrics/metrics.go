// Package metrics exposes Prometheus metrics for the HTTP surface, the
// OBS connection and macro runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stream_automate"

// Metrics holds the collectors on a private registry, so that several
// instances (one per test) never collide.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	macroRuns       *prometheus.CounterVec
	macroDuration   prometheus.Histogram
	obsConnected    prometheus.Gauge
	obsConnects     *prometheus.CounterVec
	eventClients    prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route pattern, method and status.",
			},
			[]string{"route", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route pattern.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		macroRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "macro_runs_total",
				Help:      "Macro runs by outcome.",
			},
			[]string{"outcome"},
		),
		macroDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "macro_run_duration_seconds",
				Help:      "Wall time of macro runs, including queueing.",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30},
			},
		),
		obsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "obs_connected",
			Help:      "1 while a session to obs-websocket is open.",
		}),
		obsConnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "obs_connection_transitions_total",
				Help:      "OBS connection state changes by target state.",
			},
			[]string{"state"},
		),
		eventClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_clients",
			Help:      "Connected /events websocket clients.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.macroRuns,
		m.macroDuration,
		m.obsConnected,
		m.obsConnects,
		m.eventClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveMacro records one macro run.
func (m *Metrics) ObserveMacro(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.macroRuns.WithLabelValues(outcome).Inc()
	m.macroDuration.Observe(d.Seconds())
}

// SetOBSState records a connection state change.
func (m *Metrics) SetOBSState(state string, connected bool) {
	if m == nil {
		return
	}
	m.obsConnects.WithLabelValues(state).Inc()
	if connected {
		m.obsConnected.Set(1)
	} else {
		m.obsConnected.Set(0)
	}
}

// SetEventClients records the number of /events subscribers.
func (m *Metrics) SetEventClients(n int) {
	if m == nil {
		return
	}
	m.eventClients.Set(float64(n))
}
