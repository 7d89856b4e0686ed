package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studyd"

// Metrics holds every collector the daemon exports. A nil *Metrics is valid
// and records nothing, so components can run without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	taskMutations *prometheus.CounterVec
	syncSnapshots prometheus.Counter
	alertsFired   prometheus.Counter
	alertsDropped prometheus.Counter
	gatewayCalls  *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		taskMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_mutations_total",
			Help:      "Task store mutations by store mode, operation and acknowledgement.",
		}, []string{"mode", "op", "ack"}),
		syncSnapshots: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_snapshots_total",
			Help:      "Remote snapshots applied to the task store.",
		}),
		alertsFired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Study alerts shown.",
		}),
		alertsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_dropped_total",
			Help:      "Study alerts not delivered to a listener because its buffer was full.",
		}),
		gatewayCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "Calls to the remote AI endpoints by kind and outcome.",
		}, []string{"kind", "outcome"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.3, 1, 3, 10},
		}, []string{"method", "route"}),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) TaskMutation(mode, op, ack string) {
	if m == nil {
		return
	}
	m.taskMutations.WithLabelValues(mode, op, ack).Inc()
}

func (m *Metrics) SyncSnapshot() {
	if m == nil {
		return
	}
	m.syncSnapshots.Inc()
}

func (m *Metrics) AlertFired() {
	if m == nil {
		return
	}
	m.alertsFired.Inc()
}

func (m *Metrics) AlertDropped() {
	if m == nil {
		return
	}
	m.alertsDropped.Inc()
}

func (m *Metrics) GatewayCall(kind, outcome string) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(kind, outcome).Inc()
}
