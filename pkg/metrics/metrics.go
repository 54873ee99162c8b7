package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adsync"

// Metrics holds the collectors updated by reconciliation runs and the HTTP API.
type Metrics struct {
	registry *prometheus.Registry

	// ReconcileDuration observes batch reconciliation runs per model
	ReconcileDuration *prometheus.HistogramVec
	// Records counts reconciled records per model and outcome (created, updated)
	Records *prometheus.CounterVec
	// Errors counts failed reconciliation runs per model
	Errors *prometheus.CounterVec
	// LastSuccess is the unix time of the last successful run per model
	LastSuccess *prometheus.GaugeVec
	// DirectoryConnected is 1 while the directory session is live
	DirectoryConnected prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ReconcileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of batch reconciliation runs",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"model"}),
		Records: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_reconciled_total",
			Help:      "Records reconciled from the directory",
		}, []string{"model", "outcome"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_errors_total",
			Help:      "Failed reconciliation runs",
		}, []string{"model"}),
		LastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconcile_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful reconciliation run",
		}, []string{"model"}),
		DirectoryConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "directory_connected",
			Help:      "Whether the directory session is live",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// ObserveRun records a finished reconciliation run of model.
func (m *Metrics) ObserveRun(model string, created, updated int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.ReconcileDuration.WithLabelValues(model).Observe(elapsed.Seconds())
	if err != nil {
		m.Errors.WithLabelValues(model).Inc()
		return
	}
	m.Records.WithLabelValues(model, "created").Add(float64(created))
	m.Records.WithLabelValues(model, "updated").Add(float64(updated))
	m.LastSuccess.WithLabelValues(model).SetToCurrentTime()
}

// SetDirectoryConnected updates the connection gauge.
func (m *Metrics) SetDirectoryConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.DirectoryConnected.Set(1)
	} else {
		m.DirectoryConnected.Set(0)
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
