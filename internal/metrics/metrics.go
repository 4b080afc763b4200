// Package metrics exposes Prometheus metrics for the dashboard process.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connection metrics
	ConnectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterdash_connect_attempts_total",
			Help: "Connection attempts by mode and result",
		},
		[]string{"mode", "result"},
	)

	Connected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clusterdash_connected",
			Help: "Whether a cluster connection is open (1 = open, 0 = closed)",
		},
	)

	Probes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterdash_probes_total",
			Help: "Status probes by result",
		},
		[]string{"result"},
	)

	// Action metrics
	ActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clusterdash_action_duration_seconds",
			Help:    "Cluster action duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterdash_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)
)

func init() {
	prometheus.MustRegister(ConnectAttempts)
	prometheus.MustRegister(Connected)
	prometheus.MustRegister(Probes)
	prometheus.MustRegister(ActionDuration)
	prometheus.MustRegister(APIRequestsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for a histogram observation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed seconds on o.
func (t *Timer) ObserveDuration(o prometheus.Observer) {
	o.Observe(t.Duration().Seconds())
}
