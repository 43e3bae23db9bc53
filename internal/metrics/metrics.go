// Package metrics exposes the server's Prometheus collectors on a private
// registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements transport.MetricsRecorder with Prometheus collectors.
type Recorder struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	challenges       *prometheus.CounterVec
	metadataRequests *prometheus.CounterVec
}

// New registers the collectors, plus the Go runtime and process collectors,
// on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_challenges_total",
			Help: "401 bearer challenges by failure reason.",
		}, []string{"reason"}),
		metadataRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "resource_metadata_requests_total",
			Help: "Protected resource metadata documents served by resource mode.",
		}, []string{"mode"}),
	}

	r.registry.MustRegister(
		r.requests,
		r.duration,
		r.challenges,
		r.metadataRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveRequest counts a finished request and records its latency.
func (r *Recorder) ObserveRequest(method, route string, status int, duration time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncChallenge counts a 401 challenge.
func (r *Recorder) IncChallenge(reason string) {
	r.challenges.WithLabelValues(reason).Inc()
}

// IncMetadataRequest counts a served metadata document.
func (r *Recorder) IncMetadataRequest(mode string) {
	r.metadataRequests.WithLabelValues(mode).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry:          r.registry,
		EnableOpenMetrics: true,
	})
}
