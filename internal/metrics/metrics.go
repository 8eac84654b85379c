// Package metrics exposes Prometheus metrics for the pipeline and the HTTP
// server on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/sweeper/internal/core"
)

const namespace = "sweeper"

// Recorder collects sweeper metrics. It implements core.Observer.
type Recorder struct {
	registry *prometheus.Registry

	filesProcessed *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	exportBytes    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	batchesBusy  prometheus.Gauge
}

// New creates a Recorder with Go runtime and process collectors attached.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		filesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Files processed, by detected format and outcome.",
		}, []string{"format", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"stage"}),
		exportBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_bytes_total",
			Help:      "Bytes produced by conversions, by target format.",
		}, []string{"format"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		batchesBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batches_in_flight",
			Help:      "Sweep batches currently holding a limiter slot.",
		}),
	}

	r.registry.MustRegister(
		r.filesProcessed,
		r.stageDuration,
		r.exportBytes,
		r.httpRequests,
		r.httpDuration,
		r.batchesBusy,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveStage records how long a pipeline stage took.
func (r *Recorder) ObserveStage(stage core.Stage, d time.Duration) {
	r.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

// ObserveFile counts a finished file.
func (r *Recorder) ObserveFile(format core.Format, outcome string) {
	r.filesProcessed.WithLabelValues(format.String(), outcome).Inc()
}

// ObserveExport adds the size of a converted file.
func (r *Recorder) ObserveExport(format core.Format, size int) {
	r.exportBytes.WithLabelValues(format.String()).Add(float64(size))
}

// ObserveRequest records one HTTP request. route should be the router
// pattern, not the raw path, to keep label cardinality bounded.
func (r *Recorder) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// SetBatchesInFlight reports the limiter's active count.
func (r *Recorder) SetBatchesInFlight(n int) {
	r.batchesBusy.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

var _ core.Observer = (*Recorder)(nil)
