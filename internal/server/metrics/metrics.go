// Package metrics collects and exposes Prometheus metrics for the server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IngestRecorder is the slice of the collector used by the ingest pipeline.
type IngestRecorder interface {
	RecordUpload(kind string, sizeBytes int64)
	RecordThumbnailFailure()
}

// Collector registers and records the server's Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	uploadsTotal    *prometheus.CounterVec
	uploadBytes     prometheus.Counter
	thumbnailFails  prometheus.Counter
}

// NewCollector creates a Collector backed by its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediavault_http_requests_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediavault_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediavault_uploads_total",
			Help: "Successful uploads by media kind.",
		}, []string{"kind"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mediavault_upload_bytes_total",
			Help: "Total bytes accepted for upload.",
		}),
		thumbnailFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mediavault_thumbnail_failures_total",
			Help: "Thumbnail derivations that failed (upload still succeeded).",
		}),
	}

	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.uploadsTotal,
		c.uploadBytes,
		c.thumbnailFails,
	)

	return c
}

// RecordRequest records one finished HTTP request.
func (c *Collector) RecordRequest(statusCode string, durationSeconds float64) {
	c.requestsTotal.WithLabelValues(statusCode).Inc()
	c.requestDuration.Observe(durationSeconds)
}

// RecordUpload records one successfully ingested asset.
func (c *Collector) RecordUpload(kind string, sizeBytes int64) {
	c.uploadsTotal.WithLabelValues(kind).Inc()
	c.uploadBytes.Add(float64(sizeBytes))
}

// RecordThumbnailFailure records a failed best-effort thumbnail derivation.
func (c *Collector) RecordThumbnailFailure() {
	c.thumbnailFails.Inc()
}

// Handler returns the HTTP handler serving the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Nop is an IngestRecorder that discards everything; used in tests.
type Nop struct{}

func (Nop) RecordUpload(string, int64) {}
func (Nop) RecordThumbnailFailure()    {}
