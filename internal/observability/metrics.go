package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	submissionsTotal     *prometheus.CounterVec
	pipelineFailures     *prometheus.CounterVec
	emptyExtractionTotal prometheus.Counter
	pipelineDuration     prometheus.Histogram
	httpRequests         *prometheus.CounterVec
	httpErrors           *prometheus.CounterVec
	httpLatency          *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewer_submissions_total",
			Help: "Total number of submissions processed, by source and outcome.",
		}, []string{"source", "outcome"})

		pipelineFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewer_pipeline_failures_total",
			Help: "Total number of pipeline failures, by failed stage.",
		}, []string{"stage"})

		emptyExtractionTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reviewer_empty_extractions_total",
			Help: "Submissions whose PDF yielded no extractable text.",
		})

		pipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reviewer_pipeline_duration_seconds",
			Help:    "End-to-end processing duration per submission.",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		})

		httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewer_http_requests_total",
			Help: "Total HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"})

		httpErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewer_http_errors_total",
			Help: "HTTP responses with a 4xx or 5xx status.",
		}, []string{"method", "route", "status"})

		httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reviewer_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

		prometheus.MustRegister(submissionsTotal, pipelineFailures, emptyExtractionTotal, pipelineDuration, httpRequests, httpErrors, httpLatency)
	})
}

// Submissions exposes the counter for processed submissions.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// PipelineFailures exposes the per-stage failure counter.
func PipelineFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return pipelineFailures
}

// EmptyExtractions exposes the empty-extraction counter.
func EmptyExtractions() prometheus.Counter {
	RegisterMetrics()
	return emptyExtractionTotal
}

// PipelineDuration exposes the processing duration histogram.
func PipelineDuration() prometheus.Histogram {
	RegisterMetrics()
	return pipelineDuration
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequests
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrors
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatency
}
