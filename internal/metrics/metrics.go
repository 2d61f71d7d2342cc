// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SyedDaiam9101/tl-detector/internal/classifier"
	"github.com/SyedDaiam9101/tl-detector/internal/signal"
)

var (
	// GRPCServerHandlingSeconds is a histogram for gRPC server request latencies
	GRPCServerHandlingSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpc_server_handling_seconds",
			Help:    "Histogram of response latency (seconds) of gRPC that had been application-level handled by the server.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "code"},
	)

	// GRPCRequestsInFlight is the number of unary calls currently being handled
	GRPCRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "grpc_server_requests_in_flight",
			Help: "Number of gRPC unary calls currently being handled.",
		},
		[]string{"method"},
	)

	// InferenceLatencySeconds is a histogram for preprocessing plus inference latency
	InferenceLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tl_inference_latency_seconds",
			Help:    "Histogram of classification latency (seconds) excluding transport overhead.",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"backend"},
	)

	// WarmupLatencySeconds holds the duration of the timed self-test inference
	WarmupLatencySeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tl_warmup_latency_seconds",
			Help: "Latency (seconds) of the inference run right after model warm-up.",
		},
		[]string{"backend"},
	)

	// ClassificationsTotal counts successful classifications by result
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tl_classifications_total",
			Help: "Number of successful classifications by backend and signal.",
		},
		[]string{"backend", "signal"},
	)

	// PublishFailuresTotal counts signals that could not be stored in Redis
	PublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tl_publish_failures_total",
			Help: "Number of classification results that failed to publish.",
		},
	)

	// ReadyStatus is a gauge indicating whether the classifier finished its self-test
	ReadyStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tl_classifier_ready",
			Help: "Readiness of the classifier (1 = ready, 0 = loading).",
		},
	)
)

// RecordGRPCLatency records the latency of a gRPC method call
func RecordGRPCLatency(method, code string, seconds float64) {
	GRPCServerHandlingSeconds.WithLabelValues(method, code).Observe(seconds)
}

// RecordPublishFailure counts a failed publication
func RecordPublishFailure() {
	PublishFailuresTotal.Inc()
}

// SetReady marks the classifier as ready
func SetReady() {
	ReadyStatus.Set(1)
}

// SetNotReady marks the classifier as loading
func SetNotReady() {
	ReadyStatus.Set(0)
}

// Observer feeds classifier events into the package collectors.
type Observer struct{}

var _ classifier.Observer = Observer{}

// SelfTestCompleted records the warm-up latency.
func (Observer) SelfTestCompleted(k classifier.Kind, _ signal.Signal, latency time.Duration) {
	WarmupLatencySeconds.WithLabelValues(string(k)).Set(latency.Seconds())
}

// Classified records a runtime classification.
func (Observer) Classified(k classifier.Kind, s signal.Signal, latency time.Duration) {
	InferenceLatencySeconds.WithLabelValues(string(k)).Observe(latency.Seconds())
	ClassificationsTotal.WithLabelValues(string(k), s.String()).Inc()
}
