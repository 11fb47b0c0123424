package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the speaking test API.
type Metrics struct {
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upload metrics
	UploadsReceived prometheus.Counter
	UploadRejected  *prometheus.CounterVec
	UploadSize      prometheus.Histogram
	AudioDuration   prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Scoring metrics
	ScoringRequests  prometheus.Counter
	ScoringSuccesses prometheus.Counter
	ScoringFailures  prometheus.Counter
	ScoringDuration  prometheus.Histogram
	BandAwarded      prometheus.Histogram

	// Test-level metrics
	TestsCompleted prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "speaking_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "speaking_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"route"}),

		UploadsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speaking_uploads_received_total",
			Help: "Total number of audio uploads received",
		}),
		UploadRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "speaking_uploads_rejected_total",
			Help: "Total number of rejected audio uploads by reason",
		}, []string{"reason"}),
		UploadSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "speaking_upload_size_bytes",
			Help:    "Size of uploaded audio files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KB to ~16MB
		}),
		AudioDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "speaking_audio_duration_seconds",
			Help:    "Duration of uploaded recordings",
			Buckets: prometheus.LinearBuckets(0, 15, 13), // 0s to 3 minutes
		}),

		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speaking_transcription_requests_total",
			Help: "Total number of speech-to-text requests",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speaking_transcription_successes_total",
			Help: "Total number of successful transcriptions",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speaking_transcription_failures_total",
			Help: "Total number of failed transcriptions",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "speaking_transcription_duration_seconds",
			Help:    "Wall time of speech-to-text requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),

		ScoringRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speaking_scoring_requests_total",
			Help: "Total number of scoring requests",
		}),
		ScoringSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speaking_scoring_successes_total",
			Help: "Total number of successful scoring calls",
		}),
		ScoringFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speaking_scoring_failures_total",
			Help: "Total number of failed scoring calls",
		}),
		ScoringDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "speaking_scoring_duration_seconds",
			Help:    "Wall time of scoring requests",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		BandAwarded: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "speaking_band_awarded",
			Help:    "Overall band scores awarded per response",
			Buckets: prometheus.LinearBuckets(0, 0.5, 19), // 0.0 to 9.0
		}),

		TestsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speaking_tests_completed_total",
			Help: "Total number of complete tests scored",
		}),
	}
}

// Middleware records request counts and latencies per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
