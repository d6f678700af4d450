package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream metrics
	transcriptsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcript_pipeline_transcripts_received_total",
		Help: "Total number of transcripts decoded from the upstream stream",
	})

	streamParseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcript_pipeline_stream_parse_errors_total",
		Help: "Total number of malformed stream records skipped",
	})

	// Queue metrics
	transcriptsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcript_pipeline_transcripts_enqueued_total",
		Help: "Total number of transcripts enqueued by the producer",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcript_pipeline_queue_depth",
		Help: "Current number of items waiting in the bounded work queue",
	})

	// Worker metrics
	transcriptsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcript_pipeline_transcripts_processed_total",
		Help: "Total number of transcripts fully processed and submitted",
	})

	transcriptsDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcript_pipeline_transcripts_dead_lettered_total",
		Help: "Total number of transcripts routed to the dead-letter sink",
	})

	stageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_pipeline_stage_errors_total",
		Help: "Total number of per-item failures by pipeline step",
	}, []string{"step"})

	processDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcript_pipeline_process_duration_seconds",
		Help:    "End-to-end duration of one transcript through a worker in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	})

	// Transport metrics
	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_pipeline_auth_attempts_total",
		Help: "Total number of authentication attempts",
	}, []string{"status"})

	submitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_pipeline_submit_requests_total",
		Help: "Total number of result submissions",
	}, []string{"status"})

	submitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcript_pipeline_submit_latency_seconds",
		Help:    "Latency of result submissions in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	deadLettersPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcript_pipeline_dead_letters_published_total",
		Help: "Total number of dead-letter events published to Kafka",
	})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transcript_pipeline_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})
)

// RecordTranscriptReceived counts a transcript decoded from the stream
func RecordTranscriptReceived() {
	transcriptsReceived.Inc()
}

// RecordStreamParseError counts a malformed stream record
func RecordStreamParseError() {
	streamParseErrors.Inc()
}

// RecordEnqueued counts a transcript handed to the work queue
func RecordEnqueued() {
	transcriptsEnqueued.Inc()
}

// SetQueueDepth updates the work queue depth gauge
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// RecordProcessed counts a transcript that completed the full pipeline
func RecordProcessed(seconds float64) {
	transcriptsProcessed.Inc()
	processDuration.Observe(seconds)
}

// RecordDeadLettered counts a transcript routed to the dead-letter sink,
// labeled by the step that failed
func RecordDeadLettered(step string) {
	transcriptsDeadLettered.Inc()
	stageErrors.WithLabelValues(step).Inc()
}

// RecordAuthAttempt counts one authentication attempt
func RecordAuthAttempt(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	authAttempts.WithLabelValues(status).Inc()
}

// RecordSubmit counts one submission and its latency
func RecordSubmit(success bool, seconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	submitRequests.WithLabelValues(status).Inc()
	submitLatency.Observe(seconds)
}

// RecordDeadLetterPublished counts a dead-letter event delivered to Kafka
func RecordDeadLetterPublished() {
	deadLettersPublished.Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}
