// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transcription_engine"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsStarted   prometheus.Counter
	SessionsActive    prometheus.Gauge
	SessionsCompleted prometheus.Counter
	SessionsCancelled prometheus.Counter
	SessionsErrored   prometheus.Counter
	SessionDuration   prometheus.Histogram

	// Chunk pipeline metrics
	ChunksProcessed       prometheus.Counter
	ChunksFailed          *prometheus.CounterVec
	ChunkLatency          prometheus.Histogram
	AudioBytesReceived    prometheus.Counter
	SegmentsCreated       prometheus.Counter
	LowConfidenceSegments prometheus.Counter

	// Diarization metrics
	SpeakersDetected prometheus.Counter
	SpeakersMerged   prometheus.Counter

	// Model metrics
	ModelSwitches     *prometheus.CounterVec
	ModelLoads        *prometheus.CounterVec
	TranscribeLatency *prometheus.HistogramVec
	TranscribeErrors  *prometheus.CounterVec

	// Hub metrics
	HubSubscribers prometheus.Gauge
	HubPublished   *prometheus.CounterVec
	HubDropped     *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of transcription sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of sessions currently in a non-terminal state",
		}),
		SessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Total number of sessions finalized successfully",
		}),
		SessionsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_cancelled_total",
			Help:      "Total number of sessions cancelled",
		}),
		SessionsErrored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_errored_total",
			Help:      "Total number of sessions ended in error state",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall-clock duration of sessions in seconds",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		}),

		// Chunk pipeline metrics
		ChunksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_processed_total",
			Help:      "Total number of audio chunks processed into segments",
		}),
		ChunksFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_failed_total",
			Help:      "Total number of chunks that failed processing",
		}, []string{"kind"}),
		ChunkLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_latency_seconds",
			Help:      "End-to-end chunk processing latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes accepted into session buffers",
		}),
		SegmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_created_total",
			Help:      "Total number of transcript segments created",
		}),
		LowConfidenceSegments: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_low_confidence_total",
			Help:      "Total number of segments below the session confidence threshold",
		}),

		// Diarization metrics
		SpeakersDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speakers_detected_total",
			Help:      "Total number of distinct speakers detected across sessions",
		}),
		SpeakersMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speakers_merged_total",
			Help:      "Total number of speaker merge operations",
		}),

		// Model metrics
		ModelSwitches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_switches_total",
			Help:      "Total number of fallback model switches",
		}, []string{"from", "to"}),
		ModelLoads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Total number of model load attempts",
		}, []string{"model", "outcome"}),
		TranscribeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcribe_latency_seconds",
			Help:      "Model transcription call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}, []string{"model"}),
		TranscribeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcribe_errors_total",
			Help:      "Total number of transcription call failures",
		}, []string{"model", "kind"}),

		// Hub metrics
		HubSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_subscribers",
			Help:      "Number of currently attached event subscribers",
		}),
		HubPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_events_published_total",
			Help:      "Total number of events published to session channels",
		}, []string{"type"}),
		HubDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_events_dropped_total",
			Help:      "Total number of events dropped for slow subscribers",
		}, []string{"type"}),

		// Kafka publish metrics
		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsStarted.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session reaching a terminal state.
func (m *Metrics) RecordSessionEnd(terminal string, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
	switch terminal {
	case "COMPLETED":
		m.SessionsCompleted.Inc()
	case "CANCELLED":
		m.SessionsCancelled.Inc()
	default:
		m.SessionsErrored.Inc()
	}
}

// RecordChunkProcessed records a chunk successfully turned into a segment.
func (m *Metrics) RecordChunkProcessed(latencySeconds float64) {
	m.ChunksProcessed.Inc()
	m.ChunkLatency.Observe(latencySeconds)
}

// RecordChunkFailed records a chunk that failed processing.
func (m *Metrics) RecordChunkFailed(kind string) {
	m.ChunksFailed.WithLabelValues(kind).Inc()
}

// RecordAudioReceived records audio bytes accepted into a session buffer.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
}

// RecordSegmentCreated records a transcript segment being appended.
func (m *Metrics) RecordSegmentCreated(belowThreshold bool) {
	m.SegmentsCreated.Inc()
	if belowThreshold {
		m.LowConfidenceSegments.Inc()
	}
}

// RecordSpeakerDetected records a newly detected speaker.
func (m *Metrics) RecordSpeakerDetected() {
	m.SpeakersDetected.Inc()
}

// RecordSpeakersMerged records a speaker merge.
func (m *Metrics) RecordSpeakersMerged() {
	m.SpeakersMerged.Inc()
}

// RecordModelSwitch records a fallback switch between models.
func (m *Metrics) RecordModelSwitch(from, to string) {
	m.ModelSwitches.WithLabelValues(from, to).Inc()
}

// RecordModelLoad records a model load attempt.
func (m *Metrics) RecordModelLoad(model string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.ModelLoads.WithLabelValues(model, outcome).Inc()
}

// RecordTranscribe records one transcription call attempt.
func (m *Metrics) RecordTranscribe(model string, err error, kind string, latencySeconds float64) {
	m.TranscribeLatency.WithLabelValues(model).Observe(latencySeconds)
	if err != nil {
		m.TranscribeErrors.WithLabelValues(model, kind).Inc()
	}
}

// RecordHubPublish records an event fanned out to a session channel.
func (m *Metrics) RecordHubPublish(eventType string) {
	m.HubPublished.WithLabelValues(eventType).Inc()
}

// RecordHubDrop records an event dropped for a slow subscriber.
func (m *Metrics) RecordHubDrop(eventType string) {
	m.HubDropped.WithLabelValues(eventType).Inc()
}

// RecordSubscriberAttached records a subscriber joining a session channel.
func (m *Metrics) RecordSubscriberAttached() {
	m.HubSubscribers.Inc()
}

// RecordSubscriberDetached records a subscriber leaving a session channel.
func (m *Metrics) RecordSubscriberDetached() {
	m.HubSubscribers.Dec()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
