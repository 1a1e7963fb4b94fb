// Package events publishes session outcomes to Kafka: completed
// transcripts for downstream consumers and post-processing jobs for the
// enrichment workers. Publishing is fire-and-forget from the session
// engine's point of view; failures are logged and counted, never
// propagated into the finalize path.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"meeting-transcription-engine/internal/models"
	"meeting-transcription-engine/internal/observability/metrics"
)

// Event type tags carried in message headers and metric labels.
const (
	eventTypeCompleted   = "transcript.completed"
	eventTypePostProcess = "postprocess.job"
)

// TranscriptCompletedEvent is the payload published on the completed topic.
type TranscriptCompletedEvent struct {
	EventType  string                `json:"eventType"`
	SessionID  string                `json:"sessionId"`
	Transcript models.FullTranscript `json:"transcript"`
	Timestamp  int64                 `json:"timestamp"`
}

// PostProcessingJob asks the enrichment workers to pick up a finished
// transcript (summarization, redaction, archival).
type PostProcessingJob struct {
	SessionID    string `json:"sessionId"`
	TranscriptID string `json:"transcriptId"`
	SegmentCount int    `json:"segmentCount"`
	DurationMs   int64  `json:"durationMs"`
	ScheduledAt  int64  `json:"scheduledAt"`
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers          []string
	TopicCompleted   string
	TopicPostProcess string
	Principal        string
	Enabled          bool
}

// Publisher writes session outcomes to their Kafka topics. With Kafka
// disabled it degrades to log-only mode so the rest of the engine never
// needs to care whether a broker is reachable.
type Publisher struct {
	writerCompleted   *kafka.Writer
	writerPostProcess *kafka.Writer
	principal         string
	topicCompleted    string
	topicPostProcess  string
	enabled           bool
	metrics           *metrics.Metrics
}

// New creates a Kafka publisher with separate writers for completed
// transcripts and post-processing jobs.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:        cfg.Principal,
			topicCompleted:   cfg.TopicCompleted,
			topicPostProcess: cfg.TopicPostProcess,
			enabled:          false,
			metrics:          m,
		}
	}

	// Longer dial timeout for DNS resolution inside Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerCompleted := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicCompleted,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerPostProcess := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicPostProcess,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicCompleted", cfg.TopicCompleted).
		Str("topicPostProcess", cfg.TopicPostProcess).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerCompleted:   writerCompleted,
		writerPostProcess: writerPostProcess,
		principal:         cfg.Principal,
		topicCompleted:    cfg.TopicCompleted,
		topicPostProcess:  cfg.TopicPostProcess,
		enabled:           true,
		metrics:           m,
	}
}

// PublishTranscriptCompleted publishes a finalized transcript, keyed by
// session id so consumers see one session's events in order.
func (p *Publisher) PublishTranscriptCompleted(ctx context.Context, sessionID string, transcript models.FullTranscript) error {
	event := TranscriptCompletedEvent{
		EventType:  eventTypeCompleted,
		SessionID:  sessionID,
		Transcript: transcript,
		Timestamp:  time.Now().UnixMilli(),
	}
	return p.publish(ctx, p.writerCompleted, p.topicCompleted, eventTypeCompleted, sessionID, event)
}

// SchedulePostProcessing enqueues an enrichment job for a finished
// transcript.
func (p *Publisher) SchedulePostProcessing(ctx context.Context, job PostProcessingJob) error {
	if job.ScheduledAt == 0 {
		job.ScheduledAt = time.Now().UnixMilli()
	}
	return p.publish(ctx, p.writerPostProcess, p.topicPostProcess, eventTypePostProcess, job.SessionID, job)
}

// publish writes one message to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// Log-only mode
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerCompleted != nil {
		if e := p.writerCompleted.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing completed-topic writer")
			err = e
		}
	}
	if p.writerPostProcess != nil {
		if e := p.writerPostProcess.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing postprocess-topic writer")
			err = e
		}
	}
	return err
}
