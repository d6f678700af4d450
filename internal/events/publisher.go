// Package events publishes dead-letter records to Kafka so a failure record
// survives the process, closing the durability gap of the in-memory sink.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/mordorlabs/transcript-pipeline/internal/observability"
)

// DeadLetterEvent is the record published for each dead-lettered transcript.
type DeadLetterEvent struct {
	TranscriptID string    `json:"transcript_id"`
	SessionID    string    `json:"session_id"`
	Reason       string    `json:"reason"`
	FailedAt     time.Time `json:"failed_at"`
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// Publisher writes dead-letter events to a Kafka topic. When disabled (or
// constructed from a nil config) it degrades to log-only mode so the drain
// path never depends on a broker being present.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
	log     zerolog.Logger
}

// New creates a publisher from the given configuration.
func New(cfg *Config) *Publisher {
	log := observability.ComponentLogger("events")

	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("kafka disabled, dead-letter events will be logged only")
		p := &Publisher{enabled: false, log: log}
		if cfg != nil {
			p.topic = cfg.Topic
		}
		return p
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("kafka dead-letter publisher initialized")

	return &Publisher{
		writer:  writer,
		topic:   cfg.Topic,
		enabled: true,
		log:     log,
	}
}

// Publish writes one dead-letter event, keyed by transcript_id. Failures are
// logged and returned but never escalate; the pipeline is already shutting
// down when these are emitted.
func (p *Publisher) Publish(ctx context.Context, event DeadLetterEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("transcript_id", event.TranscriptID).Msg("failed to marshal dead-letter event")
		return err
	}

	if !p.enabled || p.writer == nil {
		p.log.Warn().
			Str("transcript_id", event.TranscriptID).
			Str("reason", event.Reason).
			RawJSON("event", payload).
			Msg("dead-letter event (log-only mode)")
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.TranscriptID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte("dead-letter")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error().
			Err(err).
			Str("topic", p.topic).
			Str("transcript_id", event.TranscriptID).
			Msg("failed to publish dead-letter event")
		return err
	}

	observability.RecordDeadLetterPublished()
	return nil
}

// Close closes the Kafka writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
