// Package orchestrator owns the pipeline lifecycle: it opens the transcript
// stream, feeds the work queue, runs the worker pool, and drives the drain
// sequence on stream end or shutdown.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/mordorlabs/transcript-pipeline/internal/events"
	"github.com/mordorlabs/transcript-pipeline/internal/models"
	"github.com/mordorlabs/transcript-pipeline/internal/observability"
	"github.com/mordorlabs/transcript-pipeline/internal/queue"
	"github.com/mordorlabs/transcript-pipeline/internal/worker"
)

// State is the lifecycle phase of a pipeline run.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// TranscriptSource yields transcripts until io.EOF. Satisfied by
// *transport.Stream.
type TranscriptSource interface {
	Next() (*models.Transcript, error)
	Close()
}

// SourceOpener opens the transcript source. Satisfied by wrapping
// Session.StreamTranscripts.
type SourceOpener func(ctx context.Context) (TranscriptSource, error)

// Orchestrator runs one full ingestion cycle: produce from the stream into
// the queue, drain the pool with sentinels, then flush the dead-letter sink.
type Orchestrator struct {
	open      SourceOpener
	queue     *queue.Queue
	sink      *queue.DeadLetterSink
	pool      *worker.Pool
	publisher *events.Publisher

	state atomic.Int32
	log   zerolog.Logger
}

// New wires an orchestrator. The publisher may be in log-only mode but must
// not be nil.
func New(open SourceOpener, q *queue.Queue, sink *queue.DeadLetterSink, pool *worker.Pool, publisher *events.Publisher) *Orchestrator {
	o := &Orchestrator{
		open:      open,
		queue:     q,
		sink:      sink,
		pool:      pool,
		publisher: publisher,
		log:       observability.ComponentLogger("orchestrator"),
	}
	o.state.Store(int32(StateStarting))
	return o
}

// State reports the current lifecycle phase. Safe to call from any goroutine.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	o.log.Info().Str("state", s.String()).Msg("lifecycle transition")
}

// Run executes one pipeline cycle and blocks until shutdown is complete. It
// returns the number of dead-lettered transcripts. Cancelling ctx stops
// ingestion; queued and in-flight items still run to completion before Run
// returns. A non-nil error is returned only for startup failure or an
// unexpected stream error.
func (o *Orchestrator) Run(ctx context.Context) (int, error) {
	// One correlation ID scopes the whole run's lifecycle logs
	o.log = o.log.With().Str("correlation_id", observability.NewCorrelationID()).Logger()
	o.setState(StateStarting)

	src, err := o.open(ctx)
	if err != nil {
		o.setState(StateStopped)
		return 0, fmt.Errorf("failed to open transcript stream: %w", err)
	}

	// Next blocks on a network read, so cancellation is delivered by
	// closing the source.
	streamDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			o.log.Info().Msg("shutdown requested, closing transcript stream")
			src.Close()
		case <-streamDone:
		}
	}()

	// The pool must never observe cancellation directly: during a drain the
	// workers keep consuming queued items until each dequeues a sentinel.
	poolCtx := context.WithoutCancel(ctx)
	poolDone := make(chan struct{})
	go func() {
		o.pool.Run(poolCtx)
		close(poolDone)
	}()

	o.setState(StateRunning)
	streamErr := o.produce(ctx, src)
	close(streamDone)
	src.Close()

	o.setState(StateDraining)
	for i := 0; i < o.pool.Size(); i++ {
		if err := o.queue.PutSentinel(poolCtx); err != nil {
			o.log.Error().Err(err).Msg("failed to enqueue drain sentinel")
		}
	}
	<-poolDone

	deadLetters := o.flushDeadLetters(poolCtx)

	o.setState(StateStopped)
	o.log.Info().
		Int("dead_letters", deadLetters).
		Msg("pipeline run complete")
	return deadLetters, streamErr
}

// produce pulls transcripts from the source into the queue until the stream
// ends, errors, or ctx is cancelled. Enqueueing blocks when the queue is
// full; that backpressure is what keeps ingestion paced to the workers.
func (o *Orchestrator) produce(ctx context.Context, src TranscriptSource) error {
	for {
		t, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				o.log.Info().Msg("transcript stream ended")
				return nil
			}
			if ctx.Err() != nil {
				// The read failed because we closed the stream for shutdown.
				return nil
			}
			return fmt.Errorf("transcript stream failed: %w", err)
		}

		if err := o.queue.Put(ctx, t); err != nil {
			// Shutdown raced the enqueue; the item was dequeued from the
			// stream but never reached a worker.
			o.log.Warn().
				Str("transcript_id", t.TranscriptID).
				Msg("shutdown during enqueue, dead-lettering transcript")
			o.sink.Put(t, "shutdown before enqueue")
			return nil
		}
		observability.RecordEnqueued()
	}
}

// flushDeadLetters drains the sink exactly once and publishes each entry.
func (o *Orchestrator) flushDeadLetters(ctx context.Context) int {
	entries := o.sink.Drain()
	for _, e := range entries {
		o.log.Warn().
			Str("transcript_id", e.Transcript.TranscriptID).
			Str("reason", e.Reason).
			Time("failed_at", e.FailedAt).
			Msg("dead-lettered transcript")

		event := events.DeadLetterEvent{
			TranscriptID: e.Transcript.TranscriptID,
			SessionID:    e.Transcript.SessionID,
			Reason:       e.Reason,
			FailedAt:     e.FailedAt,
		}
		if err := o.publisher.Publish(ctx, event); err != nil {
			o.log.Error().Err(err).Str("transcript_id", e.Transcript.TranscriptID).Msg("failed to publish dead-letter event")
		}
	}
	return len(entries)
}
