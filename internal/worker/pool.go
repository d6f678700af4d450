// Package worker runs the fixed-size pool that drains the work queue,
// processes each transcript, persists it, and submits the result upstream.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mordorlabs/transcript-pipeline/internal/models"
	"github.com/mordorlabs/transcript-pipeline/internal/observability"
	"github.com/mordorlabs/transcript-pipeline/internal/pipeline"
	"github.com/mordorlabs/transcript-pipeline/internal/queue"
	"github.com/mordorlabs/transcript-pipeline/internal/resilience"
	"github.com/mordorlabs/transcript-pipeline/internal/storage"
)

// Step names for the non-pipeline failure points, used alongside the
// pipeline stage names in logs and metrics.
const (
	StepStoreRaw       = "store_raw"
	StepStoreProcessed = "store_processed"
	StepSubmit         = "submit"
)

// Submitter sends one processed result upstream. Satisfied by
// *transport.Session.
type Submitter interface {
	SubmitProcessed(ctx context.Context, r *models.ProcessedResult) (map[string]any, error)
}

// Pool is a fixed set of executors over the shared queue and sink. Workers
// share no other mutable state; each exits only after dequeuing a sentinel.
type Pool struct {
	size      int
	queue     *queue.Queue
	sink      *queue.DeadLetterSink
	store     storage.Store
	submitter Submitter
	processor *pipeline.Processor
	breaker   *resilience.CircuitBreaker
	log       zerolog.Logger
}

// NewPool wires a pool of size executors.
func NewPool(
	size int,
	q *queue.Queue,
	sink *queue.DeadLetterSink,
	store storage.Store,
	submitter Submitter,
	processor *pipeline.Processor,
	breaker *resilience.CircuitBreaker,
) *Pool {
	return &Pool{
		size:      size,
		queue:     q,
		sink:      sink,
		store:     store,
		submitter: submitter,
		processor: processor,
		breaker:   breaker,
		log:       observability.ComponentLogger("worker"),
	}
}

// Size returns the number of executors, which is also the number of
// sentinels required to drain the pool.
func (p *Pool) Size() int {
	return p.size
}

// Run launches the executors and blocks until every one has exited. The
// context governs waiting on the queue; items already dequeued run to
// completion regardless of cancellation.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(p.size)
	for i := 0; i < p.size; i++ {
		go func(id int) {
			defer wg.Done()
			p.runWorker(ctx, id)
		}(i)
	}
	wg.Wait()
	p.log.Info().Msg("all workers exited")
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	log := p.log.With().Int("worker", id).Logger()
	for {
		t, ok, err := p.queue.Get(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("worker stopping on cancelled context")
			return
		}
		if !ok {
			log.Debug().Msg("worker received sentinel, exiting")
			return
		}

		// Drain must not abort an item already in flight; only the queue
		// wait above observes cancellation.
		p.handle(context.WithoutCancel(ctx), log, t)
	}
}

// handle runs one transcript through the full sequence. Any failure routes
// the original transcript to the dead-letter sink and the worker moves on;
// one bad item never kills a worker.
func (p *Pool) handle(ctx context.Context, log zerolog.Logger, t *models.Transcript) {
	start := time.Now()
	// One correlation ID per item
	log = observability.WithCorrelationID(log, "").
		With().Str("transcript_id", t.TranscriptID).Logger()

	if err := p.store.SaveRawTranscript(ctx, t); err != nil {
		p.deadLetter(log, t, StepStoreRaw, err)
		return
	}

	result, err := p.processor.Process(ctx, t)
	if err != nil {
		p.deadLetter(log, t, stageOf(err), err)
		return
	}

	// The result is durable before submission is attempted; a crash after
	// this point leaves a stored-but-unsubmitted result, not a lost one.
	if err := p.store.SaveProcessedResult(ctx, result); err != nil {
		p.deadLetter(log, t, StepStoreProcessed, err)
		return
	}

	err = p.breaker.Call(func() error {
		_, err := p.submitter.SubmitProcessed(ctx, result)
		return err
	})
	observability.UpdateCircuitBreakerState("submit", int(p.breaker.GetState()))
	if err != nil {
		p.deadLetter(log, t, StepSubmit, err)
		return
	}

	observability.RecordProcessed(time.Since(start).Seconds())
	log.Info().Dur("took", time.Since(start)).Msg("transcript processed and submitted")
}

func (p *Pool) deadLetter(log zerolog.Logger, t *models.Transcript, step string, err error) {
	log.Error().Err(err).Str("step", step).Msg("processing failed, dead-lettering transcript")
	p.sink.Put(t, fmt.Sprintf("%s: %v", step, err))
	observability.RecordDeadLettered(step)
}

// stageOf extracts the pipeline stage from a processor error.
func stageOf(err error) string {
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return "process"
}
