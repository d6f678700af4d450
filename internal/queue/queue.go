// Package queue provides the bounded work queue feeding the worker pool and
// the unbounded dead-letter sink collecting failed items.
package queue

import (
	"context"

	"github.com/mordorlabs/transcript-pipeline/internal/models"
	"github.com/mordorlabs/transcript-pipeline/internal/observability"
)

// Queue is a capacity-limited FIFO channel of transcripts. Put blocks while
// the queue is full, which is what backpressures the producer against slow
// workers. A nil transcript is the shutdown sentinel: one is pushed per
// worker and each worker exits after observing one.
type Queue struct {
	ch  chan *models.Transcript
	cap int
}

// New creates a queue with the given capacity.
func New(capacity int) *Queue {
	return &Queue{
		ch:  make(chan *models.Transcript, capacity),
		cap: capacity,
	}
}

// Put enqueues a transcript, blocking while the queue is at capacity. Returns
// the context error if ctx is cancelled while waiting.
func (q *Queue) Put(ctx context.Context, t *models.Transcript) error {
	select {
	case q.ch <- t:
		observability.SetQueueDepth(len(q.ch))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PutSentinel enqueues one shutdown sentinel.
func (q *Queue) PutSentinel(ctx context.Context) error {
	return q.Put(ctx, nil)
}

// Get dequeues the next item, blocking while the queue is empty. The second
// return is false when the item is the shutdown sentinel.
func (q *Queue) Get(ctx context.Context) (*models.Transcript, bool, error) {
	select {
	case t := <-q.ch:
		observability.SetQueueDepth(len(q.ch))
		return t, t != nil, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Len returns the number of items currently queued.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return q.cap
}
