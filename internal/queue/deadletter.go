package queue

import (
	"sync"
	"time"

	"github.com/mordorlabs/transcript-pipeline/internal/models"
)

// DeadLetter is one failed item: the original transcript, never a partial
// processing result.
type DeadLetter struct {
	Transcript *models.Transcript
	Reason     string
	FailedAt   time.Time
}

// DeadLetterSink is an unbounded FIFO of failed items. Put never blocks on
// consumer pace; the sink is drained exactly once at shutdown for reporting.
// In-memory only: entries are lost if the process crashes before the drain.
type DeadLetterSink struct {
	mu      sync.Mutex
	entries []DeadLetter
	drained bool
}

// NewDeadLetterSink creates an empty sink.
func NewDeadLetterSink() *DeadLetterSink {
	return &DeadLetterSink{}
}

// Put appends a failed transcript with its failure reason. Safe for
// concurrent use by all workers.
func (s *DeadLetterSink) Put(t *models.Transcript, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, DeadLetter{
		Transcript: t,
		Reason:     reason,
		FailedAt:   time.Now().UTC(),
	})
}

// Count returns the number of entries currently held.
func (s *DeadLetterSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Drain returns all entries in insertion order and empties the sink. Later
// calls return nil; the shutdown report runs once.
func (s *DeadLetterSink) Drain() []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drained {
		return nil
	}
	s.drained = true
	entries := s.entries
	s.entries = nil
	return entries
}
