package storage

import (
	"context"
	"sync"

	"github.com/mordorlabs/transcript-pipeline/internal/models"
)

// MemoryStore is a map-backed Store for tests and local runs without a
// database. It enforces the same unique-key constraint as the real store and
// records save order so tests can assert at-most-once persistence.
type MemoryStore struct {
	mu        sync.Mutex
	raw       map[string]*models.Transcript
	processed map[string]*models.ProcessedResult
	saveOrder []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		raw:       make(map[string]*models.Transcript),
		processed: make(map[string]*models.ProcessedResult),
	}
}

// SaveRawTranscript implements Store.
func (m *MemoryStore) SaveRawTranscript(_ context.Context, t *models.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.raw[t.TranscriptID]; exists {
		return duplicateErr(rawTable, t.TranscriptID)
	}
	m.raw[t.TranscriptID] = t
	return nil
}

// SaveProcessedResult implements Store.
func (m *MemoryStore) SaveProcessedResult(_ context.Context, r *models.ProcessedResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.processed[r.TranscriptID]; exists {
		return duplicateErr(processedTable, r.TranscriptID)
	}
	m.processed[r.TranscriptID] = r
	m.saveOrder = append(m.saveOrder, r.TranscriptID)
	return nil
}

// Ping implements Store; the in-memory store is always reachable.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// RawTranscript returns the stored raw transcript, if any.
func (m *MemoryStore) RawTranscript(id string) (*models.Transcript, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.raw[id]
	return t, ok
}

// ProcessedResult returns the stored processed result, if any.
func (m *MemoryStore) ProcessedResult(id string) (*models.ProcessedResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.processed[id]
	return r, ok
}

// ProcessedSaveOrder returns transcript IDs in the order their results were
// persisted.
func (m *MemoryStore) ProcessedSaveOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.saveOrder))
	copy(out, m.saveOrder)
	return out
}
