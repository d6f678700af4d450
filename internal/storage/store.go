// Package storage is the persistence gateway: raw transcripts and processed
// results, each keyed uniquely by transcript_id.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mordorlabs/transcript-pipeline/internal/models"
)

// ErrDuplicateKey is returned when a transcript_id is saved twice. The key is
// expected unique; a duplicate is a constraint violation, never a silent
// merge.
var ErrDuplicateKey = errors.New("duplicate transcript_id")

// Store persists raw transcripts and processed results. The processed result
// must be durable before submission is attempted, so workers call
// SaveProcessedResult ahead of the upstream submit.
type Store interface {
	SaveRawTranscript(ctx context.Context, t *models.Transcript) error
	SaveProcessedResult(ctx context.Context, r *models.ProcessedResult) error
	// Ping verifies the store is reachable; called once at startup and from
	// the readiness probe.
	Ping(ctx context.Context) error
}

// IsDuplicate reports whether an error is the unique-key violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

func duplicateErr(table, id string) error {
	return fmt.Errorf("%s %s: %w", table, id, ErrDuplicateKey)
}
