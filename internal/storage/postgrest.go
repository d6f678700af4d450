package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	postgrest "github.com/supabase-community/postgrest-go"

	"github.com/mordorlabs/transcript-pipeline/internal/models"
	"github.com/mordorlabs/transcript-pipeline/internal/observability"
)

const (
	rawTable       = "raw_transcripts"
	processedTable = "processed_results"
)

// rawTranscriptRow maps to the raw_transcripts table: the full transcript
// JSON blob plus receipt time, keyed by transcript_id.
type rawTranscriptRow struct {
	TranscriptID string          `json:"transcript_id"`
	SessionID    string          `json:"session_id"`
	ReceivedAt   time.Time       `json:"received_at"`
	Data         json.RawMessage `json:"data"`
}

// processedResultRow maps to the processed_results table.
type processedResultRow struct {
	TranscriptID string          `json:"transcript_id"`
	ProcessedAt  time.Time       `json:"processed_at"`
	Summary      string          `json:"summary"`
	Structured   json.RawMessage `json:"structured"`
	Analysis     json.RawMessage `json:"analysis"`
}

// PostgrestStore persists to Supabase through PostgREST, one connection per
// operation; no transaction spans pipeline steps.
type PostgrestStore struct {
	client *postgrest.Client
}

// NewPostgrestStore creates a store against the given Supabase project.
func NewPostgrestStore(supabaseURL, serviceKey string) (*PostgrestStore, error) {
	if supabaseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase url and service key are required")
	}

	client := postgrest.NewClient(strings.TrimRight(supabaseURL, "/")+"/rest/v1", "", map[string]string{
		"apikey":        serviceKey,
		"Authorization": "Bearer " + serviceKey,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("failed to initialize postgrest client: %w", client.ClientError)
	}

	logger := observability.ComponentLogger("storage")
	logger.Info().Msg("postgrest store initialized")
	return &PostgrestStore{client: client}, nil
}

// SaveRawTranscript inserts the full transcript blob. A unique-key violation
// on transcript_id surfaces as ErrDuplicateKey.
func (s *PostgrestStore) SaveRawTranscript(ctx context.Context, t *models.Transcript) error {
	blob, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transcript %s: %w", t.TranscriptID, err)
	}

	row := rawTranscriptRow{
		TranscriptID: t.TranscriptID,
		SessionID:    t.SessionID,
		ReceivedAt:   time.Now().UTC(),
		Data:         blob,
	}

	var inserted []rawTranscriptRow
	_, err = s.client.From(rawTable).Insert(row, false, "", "representation", "").ExecuteTo(&inserted)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateErr(rawTable, t.TranscriptID)
		}
		return fmt.Errorf("insert raw transcript %s: %w", t.TranscriptID, err)
	}
	return nil
}

// SaveProcessedResult inserts the processed row; same key discipline as the
// raw table.
func (s *PostgrestStore) SaveProcessedResult(ctx context.Context, r *models.ProcessedResult) error {
	structured, err := json.Marshal(r.StructuredData)
	if err != nil {
		return fmt.Errorf("marshal structured data %s: %w", r.TranscriptID, err)
	}
	analysis, err := json.Marshal(r.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis %s: %w", r.TranscriptID, err)
	}

	row := processedResultRow{
		TranscriptID: r.TranscriptID,
		ProcessedAt:  r.ProcessingTimestamp,
		Summary:      r.Summary,
		Structured:   structured,
		Analysis:     analysis,
	}

	var inserted []processedResultRow
	_, err = s.client.From(processedTable).Insert(row, false, "", "representation", "").ExecuteTo(&inserted)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateErr(processedTable, r.TranscriptID)
		}
		return fmt.Errorf("insert processed result %s: %w", r.TranscriptID, err)
	}
	return nil
}

// Ping issues a minimal read against the raw table to verify reachability.
func (s *PostgrestStore) Ping(ctx context.Context) error {
	var rows []rawTranscriptRow
	_, err := s.client.From(rawTable).Select("transcript_id", "", false).Limit(1, "").ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	return nil
}

// isUniqueViolation matches the PostgREST rendering of a 23505 error.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
