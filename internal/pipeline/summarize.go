// Package pipeline implements the per-transcript processing stages:
// summarization, structured-field extraction, and analysis. Stages share no
// mutable state across transcripts.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/mordorlabs/transcript-pipeline/internal/models"
)

// Summarizer produces a non-empty summary from a transcript's turn sequence.
// The production implementation calls an external generation service; there
// is no fallback summary, so a failure here dead-letters the item.
type Summarizer interface {
	Summarize(ctx context.Context, t *models.Transcript) (string, error)
}

// StubSummarizer stands in for the generation service. It builds a
// deterministic summary from the turn sequence so the rest of the pipeline
// can be exercised end to end.
// TODO: replace with the LLM-backed summarizer once the generation service
// endpoint is provisioned.
type StubSummarizer struct{}

// Summarize implements Summarizer.
func (StubSummarizer) Summarize(_ context.Context, t *models.Transcript) (string, error) {
	speakers := make([]string, 0, len(t.Participants))
	for role := range t.Participants {
		speakers = append(speakers, role)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Call %s (%ds, %d turns", t.TranscriptID, t.DurationSeconds, len(t.Turns))
	if len(speakers) > 0 {
		fmt.Fprintf(&b, ", %d participants", len(speakers))
	}
	b.WriteString("). ")
	fmt.Fprintf(&b, "Visitor interest: %s; permit status: %s.",
		t.Metadata.VisitorInterestLevel, t.Metadata.MountDoomPermitStatus)

	return b.String(), nil
}
