package pipeline

import (
	"context"

	"github.com/mordorlabs/transcript-pipeline/internal/models"
)

// Analyzer scores a transcript: sentiment in [0,1], categorical levels, and
// action items. Implementations may block on external services; the contract
// stays a pure Transcript -> Analysis mapping.
type Analyzer interface {
	Analyze(ctx context.Context, t *models.Transcript) (models.Analysis, error)
}

// StubAnalyzer stands in for the real scoring service with a fixed score and
// a single placeholder action item, as the upstream contract expects during
// rollout.
type StubAnalyzer struct{}

// Analyze implements Analyzer.
func (StubAnalyzer) Analyze(_ context.Context, t *models.Transcript) (models.Analysis, error) {
	return models.Analysis{
		Sentiment:         0.5,
		InterestLevel:     t.Metadata.VisitorInterestLevel,
		PreparednessLevel: "medium",
		ActionItems:       []string{"[LLM GENERATED ACTION ITEM]"},
	}, nil
}
