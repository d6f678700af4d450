package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mordorlabs/transcript-pipeline/internal/models"
)

// Stage names, used in StageError and as the failure-step label on metrics.
const (
	StageSummarize = "summarize"
	StageExtract   = "extract"
	StageAnalyze   = "analyze"
	StageAssemble  = "assemble"
)

// StageError identifies which pipeline stage failed for an item, so the
// worker can report the step without string-matching error text.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Processor runs the three stages against one transcript.
type Processor struct {
	summarizer Summarizer
	analyzer   Analyzer
}

// NewProcessor wires the stage implementations.
func NewProcessor(s Summarizer, a Analyzer) *Processor {
	return &Processor{summarizer: s, analyzer: a}
}

// Process runs Summarize, Extract, and Analyze in order and assembles the
// validated ProcessedResult. It aborts on the first stage failure; no partial
// result is ever returned. The transcript is never mutated.
func (p *Processor) Process(ctx context.Context, t *models.Transcript) (*models.ProcessedResult, error) {
	summary, err := p.summarizer.Summarize(ctx, t)
	if err != nil {
		return nil, &StageError{Stage: StageSummarize, Err: err}
	}

	structured := Extract(t)

	analysis, err := p.analyzer.Analyze(ctx, t)
	if err != nil {
		return nil, &StageError{Stage: StageAnalyze, Err: err}
	}

	result := &models.ProcessedResult{
		TranscriptID:        t.TranscriptID,
		Summary:             summary,
		StructuredData:      structured,
		Analysis:            analysis,
		ProcessingTimestamp: time.Now().UTC(),
	}
	if err := result.Validate(); err != nil {
		return nil, &StageError{Stage: StageAssemble, Err: err}
	}
	return result, nil
}
