package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mordorlabs/transcript-pipeline/internal/models"
)

func sampleTranscript() *models.Transcript {
	return &models.Transcript{
		TranscriptID:    "t1",
		SessionID:       "s1",
		Timestamp:       time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		AgentType:       "customer_service",
		DurationSeconds: 300,
		Participants:    map[string]string{"agent": "A", "customer": "C"},
		Turns: []models.TranscriptTurn{
			{Speaker: "agent", Text: "Hello", Timestamp: time.Date(2025, 5, 1, 0, 0, 1, 0, time.UTC)},
		},
		Metadata: models.Metadata{
			Questionnaire: models.Questionnaire{
				PurposeOfVisitAsked:      true,
				ExperienceAssessed:       true,
				RiskAcknowledged:         true,
				GearDiscussed:            true,
				AnyItemsToDisposeOfAsked: true,
			},
			VisitorInterestLevel:  "high",
			PotentialIssue:        "naive",
			MountDoomPermitStatus: "pending",
			Language:              "en",
		},
	}
}

type failingSummarizer struct{}

func (failingSummarizer) Summarize(context.Context, *models.Transcript) (string, error) {
	return "", errors.New("generation service unavailable")
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(context.Context, *models.Transcript) (models.Analysis, error) {
	return models.Analysis{}, errors.New("scoring service unavailable")
}

type outOfRangeAnalyzer struct{}

func (outOfRangeAnalyzer) Analyze(context.Context, *models.Transcript) (models.Analysis, error) {
	return models.Analysis{Sentiment: 1.5, ActionItems: []string{"x"}}, nil
}

func TestExtract_PermitStatusMapping(t *testing.T) {
	// Pure derivation: no network involved
	structured := Extract(sampleTranscript())

	if structured.VisitorDetails.PermitStatus != "pending" {
		t.Errorf("Expected permit_status 'pending', got '%s'", structured.VisitorDetails.PermitStatus)
	}
	if !structured.VisitorDetails.GearPrepared {
		t.Error("Expected gear_prepared true when gear was discussed")
	}
	if structured.VisitorDetails.RingBearer {
		t.Error("Expected ring_bearer false")
	}
	if structured.VisitorDetails.HazardKnowledge != "unknown" {
		t.Errorf("Expected hazard_knowledge 'unknown', got '%s'", structured.VisitorDetails.HazardKnowledge)
	}
}

func TestExtract_QuestionnaireCompletion(t *testing.T) {
	tr := sampleTranscript()
	tr.Metadata.Questionnaire.RiskAcknowledged = false
	tr.Metadata.Questionnaire.AnyItemsToDisposeOfAsked = false

	structured := Extract(tr)

	qc := structured.QuestionnaireCompletion
	if !qc.PurposeOfVisit || !qc.ExperienceLevel || !qc.GearAssessment {
		t.Error("Expected asked questions to map to completed")
	}
	if qc.RiskAcknowledgment || qc.ItemDisposalIntent {
		t.Error("Expected unasked questions to map to incomplete")
	}
}

func TestStubSummarizer_NonEmpty(t *testing.T) {
	summary, err := StubSummarizer{}.Summarize(context.Background(), sampleTranscript())
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary == "" {
		t.Error("Expected non-empty summary")
	}
}

func TestStubAnalyzer_SentimentBound(t *testing.T) {
	analysis, err := StubAnalyzer{}.Analyze(context.Background(), sampleTranscript())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if analysis.Sentiment < 0.0 || analysis.Sentiment > 1.0 {
		t.Errorf("Sentiment %v outside [0,1]", analysis.Sentiment)
	}
	if analysis.InterestLevel != "high" {
		t.Errorf("Expected interest level 'high', got '%s'", analysis.InterestLevel)
	}
	if len(analysis.ActionItems) == 0 {
		t.Error("Expected at least one action item")
	}
}

func TestProcess_Success(t *testing.T) {
	p := NewProcessor(StubSummarizer{}, StubAnalyzer{})
	tr := sampleTranscript()

	before := time.Now().UTC()
	result, err := p.Process(context.Background(), tr)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.TranscriptID != tr.TranscriptID {
		t.Errorf("Expected transcript_id %s, got %s", tr.TranscriptID, result.TranscriptID)
	}
	if result.Summary == "" {
		t.Error("Expected non-empty summary")
	}
	if result.StructuredData.VisitorDetails.PermitStatus != "pending" {
		t.Errorf("Expected permit_status 'pending', got '%s'", result.StructuredData.VisitorDetails.PermitStatus)
	}
	if result.ProcessingTimestamp.Before(before) {
		t.Error("Expected processing timestamp at or after processing start")
	}
	if result.ProcessingTimestamp.Before(tr.Timestamp) {
		t.Error("Expected processing timestamp not before transcript arrival")
	}
}

func TestProcess_SummarizeFailureAbortsPipeline(t *testing.T) {
	p := NewProcessor(failingSummarizer{}, StubAnalyzer{})

	result, err := p.Process(context.Background(), sampleTranscript())
	if err == nil {
		t.Fatal("Expected error from failing summarizer")
	}
	if result != nil {
		t.Error("Expected no partial result on stage failure")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageSummarize {
		t.Errorf("Expected StageError for summarize, got %v", err)
	}
}

func TestProcess_AnalyzeFailureAbortsPipeline(t *testing.T) {
	p := NewProcessor(StubSummarizer{}, failingAnalyzer{})

	result, err := p.Process(context.Background(), sampleTranscript())
	if err == nil {
		t.Fatal("Expected error from failing analyzer")
	}
	if result != nil {
		t.Error("Expected no partial result on stage failure")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageAnalyze {
		t.Errorf("Expected StageError for analyze, got %v", err)
	}
}

func TestProcess_RejectsOutOfRangeSentiment(t *testing.T) {
	p := NewProcessor(StubSummarizer{}, outOfRangeAnalyzer{})

	result, err := p.Process(context.Background(), sampleTranscript())
	if err == nil {
		t.Fatal("Expected validation error for sentiment 1.5")
	}
	if result != nil {
		t.Error("Expected no result when validation fails")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageAssemble {
		t.Errorf("Expected StageError for assemble, got %v", err)
	}
}
