// Package models defines the transcript and processed-result data structures
// shared between the transport, pipeline, storage, and worker layers.
package models

import (
	"fmt"
	"strings"
	"time"
)

// TranscriptTurn is a single utterance in a transcript.
type TranscriptTurn struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Questionnaire holds the fixed yes/no intake questions asked during a call.
type Questionnaire struct {
	PurposeOfVisitAsked      bool `json:"purpose_of_visit_asked"`
	ExperienceAssessed       bool `json:"experience_assessed"`
	RiskAcknowledged         bool `json:"risk_acknowledged"`
	GearDiscussed            bool `json:"gear_discussed"`
	AnyItemsToDisposeOfAsked bool `json:"any_items_to_dispose_of_asked"`
}

// Metadata carries the intake questionnaire and categorical fields attached
// to a transcript by the upstream service.
type Metadata struct {
	Questionnaire         Questionnaire `json:"questionnaire"`
	VisitorInterestLevel  string        `json:"visitor_interest_level"`
	PotentialIssue        string        `json:"potential_issue"`
	MountDoomPermitStatus string        `json:"mount_doom_permit_status"`
	Language              string        `json:"language"`
}

// Transcript is one ingested call record. It is immutable once decoded and is
// owned by exactly one worker until it is persisted and submitted, or routed
// to the dead-letter sink.
type Transcript struct {
	TranscriptID    string            `json:"transcript_id"`
	SessionID       string            `json:"session_id"`
	Timestamp       time.Time         `json:"timestamp"`
	AgentType       string            `json:"agent_type"`
	DurationSeconds int               `json:"duration_seconds"`
	Participants    map[string]string `json:"participants"`
	Turns           []TranscriptTurn  `json:"transcript_text"`
	Metadata        Metadata          `json:"metadata"`
}

// Validate checks the structural invariants of an ingested transcript.
func (t *Transcript) Validate() error {
	if t.TranscriptID == "" {
		return fmt.Errorf("transcript missing transcript_id")
	}
	if t.SessionID == "" {
		return fmt.Errorf("transcript %s missing session_id", t.TranscriptID)
	}
	if t.DurationSeconds < 0 {
		return fmt.Errorf("transcript %s has negative duration: %d", t.TranscriptID, t.DurationSeconds)
	}
	return nil
}

// VisitorDetails is the extracted profile of the calling visitor.
type VisitorDetails struct {
	RingBearer      bool   `json:"ring_bearer"`
	GearPrepared    bool   `json:"gear_prepared"`
	HazardKnowledge string `json:"hazard_knowledge"`
	FitnessLevel    string `json:"fitness_level"`
	PermitStatus    string `json:"permit_status"`
}

// QuestionnaireCompletion records which intake questions were covered.
type QuestionnaireCompletion struct {
	PurposeOfVisit     bool `json:"purpose_of_visit"`
	ExperienceLevel    bool `json:"experience_level"`
	RiskAcknowledgment bool `json:"risk_acknowledgment"`
	GearAssessment     bool `json:"gear_assessment"`
	ItemDisposalIntent bool `json:"item_disposal_intent"`
}

// StructuredData is the deterministic extraction output for one transcript.
type StructuredData struct {
	VisitorDetails          VisitorDetails          `json:"visitor_details"`
	QuestionnaireCompletion QuestionnaireCompletion `json:"questionnaire_completion"`
}

// Analysis is the scoring output for one transcript.
type Analysis struct {
	Sentiment         float64  `json:"sentiment"`
	InterestLevel     string   `json:"interest_level"`
	PreparednessLevel string   `json:"preparedness_level"`
	ActionItems       []string `json:"action_items"`
}

// Validate enforces the sentiment bound.
func (a *Analysis) Validate() error {
	if a.Sentiment < 0.0 || a.Sentiment > 1.0 {
		return fmt.Errorf("sentiment %v outside [0.0, 1.0]", a.Sentiment)
	}
	return nil
}

// ProcessedResult is the summary/structured/analysis bundle derived from
// exactly one Transcript. It is only assembled after every pipeline stage
// succeeded; partial results are never persisted or submitted.
type ProcessedResult struct {
	TranscriptID        string         `json:"transcript_id"`
	Summary             string         `json:"summary"`
	StructuredData      StructuredData `json:"structured_data"`
	Analysis            Analysis       `json:"analysis"`
	ProcessingTimestamp time.Time      `json:"processing_timestamp"`
}

// Validate checks the invariants a result must satisfy before it may be
// persisted or submitted.
func (r *ProcessedResult) Validate() error {
	if r.TranscriptID == "" {
		return fmt.Errorf("processed result missing transcript_id")
	}
	if strings.TrimSpace(r.Summary) == "" {
		return fmt.Errorf("processed result %s has empty summary", r.TranscriptID)
	}
	if err := r.Analysis.Validate(); err != nil {
		return fmt.Errorf("processed result %s: %w", r.TranscriptID, err)
	}
	return nil
}
