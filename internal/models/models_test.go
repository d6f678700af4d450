package models

import (
	"encoding/json"
	"testing"
	"time"
)

func validResult() *ProcessedResult {
	return &ProcessedResult{
		TranscriptID: "t1",
		Summary:      "caller asked about permits",
		Analysis: Analysis{
			Sentiment:         0.5,
			InterestLevel:     "high",
			PreparednessLevel: "medium",
			ActionItems:       []string{"follow up"},
		},
		ProcessingTimestamp: time.Now().UTC(),
	}
}

func TestProcessedResult_Validate(t *testing.T) {
	if err := validResult().Validate(); err != nil {
		t.Errorf("Expected valid result, got %v", err)
	}
}

func TestProcessedResult_EmptySummaryRejected(t *testing.T) {
	r := validResult()
	r.Summary = "   "
	if err := r.Validate(); err == nil {
		t.Error("Expected error for whitespace-only summary")
	}
}

func TestProcessedResult_MissingIDRejected(t *testing.T) {
	r := validResult()
	r.TranscriptID = ""
	if err := r.Validate(); err == nil {
		t.Error("Expected error for missing transcript_id")
	}
}

func TestAnalysis_SentimentBounds(t *testing.T) {
	tests := []struct {
		name      string
		sentiment float64
		wantErr   bool
	}{
		{"lower bound", 0.0, false},
		{"upper bound", 1.0, false},
		{"middle", 0.5, false},
		{"below range", -0.1, true},
		{"above range", 1.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analysis{Sentiment: tt.sentiment}
			err := a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() for sentiment %v: err=%v, wantErr=%v", tt.sentiment, err, tt.wantErr)
			}
		})
	}
}

func TestTranscript_Validate(t *testing.T) {
	tr := Transcript{TranscriptID: "t1", SessionID: "s1", DurationSeconds: 10}
	if err := tr.Validate(); err != nil {
		t.Errorf("Expected valid transcript, got %v", err)
	}

	bad := Transcript{SessionID: "s1"}
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for missing transcript_id")
	}

	negative := Transcript{TranscriptID: "t1", SessionID: "s1", DurationSeconds: -5}
	if err := negative.Validate(); err == nil {
		t.Error("Expected error for negative duration")
	}
}

func TestTranscript_DecodesUpstreamJSON(t *testing.T) {
	raw := `{
		"transcript_id": "t1",
		"session_id": "s1",
		"timestamp": "2025-05-01T00:00:00Z",
		"agent_type": "customer_service",
		"duration_seconds": 120,
		"participants": {"agent": "Sam", "customer": "Frodo"},
		"transcript_text": [
			{"speaker": "agent", "text": "Welcome", "timestamp": "2025-05-01T00:00:01Z"}
		],
		"metadata": {
			"questionnaire": {
				"purpose_of_visit_asked": true,
				"experience_assessed": false,
				"risk_acknowledged": true,
				"gear_discussed": false,
				"any_items_to_dispose_of_asked": true
			},
			"visitor_interest_level": "high",
			"potential_issue": "naive",
			"mount_doom_permit_status": "pending",
			"language": "en"
		}
	}`

	var tr Transcript
	if err := json.Unmarshal([]byte(raw), &tr); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if tr.TranscriptID != "t1" {
		t.Errorf("Expected transcript_id 't1', got '%s'", tr.TranscriptID)
	}
	if len(tr.Turns) != 1 || tr.Turns[0].Speaker != "agent" {
		t.Errorf("Expected one agent turn, got %+v", tr.Turns)
	}
	if tr.Metadata.MountDoomPermitStatus != "pending" {
		t.Errorf("Expected permit status 'pending', got '%s'", tr.Metadata.MountDoomPermitStatus)
	}
	if !tr.Metadata.Questionnaire.AnyItemsToDisposeOfAsked {
		t.Error("Expected any_items_to_dispose_of_asked true")
	}
}
