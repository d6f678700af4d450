package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const validTranscriptLine = `{"transcript_id": "t1", "session_id": "s1", "timestamp": "2025-05-01T00:00:00Z", "agent_type": "customer_service", "duration_seconds": 10, "participants": {"agent": "A", "customer": "C"}, "transcript_text": [], "metadata": {"questionnaire": {"purpose_of_visit_asked": true, "experience_assessed": true, "risk_acknowledged": true, "gear_discussed": true, "any_items_to_dispose_of_asked": true}, "visitor_interest_level": "high", "potential_issue": "naive", "mount_doom_permit_status": "pending", "language": "en"}}`

func streamServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token": "tok"}`)
	})
	mux.HandleFunc("/v1/transcripts/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
	})
	return httptest.NewServer(mux)
}

func openStream(t *testing.T, server *httptest.Server) *Stream {
	t.Helper()
	client := NewClient(testConfig(server.URL))
	session, err := client.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	stream, err := session.StreamTranscripts(context.Background())
	if err != nil {
		t.Fatalf("StreamTranscripts() failed: %v", err)
	}
	return stream
}

func TestStream_YieldsTranscripts(t *testing.T) {
	server := streamServer(t, validTranscriptLine)
	defer server.Close()

	stream := openStream(t, server)
	defer stream.Close()

	tr, err := stream.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if tr.TranscriptID != "t1" {
		t.Errorf("Expected transcript_id 't1', got '%s'", tr.TranscriptID)
	}
	if tr.Metadata.MountDoomPermitStatus != "pending" {
		t.Errorf("Expected permit status 'pending', got '%s'", tr.Metadata.MountDoomPermitStatus)
	}

	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF at end of stream, got %v", err)
	}
}

func TestStream_SkipsMalformedRecords(t *testing.T) {
	// One malformed line followed by one valid line yields exactly one transcript
	server := streamServer(t, `{not json`, validTranscriptLine)
	defer server.Close()

	stream := openStream(t, server)
	defer stream.Close()

	tr, err := stream.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if tr.TranscriptID != "t1" {
		t.Errorf("Expected transcript_id 't1', got '%s'", tr.TranscriptID)
	}

	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF after the single valid record, got %v", err)
	}
}

func TestStream_SkipsInvalidTranscripts(t *testing.T) {
	// Decodable JSON that fails validation is also skipped
	server := streamServer(t, `{"transcript_id": "", "session_id": "s1"}`, validTranscriptLine)
	defer server.Close()

	stream := openStream(t, server)
	defer stream.Close()

	tr, err := stream.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if tr.TranscriptID != "t1" {
		t.Errorf("Expected transcript_id 't1', got '%s'", tr.TranscriptID)
	}
}

func TestStream_SkipsOversizedRecords(t *testing.T) {
	// A record over the line-size bound is discarded like any other malformed
	// record; the records after it still arrive
	oversized := `{"transcript_id": "huge", "padding": "` + strings.Repeat("x", maxLineSize+1) + `"}`
	server := streamServer(t, oversized, validTranscriptLine)
	defer server.Close()

	stream := openStream(t, server)
	defer stream.Close()

	tr, err := stream.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if tr.TranscriptID != "t1" {
		t.Errorf("Expected transcript_id 't1', got '%s'", tr.TranscriptID)
	}

	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF after the single valid record, got %v", err)
	}
}

func TestStream_SkipsBlankLines(t *testing.T) {
	server := streamServer(t, "", validTranscriptLine, "")
	defer server.Close()

	stream := openStream(t, server)
	defer stream.Close()

	tr, err := stream.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if tr.TranscriptID != "t1" {
		t.Errorf("Expected transcript_id 't1', got '%s'", tr.TranscriptID)
	}
}

func TestStream_CloseUnblocksNext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token": "tok"}`)
	})
	mux.HandleFunc("/v1/transcripts/stream", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Hold the connection open until the client cancels
		<-r.Context().Done()
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	stream := openStream(t, server)

	done := make(chan error, 1)
	go func() {
		_, err := stream.Next()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	stream.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected error from Next after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not unblock after Close")
	}
}
