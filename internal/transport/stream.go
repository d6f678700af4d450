package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mordorlabs/transcript-pipeline/internal/models"
	"github.com/mordorlabs/transcript-pipeline/internal/observability"
)

// maxLineSize bounds a single NDJSON record; transcripts with hundreds of
// turns stay well under this. A record over the bound is discarded through
// its terminating newline and counted as a parse error, like any other
// malformed record.
const maxLineSize = 4 << 20

var errRecordTooLong = errors.New("stream record exceeds size limit")

// Stream is a cancellable subscription to the upstream transcript stream.
// It is single-connection and non-restartable: once Next returns an error
// the stream is finished and the caller decides whether to open a new one.
type Stream struct {
	body      io.ReadCloser
	reader    *bufio.Reader
	cancel    context.CancelFunc
	closeOnce sync.Once
	log       zerolog.Logger
}

// StreamTranscripts opens the persistent streaming connection. The returned
// Stream delivers transcripts one at a time via Next until the connection
// ends or Close is called.
func (s *Session) StreamTranscripts(ctx context.Context) (*Stream, error) {
	c := s.client
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/transcripts/stream", nil)
	if err != nil {
		cancel()
		return nil, err
	}
	for k, v := range s.authHeader() {
		req.Header.Set(k, v)
	}

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	c.log.Info().Msg("transcript stream opened")
	return &Stream{
		body:   resp.Body,
		reader: bufio.NewReaderSize(resp.Body, 64*1024),
		cancel: cancel,
		log:    c.log,
	}, nil
}

// Next returns the next well-formed transcript from the stream. Malformed
// and oversized records are logged and skipped without terminating the
// stream. A clean end of stream returns io.EOF; a connection-level failure
// returns that error.
func (st *Stream) Next() (*models.Transcript, error) {
	for {
		line, err := st.readRecord()
		if errors.Is(err, errRecordTooLong) {
			st.log.Error().Err(err).Msg("oversized record, skipping record")
			observability.RecordStreamParseError()
			continue
		}
		atEOF := errors.Is(err, io.EOF)
		if err != nil && !atEOF {
			return nil, fmt.Errorf("stream read: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if atEOF {
				return nil, io.EOF
			}
			continue
		}

		var t models.Transcript
		if err := json.Unmarshal(line, &t); err != nil {
			st.log.Error().Err(err).Msg("failed to parse transcript, skipping record")
			observability.RecordStreamParseError()
			continue
		}
		if err := t.Validate(); err != nil {
			st.log.Error().Err(err).Msg("invalid transcript, skipping record")
			observability.RecordStreamParseError()
			continue
		}
		if len(t.Participants) == 0 {
			st.log.Warn().Str("transcript_id", t.TranscriptID).Msg("transcript has no participants")
		}

		observability.RecordTranscriptReceived()
		return &t, nil
	}
}

// readRecord accumulates one newline-terminated record bounded by
// maxLineSize. An oversized record is discarded through its newline and
// reported as errRecordTooLong so the caller can skip it and keep reading.
// A final unterminated record is returned alongside io.EOF.
func (st *Stream) readRecord() ([]byte, error) {
	var line []byte
	for {
		chunk, err := st.reader.ReadSlice('\n')
		line = append(line, chunk...)
		if err == bufio.ErrBufferFull {
			if len(line) > maxLineSize {
				if derr := st.discardRecord(); derr != nil && derr != io.EOF {
					return nil, derr
				}
				return nil, errRecordTooLong
			}
			continue
		}
		return line, err
	}
}

// discardRecord drops input through the end of the current record.
func (st *Stream) discardRecord() error {
	for {
		_, err := st.reader.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		return err
	}
}

// Close cancels the subscription and releases the connection. Safe to call
// more than once and concurrently with Next; a blocked Next unblocks with an
// error.
func (st *Stream) Close() {
	st.closeOnce.Do(func() {
		st.cancel()
		st.body.Close()
	})
}
