// Package transport implements the client for the upstream transcripts API:
// bearer authentication, the long-lived transcript stream, result submission,
// and the auxiliary stats and health endpoints.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/mordorlabs/transcript-pipeline/internal/config"
	"github.com/mordorlabs/transcript-pipeline/internal/models"
	"github.com/mordorlabs/transcript-pipeline/internal/observability"
)

// Client talks to the transcripts API. Unauthenticated operations live here;
// everything requiring a bearer token is a method on Session, so an
// authenticated call without a prior successful Authenticate cannot be
// expressed.
type Client struct {
	baseURL string
	apiKey  string

	http *http.Client
	// The stream connection is long-lived, so it gets a client without a
	// request timeout; cancellation happens through the request context.
	streamHTTP *http.Client

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	log zerolog.Logger
}

// NewClient constructs a Client from service configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:         cfg.APIKey,
		http:           &http.Client{Timeout: time.Duration(cfg.APITimeout) * time.Second},
		streamHTTP:     &http.Client{},
		maxAttempts:    cfg.RetryMaxAttempts,
		initialBackoff: time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		maxBackoff:     time.Duration(cfg.RetryMaxBackoff) * time.Millisecond,
		log:            observability.ComponentLogger("transport"),
	}
}

// Session holds the bearer credential obtained from Authenticate. It is
// immutable after construction and safe for concurrent use.
type Session struct {
	client *Client
	token  string
}

type authResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges the API key for a bearer token. Transient transport
// failures are retried with exponential backoff up to the configured attempt
// cap; exhausting retries, a 4xx response, or a 2xx response without a token
// are permanent failures.
func (c *Client) Authenticate(ctx context.Context) (*Session, error) {
	payload, err := json.Marshal(map[string]string{"api_key": c.apiKey})
	if err != nil {
		return nil, fmt.Errorf("marshal auth payload: %w", err)
	}

	var auth authResponse
	op := func() error {
		err := c.postJSON(ctx, c.baseURL+"/auth", nil, payload, &auth)
		observability.RecordAuthAttempt(err == nil)
		if err != nil {
			if !IsTransient(err) {
				return backoff.Permanent(err)
			}
			c.log.Warn().Err(err).Msg("authentication attempt failed, will retry")
			return err
		}
		if auth.Token == "" {
			return backoff.Permanent(fmt.Errorf("authentication response missing token"))
		}
		return nil
	}

	if err := backoff.Retry(op, c.retryPolicy(ctx)); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	c.log.Info().Msg("authentication succeeded")
	return &Session{client: c, token: auth.Token}, nil
}

// HealthCheck probes the upstream health endpoint. It never returns an error;
// any transport failure reads as unhealthy.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// SubmitProcessed sends one processed result upstream, retrying transient
// failures. The returned map is the upstream acknowledgment body.
func (s *Session) SubmitProcessed(ctx context.Context, result *models.ProcessedResult) (map[string]any, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal processed result: %w", err)
	}

	c := s.client
	start := time.Now()
	var ack map[string]any
	op := func() error {
		err := c.postJSON(ctx, c.baseURL+"/v1/transcripts/process", s.authHeader(), payload, &ack)
		if err != nil {
			if !IsTransient(err) {
				return backoff.Permanent(err)
			}
			c.log.Warn().Err(err).Str("transcript_id", result.TranscriptID).Msg("submit attempt failed, will retry")
			return err
		}
		return nil
	}

	err = backoff.Retry(op, c.retryPolicy(ctx))
	observability.RecordSubmit(err == nil, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", result.TranscriptID, err)
	}

	c.log.Debug().Str("transcript_id", result.TranscriptID).Msg("result submitted")
	return ack, nil
}

// GetStats fetches processing statistics from the upstream API.
func (s *Session) GetStats(ctx context.Context) (map[string]any, error) {
	c := s.client
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/stats", nil)
	if err != nil {
		return nil, err
	}
	for k, v := range s.authHeader() {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var stats map[string]any
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

func (s *Session) authHeader() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.token}
}

// postJSON performs one POST attempt and decodes the response into target.
// The response status is folded into an APIError so callers can classify it.
func (c *Client) postJSON(ctx context.Context, url string, headers map[string]string, payload []byte, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w body=%s", err, string(body))
	}
	return nil
}

// retryPolicy caps exponential backoff at the configured attempt limit and
// stops early on context cancellation.
func (c *Client) retryPolicy(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	bo.MaxInterval = c.maxBackoff
	bo.MaxElapsedTime = 0 // attempts, not wall clock, bound the retry loop
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx)
}
