// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package s2 looks up papers in bulk against the Semantic Scholar Graph API.
package s2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-enrich/internal/httputil"
	"github.com/pdiddy/paper-enrich/internal/logging"
	"github.com/pdiddy/paper-enrich/internal/metrics"
	"github.com/pdiddy/paper-enrich/pkg/types"
)

// MaxBatchSize is the largest id list the batch endpoint accepts.
const MaxBatchSize = 500

const batchPath = "/paper/batch/"

// ErrChunkFailed marks a chunk whose lookup attempts were all exhausted.
var ErrChunkFailed = errors.New("batch lookup failed")

// APIError is a response the service explicitly rejected, either with an
// error/message body or a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("Semantic Scholar API returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("Semantic Scholar API returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Client issues batch lookups. One Client is used by one run; it is not
// meant for concurrent use.
type Client struct {
	HTTP *http.Client
	Cfg  types.LookupConfig

	// Sleep waits between attempts. Nil uses httputil.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error

	metrics *metrics.Recorder
	log     zerolog.Logger
}

// NewClient returns a Client for cfg. A nil recorder gets a private one.
func NewClient(httpClient *http.Client, cfg types.LookupConfig, rec *metrics.Recorder) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if rec == nil {
		rec = metrics.New()
	}
	return &Client{
		HTTP:    httpClient,
		Cfg:     cfg,
		metrics: rec,
		log:     logging.NewLogger("s2"),
	}
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

// FetchBatch looks up one chunk of namespaced identifiers (e.g.
// "ARXIV:2301.07041") and returns the raw per-identifier results in
// request order. Unknown identifiers come back as JSON null.
//
// An attempt fails on a transport error, a body carrying an "error" or
// "message" field, a non-2xx status, or a body that is not a JSON array.
// Failed attempts are retried after Cfg.RetryDelay up to Cfg.MaxAttempts
// times; once exhausted the error wraps ErrChunkFailed. Context
// cancellation is returned as is.
func (c *Client) FetchBatch(ctx context.Context, ids []string) ([]json.RawMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("max %d IDs per batch, got %d", MaxBatchSize, len(ids))
	}

	body, err := json.Marshal(batchRequest{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("encoding batch request: %w", err)
	}

	policy := httputil.Policy{
		Attempts: c.Cfg.MaxAttempts,
		Delay:    c.Cfg.RetryDelay,
		Sleep:    c.Sleep,
		OnRetry: func(attempt int, err error) {
			c.metrics.Retries.Inc()
			c.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("ids", len(ids)).
				Dur("backoff", c.Cfg.RetryDelay).
				Msg("batch lookup failed, retrying")
		},
	}

	var results []json.RawMessage
	err = httputil.Retry(ctx, policy, func(int) error {
		start := time.Now()
		r, err := c.post(ctx, body)
		c.metrics.RequestTime.Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		results = r
		return nil
	})
	if err != nil {
		if errors.Is(err, httputil.ErrExhausted) {
			c.metrics.Chunks.WithLabelValues(metrics.OutcomeFailed).Inc()
			return nil, fmt.Errorf("%w: %w", ErrChunkFailed, err)
		}
		return nil, err
	}

	c.metrics.Chunks.WithLabelValues(metrics.OutcomeSuccess).Inc()
	if len(results) != len(ids) {
		c.log.Warn().
			Int("requested", len(ids)).
			Int("returned", len(results)).
			Msg("batch response length differs from request")
	}
	return results, nil
}

// Endpoint returns the batch URL including the fields query parameter.
func (c *Client) Endpoint() string {
	base := strings.TrimRight(c.Cfg.BaseURL, "/")
	if base == "" {
		base = types.DefaultBaseURL
	}
	fields := c.Cfg.Fields
	if fields == "" {
		fields = types.DefaultFields
	}
	return base + batchPath + "?" + url.Values{"fields": {fields}}.Encode()
}

func (c *Client) post(ctx context.Context, body []byte) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.Cfg.UserAgent)
	}
	if c.Cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.Cfg.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Semantic Scholar response: %w", err)
	}
	return parseBatchResponse(resp.StatusCode, data)
}

// parseBatchResponse classifies a batch response body. An object with an
// "error" or "message" key is a rejection whatever the status code.
func parseBatchResponse(status int, data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err == nil {
			if msg, ok := rejection(obj); ok {
				return nil, &APIError{StatusCode: status, Message: msg}
			}
		}
	}

	if status < 200 || status > 299 {
		return nil, &APIError{StatusCode: status, Message: truncate(string(trimmed), 300)}
	}

	var results []json.RawMessage
	if err := json.Unmarshal(trimmed, &results); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}
	return results, nil
}

func rejection(obj map[string]json.RawMessage) (string, bool) {
	for _, key := range []string{"error", "message"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s, true
		}
		return key + ": " + string(raw), true
	}
	return "", false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
