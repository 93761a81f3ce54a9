// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package s2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-enrich/internal/metrics"
	"github.com/pdiddy/paper-enrich/pkg/types"
)

// pauseRecorder replaces real sleeps in tests.
type pauseRecorder struct {
	pauses []time.Duration
}

func (p *pauseRecorder) sleep(_ context.Context, d time.Duration) error {
	p.pauses = append(p.pauses, d)
	return nil
}

func testClient(t *testing.T, ts *httptest.Server, apiKey string) (*Client, *pauseRecorder, *metrics.Recorder) {
	t.Helper()
	cfg := types.DefaultEnrichConfig().LookupConfig
	cfg.BaseURL = ts.URL
	cfg.APIKey = apiKey

	rec := metrics.New()
	c := NewClient(ts.Client(), cfg, rec)
	p := &pauseRecorder{}
	c.Sleep = p.sleep
	return c, p, rec
}

func TestFetchBatchRequestShape(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotFields string
		gotKey    string
		gotCT     string
		gotBody   map[string][]string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotFields = r.URL.Query().Get("fields")
		gotKey = r.Header.Get("x-api-key")
		gotCT = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		fmt.Fprint(w, `[{"paperId":"p1"},null]`)
	}))
	defer ts.Close()

	c, _, _ := testClient(t, ts, "secret-key")
	results, err := c.FetchBatch(context.Background(), []string{"ARXIV:1001.0001", "ARXIV:1002.0002"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/paper/batch/", gotPath)
	assert.Equal(t, "url,year,citationCount,tldr", gotFields)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, []string{"ARXIV:1001.0001", "ARXIV:1002.0002"}, gotBody["ids"])
	assert.JSONEq(t, `{"paperId":"p1"}`, string(results[0]))
	assert.Equal(t, "null", string(results[1]))
}

func TestFetchBatchOmitsEmptyAPIKey(t *testing.T) {
	var hasKey bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasKey = r.Header["X-Api-Key"]
		fmt.Fprint(w, `[]`)
	}))
	defer ts.Close()

	c, _, _ := testClient(t, ts, "")
	_, err := c.FetchBatch(context.Background(), []string{"ARXIV:1"})
	require.NoError(t, err)
	assert.False(t, hasKey)
}

func TestFetchBatchRetriesThenSucceeds(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"message":"Too Many Requests"}`)
			return
		}
		fmt.Fprint(w, `[{"paperId":"p1"}]`)
	}))
	defer ts.Close()

	c, pauses, rec := testClient(t, ts, "")
	results, err := c.FetchBatch(context.Background(), []string{"ARXIV:1"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{types.DefaultRetryDelay}, pauses.pauses)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Retries))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Chunks.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestFetchBatchExhaustsAfterThreeAttempts(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"error":"Internal Server Error"}`)
	}))
	defer ts.Close()

	c, pauses, rec := testClient(t, ts, "")
	_, err := c.FetchBatch(context.Background(), []string{"ARXIV:1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChunkFailed)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Internal Server Error", apiErr.Message)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{40 * time.Second, 40 * time.Second}, pauses.pauses)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.Chunks.WithLabelValues(metrics.OutcomeFailed)))
}

func TestFetchBatchNetworkErrorIsRetried(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	ts.Close() // every request fails to connect

	c, pauses, _ := testClient(t, ts, "")
	_, err := c.FetchBatch(context.Background(), []string{"ARXIV:1"})
	assert.ErrorIs(t, err, ErrChunkFailed)
	assert.Len(t, pauses.pauses, 2)
}

func TestFetchBatchContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"message":"slow down"}`)
	}))
	defer ts.Close()

	c, _, _ := testClient(t, ts, "")
	c.Sleep = nil
	c.Cfg.RetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchBatch(ctx, []string{"ARXIV:1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrChunkFailed)
}

func TestFetchBatchRejectsOversizedChunk(t *testing.T) {
	c := NewClient(http.DefaultClient, types.DefaultEnrichConfig().LookupConfig, nil)
	ids := make([]string, MaxBatchSize+1)
	_, err := c.FetchBatch(context.Background(), ids)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max 500")
}

func TestFetchBatchEmptyChunk(t *testing.T) {
	c := NewClient(http.DefaultClient, types.DefaultEnrichConfig().LookupConfig, nil)
	results, err := c.FetchBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestParseBatchResponse(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantLen int
		wantErr string
	}{
		{"array", 200, `[{"paperId":"a"},null,{}]`, 3, ""},
		{"empty array", 200, `[]`, 0, ""},
		{"error field", 200, `{"error":"bad ids"}`, 0, "bad ids"},
		{"message field", 429, `{"message":"Too Many Requests"}`, 0, "HTTP 429: Too Many Requests"},
		{"message field non-string", 200, `{"message":{"detail":"x"}}`, 0, "message:"},
		{"non-2xx plain body", 502, `Bad Gateway`, 0, "HTTP 502: Bad Gateway"},
		{"non-2xx empty body", 500, ``, 0, "HTTP 500"},
		{"object without error", 200, `{"data":[]}`, 0, "parsing"},
		{"malformed", 200, `[{`, 0, "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBatchResponse(tt.status, []byte(tt.body))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		fields string
		want   string
	}{
		{"defaults", "", "", types.DefaultBaseURL + "/paper/batch/?fields=url%2Cyear%2CcitationCount%2Ctldr"},
		{"trailing slash", "http://s2.local/graph/v1/", "title", "http://s2.local/graph/v1/paper/batch/?fields=title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{Cfg: types.LookupConfig{BaseURL: tt.base, Fields: tt.fields}}
			assert.Equal(t, tt.want, c.Endpoint())
		})
	}
}
