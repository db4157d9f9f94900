package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadrxma/productfinder/internal/clock/system"
	"github.com/jadrxma/productfinder/internal/config"
	"github.com/jadrxma/productfinder/internal/product"
	"github.com/jadrxma/productfinder/internal/runner"
	"github.com/jadrxma/productfinder/internal/store"
)

// cannedFetcher serves fixed pages per URL and counts calls.
type cannedFetcher struct {
	pages map[string][][]product.Record
	calls atomic.Int64
	gate  chan struct{} // when non-nil, FetchPage blocks until closed
}

func (f *cannedFetcher) FetchPage(ctx context.Context, baseURL string, page int) ([]product.Record, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	urlPages := f.pages[baseURL]
	if page < 1 || page > len(urlPages) {
		return nil, nil
	}
	return urlPages[page-1], nil
}

func testConfig(numBatches int) config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeout: 30 * time.Second},
		Collector: config.CollectorConfig{
			PageTimeout: 10 * time.Second,
			URLBudget:   35 * time.Second,
			NumBatches:  numBatches,
			UserAgent:   "test-agent",
		},
		Storage: config.StorageConfig{Provider: "noop"},
		Notify:  config.NotifyConfig{Provider: "noop"},
	}
}

func newTestServer(t *testing.T, fetcher product.PageFetcher, numBatches int) (*httptest.Server, *store.RunStore) {
	t.Helper()
	clk := system.New()
	runs := store.NewRunStore()
	run := runner.New(runner.Config{
		Collector: product.NewCollector(fetcher, clk, 35*time.Second, nil),
		Recorder:  runs,
		Clock:     clk,
	})
	srv := NewServer(runs, run, testConfig(numBatches), nil, http.NotFoundHandler())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, runs
}

func uploadLinks(t *testing.T, ts *httptest.Server, csvBody string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "links.csv")
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(csvBody))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/v1/runs", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close() //nolint:errcheck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func waitForDone(t *testing.T, ts *httptest.Server, runID string) store.Run {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/v1/runs/" + runID)
		require.NoError(t, err)
		var run store.Run
		decodeJSON(t, resp, &run)
		if run.Status == store.RunStatusDone {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not finish in time")
	return store.Run{}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, &cannedFetcher{}, 1)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close() //nolint:errcheck
	}
}

func TestIndexPage(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, &cannedFetcher{}, 1)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Product Finder")
}

// TestFullRunFlow uploads two links, waits for the run, and downloads both
// exports.
func TestFullRunFlow(t *testing.T) {
	t.Parallel()

	fetcher := &cannedFetcher{pages: map[string][][]product.Record{
		"https://a.test": {{{"title": "Mug"}, {"title": "Cap"}}},
		"https://b.test": {},
	}}
	ts, _ := newTestServer(t, fetcher, 1)

	resp := uploadLinks(t, ts, "link\nhttps://a.test\nhttps://b.test\n")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var created struct {
		RunID     string `json:"run_id"`
		Batches   int    `json:"batches"`
		TotalURLs int    `json:"total_urls"`
	}
	decodeJSON(t, resp, &created)
	require.NotEmpty(t, created.RunID)
	assert.Equal(t, 1, created.Batches)
	assert.Equal(t, 2, created.TotalURLs)

	run := waitForDone(t, ts, created.RunID)
	assert.Equal(t, 2, run.Records)
	require.Len(t, run.Batches, 1)
	assert.True(t, run.Batches[0].HasExport)

	batchResp, err := http.Get(ts.URL + "/v1/runs/" + created.RunID + "/exports/batch/1")
	require.NoError(t, err)
	defer batchResp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, batchResp.StatusCode)
	assert.Equal(t, "text/csv", batchResp.Header.Get("Content-Type"))
	assert.Contains(t, batchResp.Header.Get("Content-Disposition"), "batch_1_products.csv")
	body, err := io.ReadAll(batchResp.Body)
	require.NoError(t, err)
	assert.Equal(t, "title,source_url\nMug,https://a.test\nCap,https://a.test\n", string(body))

	allResp, err := http.Get(ts.URL + "/v1/runs/" + created.RunID + "/exports/all")
	require.NoError(t, err)
	defer allResp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, allResp.StatusCode)
	assert.Contains(t, allResp.Header.Get("Content-Disposition"), "all_products.csv")
}

// TestCreateRunMissingLinkColumn: a CSV without a link column is rejected
// before any network activity.
func TestCreateRunMissingLinkColumn(t *testing.T) {
	t.Parallel()

	fetcher := &cannedFetcher{}
	ts, _ := newTestServer(t, fetcher, 1)

	resp := uploadLinks(t, ts, "url\nhttps://a.test\n")
	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], `"link" column`)
	assert.Equal(t, int64(0), fetcher.calls.Load())
}

func TestCreateRunMissingFile(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, &cannedFetcher{}, 1)

	resp, err := http.Post(ts.URL+"/v1/runs", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRunEmptyLinks(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, &cannedFetcher{}, 1)

	resp := uploadLinks(t, ts, "link\n")
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestCreateRunConflict: a second upload while a run is active returns 409.
func TestCreateRunConflict(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	fetcher := &cannedFetcher{
		pages: map[string][][]product.Record{},
		gate:  gate,
	}
	ts, _ := newTestServer(t, fetcher, 1)

	resp := uploadLinks(t, ts, "link\nhttps://slow.test\n")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var created struct {
		RunID string `json:"run_id"`
	}
	decodeJSON(t, resp, &created)

	second := uploadLinks(t, ts, "link\nhttps://other.test\n")
	defer second.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusConflict, second.StatusCode)

	close(gate)
	waitForDone(t, ts, created.RunID)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()
	ts, _ := newTestServer(t, &cannedFetcher{}, 1)

	resp, err := http.Get(ts.URL + "/v1/runs/unknown")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDownloadErrors(t *testing.T) {
	t.Parallel()

	ts, runs := newTestServer(t, &cannedFetcher{}, 1)
	require.NoError(t, runs.CreateRun("run-1", []int{1}))

	cases := []struct {
		path   string
		status int
	}{
		{"/v1/runs/run-1/exports/batch/abc", http.StatusBadRequest},
		{"/v1/runs/run-1/exports/batch/1", http.StatusConflict},
		{"/v1/runs/run-1/exports/batch/9", http.StatusNotFound},
		{"/v1/runs/missing/exports/all", http.StatusNotFound},
		{"/v1/runs/run-1/exports/all", http.StatusConflict},
	}
	for _, tc := range cases {
		resp, err := http.Get(ts.URL + tc.path)
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, fmt.Sprintf("path %s", tc.path))
		resp.Body.Close() //nolint:errcheck
	}
}

// TestBatchTruncation: 10 links into 4 batches yields 4 batches of 2 and
// drops the remainder.
func TestBatchTruncation(t *testing.T) {
	t.Parallel()

	fetcher := &cannedFetcher{pages: map[string][][]product.Record{}}
	ts, _ := newTestServer(t, fetcher, 4)

	var sb strings.Builder
	sb.WriteString("link\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&sb, "https://site%d.test\n", i)
	}
	resp := uploadLinks(t, ts, sb.String())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var created struct {
		RunID     string `json:"run_id"`
		Batches   int    `json:"batches"`
		TotalURLs int    `json:"total_urls"`
	}
	decodeJSON(t, resp, &created)
	assert.Equal(t, 4, created.Batches)
	assert.Equal(t, 8, created.TotalURLs)

	run := waitForDone(t, ts, created.RunID)
	for _, b := range run.Batches {
		assert.Equal(t, 2, b.URLTotal)
	}
}
