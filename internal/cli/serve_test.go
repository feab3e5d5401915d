package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mandel/pkg/cache"
	"github.com/matzehuels/mandel/pkg/export"
	"github.com/matzehuels/mandel/pkg/mandel"
	"github.com/matzehuels/mandel/pkg/pipeline"
)

func newTestServer(t *testing.T, maxPixels int) *httptest.Server {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := log.NewWithOptions(io.Discard, log.Options{})
	s := &server{
		runner:    pipeline.NewRunner(c, nil, logger),
		logger:    logger,
		maxPixels: maxPixels,
	}
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServeHealthz(t *testing.T) {
	ts := newTestServer(t, defaultMaxPixels)
	resp := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get(headerRequestID) == "" {
		t.Error("response should carry a request ID")
	}
}

func TestServeRequestIDPassthrough(t *testing.T) {
	ts := newTestServer(t, defaultMaxPixels)
	resp := get(t, ts.URL+"/healthz", headerRequestID, "trace-123")
	if got := resp.Header.Get(headerRequestID); got != "trace-123" {
		t.Errorf("request ID = %q, want trace-123", got)
	}
}

func TestServeRegions(t *testing.T) {
	ts := newTestServer(t, defaultMaxPixels)
	resp := get(t, ts.URL+"/regions")

	var regions []mandel.Region
	if err := json.NewDecoder(resp.Body).Decode(&regions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(regions) != len(mandel.RegionNames()) {
		t.Errorf("got %d regions, want %d", len(regions), len(mandel.RegionNames()))
	}
	found := false
	for _, r := range regions {
		if r.Name == "seahorse-valley" && !r.Bounds.IsZero() {
			found = true
		}
	}
	if !found {
		t.Error("regions should include seahorse-valley with bounds")
	}
}

func TestServeRenderPNG(t *testing.T) {
	ts := newTestServer(t, defaultMaxPixels)
	url := ts.URL + "/render.png?width=40&height=30&max_iter=20&density=2&dpi=96"

	first := get(t, url)
	if first.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(first.Body)
		t.Fatalf("status = %d: %s", first.StatusCode, body)
	}
	if ct := first.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if first.Header.Get("X-Cache") != "MISS" {
		t.Errorf("first X-Cache = %q, want MISS", first.Header.Get("X-Cache"))
	}
	if first.Header.Get("X-Render-ID") == "" {
		t.Error("missing X-Render-ID")
	}

	dpiX, _, err := export.ReadPNGResolution(first.Body)
	if err != nil {
		t.Fatalf("ReadPNGResolution: %v", err)
	}
	if dpiX != 96 {
		t.Errorf("dpi = %d, want 96", dpiX)
	}

	second := get(t, url)
	if second.Header.Get("X-Cache") != "HIT" {
		t.Errorf("second X-Cache = %q, want HIT", second.Header.Get("X-Cache"))
	}
}

func TestServeRenderTIFF(t *testing.T) {
	ts := newTestServer(t, defaultMaxPixels)
	resp := get(t, ts.URL+"/render.tiff?width=20&height=20&max_iter=10&region=elephant-valley")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/tiff" {
		t.Errorf("Content-Type = %q, want image/tiff", ct)
	}
}

func TestServeRenderErrors(t *testing.T) {
	ts := newTestServer(t, 10000)

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"bad width", "width=abc", "INVALID_ARGUMENT"},
		{"zero height", "height=0", "INVALID_ARGUMENT"},
		{"zero density", "density=0", "INVALID_ARGUMENT"},
		{"unknown region", "region=atlantis&width=10&height=10", "INVALID_ARGUMENT"},
		{"inverted bounds", "x_min=1&x_max=-1&y_min=-1&y_max=1&width=10&height=10", "INVALID_ARGUMENT"},
		{"too large", "width=200&height=100", "INVALID_ARGUMENT"},
		{"pixel count overflows", "width=4294967296&height=4294967296&density=1", "INVALID_ARGUMENT"},
		{"single row", "width=10&height=1&max_iter=5", "INVALID_DIMENSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, ts.URL+"/render.png?"+tt.query)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			var body map[string]string
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["code"] != tt.code {
				t.Errorf("code = %q, want %q", body["code"], tt.code)
			}
			if body["request_id"] == "" || strings.TrimSpace(body["error"]) == "" {
				t.Errorf("error body incomplete: %v", body)
			}
		})
	}
}

func TestRenderOptionsFromQuery(t *testing.T) {
	q := map[string][]string{
		"width":   {"100"},
		"density": {"1.5"},
		"x_min":   {"-1"},
		"refresh": {"true"},
	}
	opts, err := renderOptionsFromQuery(q)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Width != 100 || opts.Height != 0 || opts.Density != 1.5 {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Bounds.XMin != -1 || !opts.Refresh {
		t.Errorf("opts = %+v", opts)
	}
}
