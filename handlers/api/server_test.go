package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nijaru/swing-analysis/config"
	"github.com/nijaru/swing-analysis/metrics"
	"github.com/nijaru/swing-analysis/models"
	"github.com/nijaru/swing-analysis/repository/sqlite"
	"github.com/nijaru/swing-analysis/services/analysis"
	"github.com/nijaru/swing-analysis/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

type testServer struct {
	handler http.Handler
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, withHistory bool, modify func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	if modify != nil {
		modify(cfg)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	v := validation.NewValidator()

	opts := []analysis.Option{analysis.WithMetrics(m), analysis.WithLogger(logger)}
	if withHistory {
		db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"), sqlite.DefaultDBConfig())
		if err != nil {
			t.Fatalf("Failed to open database: %v", err)
		}
		t.Cleanup(func() { db.Close() })

		repo, err := sqlite.NewRepository(db)
		if err != nil {
			t.Fatalf("Failed to create repository: %v", err)
		}
		opts = append(opts, analysis.WithRepository(repo))
	}

	svc := analysis.NewService(analysis.NewPlaceholder(), v, analysis.DefaultConfig(), opts...)
	server := NewServer(cfg,
		WithAnalysisService(svc, v),
		WithMetrics(m, reg),
		WithLogger(logger),
	)

	return &testServer{handler: server.Handler(), metrics: m}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false, nil)

	rr := ts.do(http.MethodGet, "/health", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != `{"status":"ok"}` {
		t.Errorf("unexpected body %s", body)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if rr.Header().Get(APIVersionHeader) != config.DefaultVersion {
		t.Errorf("expected API version %s, got %s", config.DefaultVersion, rr.Header().Get(APIVersionHeader))
	}
}

func TestAnalyze(t *testing.T) {
	ts := newTestServer(t, false, nil)

	rr := ts.do(http.MethodPost, "/analyze", `{"video_url":"https://example.com/Swing.MP4?x=1"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get(AnalysisIDHeader) == "" {
		t.Error("expected analysis id header")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"video_url", "segments", "key_metrics", "coaching_cues", "pro_comparisons"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %s", key)
		}
	}
	if len(raw) != 5 {
		t.Errorf("expected exactly 5 keys, got %d", len(raw))
	}

	var resp models.AnalysisResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.VideoURL != "https://example.com/Swing.MP4?x=1" {
		t.Errorf("video_url not echoed verbatim: %s", resp.VideoURL)
	}
	if got := strings.Join(resp.SegmentNames(), ","); got != "Address,Top,Impact,Finish" {
		t.Errorf("unexpected segments %s", got)
	}

	if got := testutil.ToFloat64(ts.metrics.AnalysesTotal.WithLabelValues(analysis.PlaceholderName)); got != 1 {
		t.Errorf("expected 1 analysis counted, got %v", got)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	ts := newTestServer(t, false, nil)
	body := `{"video_url":"https://example.com/a.mp4","perspective":"face-on","player_height_cm":-5}`

	first := ts.do(http.MethodPost, "/analyze", body)
	second := ts.do(http.MethodPost, "/analyze", body)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200s, got %d and %d", first.Code, second.Code)
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Error("expected identical bodies for identical input")
	}
	if first.Header().Get(AnalysisIDHeader) == second.Header().Get(AnalysisIDHeader) {
		t.Error("expected distinct analysis ids")
	}
}

func TestAnalyze_ContentTypes(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
	}{
		{"no content type", ""},
		{"json with charset", "application/json; charset=utf-8"},
		{"structured json", "application/vnd.swing+json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, false, nil)

			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"video_url":"https://example.com/a.mp4"}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()
			ts.handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
			}
			if rr.Header().Get(AnalysisIDHeader) == "" {
				t.Error("expected analysis id header")
			}
		})
	}
}

func TestAnalyze_NumericStrings(t *testing.T) {
	ts := newTestServer(t, true, nil)

	rr := ts.do(http.MethodPost, "/analyze", `{"video_url":"https://example.com/a.mp4","player_height_cm":"180","club_length_cm":" 114.5 "}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	get := ts.do(http.MethodGet, "/analyses/"+rr.Header().Get(AnalysisIDHeader), "")
	if get.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", get.Code, get.Body.String())
	}
	var record models.AnalysisRecord
	if err := json.Unmarshal(get.Body.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if record.Input.PlayerHeightCM == nil || *record.Input.PlayerHeightCM != 180 {
		t.Errorf("expected player height 180, got %v", record.Input.PlayerHeightCM)
	}
	if record.Input.ClubLengthCM == nil || *record.Input.ClubLengthCM != 114.5 {
		t.Errorf("expected club length 114.5, got %v", record.Input.ClubLengthCM)
	}
}

func TestAnalyze_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantCode    int
		wantField   string
	}{
		{"missing url", `{}`, "application/json", http.StatusUnprocessableEntity, "video_url"},
		{"invalid url", `{"video_url":"not-a-url"}`, "application/json", http.StatusUnprocessableEntity, "video_url"},
		{"ftp url", `{"video_url":"ftp://example.com/a.mp4"}`, "application/json", http.StatusUnprocessableEntity, "video_url"},
		{"string height", `{"video_url":"https://example.com/a.mp4","player_height_cm":"tall"}`, "application/json", http.StatusUnprocessableEntity, "player_height_cm"},
		{"string club length", `{"video_url":"https://example.com/a.mp4","club_length_cm":"1m"}`, "application/json", http.StatusUnprocessableEntity, "club_length_cm"},
		{"nan height", `{"video_url":"https://example.com/a.mp4","player_height_cm":"NaN"}`, "application/json", http.StatusUnprocessableEntity, "player_height_cm"},
		{"malformed json", `{"video_url":`, "application/json", http.StatusUnprocessableEntity, "body"},
		{"empty body", ``, "application/json", http.StatusUnprocessableEntity, "body"},
		{"wrong content type", `{"video_url":"https://example.com/a.mp4"}`, "text/plain", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, false, nil)

			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			req.Header.Set("X-Request-ID", "req-"+tt.name)
			rr := httptest.NewRecorder()
			ts.handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if resp.Error == "" {
				t.Error("expected error message")
			}
			if resp.RequestID != "req-"+tt.name {
				t.Errorf("expected request id to be echoed, got %q", resp.RequestID)
			}
			if rr.Header().Get(AnalysisIDHeader) != "" {
				t.Error("rejected request must not carry an analysis id")
			}

			if tt.wantField == "" {
				return
			}
			found := false
			for _, d := range resp.Details {
				if d.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected detail for %s, got %+v", tt.wantField, resp.Details)
			}
			if got := testutil.ToFloat64(ts.metrics.ValidationFailures.WithLabelValues(tt.wantField)); got != 1 {
				t.Errorf("expected validation failure counted for %s, got %v", tt.wantField, got)
			}
		})
	}
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t, false, func(cfg *config.Config) {
		cfg.Analysis.MaxBodyBytes = 64
	})

	body := `{"video_url":"https://example.com/` + strings.Repeat("a", 100) + `.mp4"}`
	rr := ts.do(http.MethodPost, "/analyze", body)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestAnalyze_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, false, nil)

	rr := ts.do(http.MethodGet, "/analyze", "")

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Method not allowed") {
		t.Errorf("expected JSON error, got %s", rr.Body.String())
	}
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t, true, nil)

	var ids []string
	for _, url := range []string{"https://example.com/1.mp4", "https://example.com/2.mp4"} {
		rr := ts.do(http.MethodPost, "/analyze", `{"video_url":"`+url+`","club_length_cm":114.3}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("analyze failed: %d %s", rr.Code, rr.Body.String())
		}
		ids = append(ids, rr.Header().Get(AnalysisIDHeader))
	}

	rr := ts.do(http.MethodGet, "/analyses/"+ids[0], "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var record models.AnalysisRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &record); err != nil {
		t.Fatal(err)
	}
	if record.ID != ids[0] || record.Input.VideoURL != "https://example.com/1.mp4" {
		t.Errorf("unexpected record %+v", record)
	}
	if record.Input.ClubLengthCM == nil || *record.Input.ClubLengthCM != 114.3 {
		t.Error("expected stored club length")
	}

	rr = ts.do(http.MethodGet, "/analyses?limit=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var list models.AnalysisList
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Analyses) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(list.Analyses))
	}

	if rr := ts.do(http.MethodGet, "/analyses/unknown", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown id, got %d", rr.Code)
	}
	if rr := ts.do(http.MethodGet, "/analyses?limit=zero", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rr.Code)
	}
}

func TestHistory_Disabled(t *testing.T) {
	ts := newTestServer(t, false, nil)

	if rr := ts.do(http.MethodGet, "/analyses", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 when history is disabled, got %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, false, nil)
	ts.do(http.MethodGet, "/health", "")

	rr := ts.do(http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `swing_analysis_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("expected health request in exposition, got:\n%s", rr.Body.String())
	}
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	ts := newTestServer(t, false, func(cfg *config.Config) {
		cfg.Middleware.EnableMetrics = false
	})

	if rr := ts.do(http.MethodGet, "/metrics", ""); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, false, func(cfg *config.Config) {
		cfg.Middleware.EnableRateLimit = true
		cfg.RateLimit.RequestsPerMinute = 1
		cfg.RateLimit.BurstSize = 1
	})

	if rr := ts.do(http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rr.Code)
	}
	rr := ts.do(http.MethodGet, "/health", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != `{"error":"Rate limit exceeded"}` {
		t.Errorf("unexpected body %s", body)
	}
}
