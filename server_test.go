package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"speaking9/api/auth"
	"speaking9/api/metrics"
	"speaking9/api/rest"
	"speaking9/api/scoring"
	"speaking9/api/transcription"
)

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, req *transcription.Request) (*transcription.Response, error) {
	return &transcription.Response{Text: "stub"}, nil
}

type stubScorer struct{}

func (stubScorer) Evaluate(ctx context.Context, req scoring.EvaluationRequest) (*scoring.Evaluation, error) {
	return &scoring.Evaluation{Overall: 6.0}, nil
}

type stubStore struct{}

func (stubStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "https://store.test/object/public/responses/" + key, nil
}

func (stubStore) Delete(ctx context.Context, key string) error { return nil }

func (stubStore) KeyFromURL(url string) (string, bool) { return "", false }

// promauto registers into the global registry, so build the metrics once
// for the whole test binary.
var testMetrics = metrics.NewMetrics()

func testRouter() http.Handler {
	authHandler := &auth.AuthHandler{}
	restHandler := &rest.RESTHandler{
		Transcriber:    stubTranscriber{},
		Scorer:         stubScorer{},
		Store:          stubStore{},
		Metrics:        testMetrics,
		MaxUploadBytes: 1 << 20,
		PublicBaseURL:  "https://app.test",
	}
	return newRouter(authHandler, restHandler, testMetrics)
}

type errorEnvelope struct {
	Error struct {
		Code       string `json:"code"`
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
	} `json:"error"`
}

func TestRoutesRequireAuth(t *testing.T) {
	router := testRouter()

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{"POST", "/api/transcribe", ""},
		{"POST", "/api/score", "{}"},
		{"POST", "/api/score-complete-test", "{}"},
		{"GET", "/api/tests/00000000-0000-0000-0000-000000000001/progress", ""},
		{"GET", "/api/tests/00000000-0000-0000-0000-000000000001/results", ""},
		{"GET", "/api/tests/00000000-0000-0000-0000-000000000001/report", ""},
		{"GET", "/api/tests/00000000-0000-0000-0000-000000000001/share", ""},
		{"DELETE", "/auth/account", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != 401 {
				t.Fatalf("expected 401 without a session, got %d: %s", rec.Code, rec.Body.String())
			}
			var envelope errorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("response is not the error envelope: %v", err)
			}
			if envelope.Error.Code != "NOT_AUTHED" {
				t.Errorf("expected code NOT_AUTHED, got %q", envelope.Error.Code)
			}
			if envelope.Error.StatusCode != 401 {
				t.Errorf("expected statusCode 401 in envelope, got %d", envelope.Error.StatusCode)
			}
		})
	}
}

func TestRoutesRejectMalformedAuthHeader(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest("POST", "/api/score", strings.NewReader("{}"))
	req.Header.Set("Authorization", "not-a-bearer-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("expected 400 for malformed Authorization header, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "speaking_uploads_received_total") {
		t.Errorf("metrics output missing upload counter")
	}
}
