package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseEvaluation(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError bool
		expected    Evaluation
	}{
		{
			name:    "plain json",
			content: `{"fluency_coherence": 6.5, "lexical_resource": 7.0, "grammatical_range_accuracy": 6.0, "pronunciation": 6.5, "feedback": "Good flow."}`,
			expected: Evaluation{
				Fluency: 6.5, Lexical: 7.0, Grammar: 6.0, Pronunciation: 6.5,
				Overall: 6.5, Summary: "Good flow.",
			},
		},
		{
			name: "markdown fenced json",
			content: "```json\n" +
				`{"fluency_coherence": 5.0, "lexical_resource": 5.5, "grammatical_range_accuracy": 5.0, "pronunciation": 5.5, "feedback": "Work on linking ideas."}` +
				"\n```",
			expected: Evaluation{
				Fluency: 5.0, Lexical: 5.5, Grammar: 5.0, Pronunciation: 5.5,
				Overall: 5.5, Summary: "Work on linking ideas.",
			},
		},
		{
			name:    "numeric strings tolerated",
			content: `{"fluency_coherence": "6.5", "lexical_resource": "6", "grammatical_range_accuracy": "7", "pronunciation": "6.5", "feedback": "ok"}`,
			expected: Evaluation{
				Fluency: 6.5, Lexical: 6.0, Grammar: 7.0, Pronunciation: 6.5,
				Overall: 6.5, Summary: "ok",
			},
		},
		{
			name:    "off scale values clamped and rounded",
			content: `{"fluency_coherence": 9.7, "lexical_resource": -1, "grammatical_range_accuracy": 6.3, "pronunciation": 6.75, "feedback": ""}`,
			expected: Evaluation{
				Fluency: 9.0, Lexical: 0.0, Grammar: 6.5, Pronunciation: 7.0,
				// mean of 9.0, 0.0, 6.5, 7.0 = 5.625 -> 5.5
				Overall: 5.5,
			},
		},
		{
			name:        "missing criterion key",
			content:     `{"fluency_coherence": 7, "lexical_resource": 7, "grammatical_range_accuracy": 7, "feedback": "ok"}`,
			expectError: true,
		},
		{
			name:        "null criterion",
			content:     `{"fluency_coherence": 7, "lexical_resource": 7, "grammatical_range_accuracy": 7, "pronunciation": null, "feedback": "ok"}`,
			expectError: true,
		},
		{
			name:        "non numeric band",
			content:     `{"fluency_coherence": "good", "lexical_resource": 6, "grammatical_range_accuracy": 6, "pronunciation": 6, "feedback": ""}`,
			expectError: true,
		},
		{
			name:        "not json at all",
			content:     "The candidate did well overall.",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := ParseEvaluation(tt.content)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error, got %+v", eval)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if eval.Fluency != tt.expected.Fluency ||
				eval.Lexical != tt.expected.Lexical ||
				eval.Grammar != tt.expected.Grammar ||
				eval.Pronunciation != tt.expected.Pronunciation ||
				eval.Overall != tt.expected.Overall ||
				eval.Summary != tt.expected.Summary {
				t.Errorf("got %+v, expected %+v", eval, tt.expected)
			}
		})
	}
}

func chatResponseWith(content string) string {
	resp := map[string]interface{}{
		"id":    "chatcmpl-1",
		"model": "gpt-4o",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestEvaluate(t *testing.T) {
	evalJSON := `{"fluency_coherence": 6.5, "lexical_resource": 7.0, "grammatical_range_accuracy": 6.0, "pronunciation": 6.5, "feedback": "Solid answer."}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth header")
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode chat request: %v", err)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "CANDIDATE TRANSCRIPT") {
			t.Errorf("prompt missing transcript section")
		}
		w.Write([]byte(chatResponseWith(evalJSON)))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Endpoint: server.URL,
		APIKey:   "test-key",
		Timeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	eval, err := client.Evaluate(context.Background(), EvaluationRequest{
		PartNumber:   2,
		QuestionText: "Describe a memorable journey.",
		Transcript:   "Last year I travelled to the mountains...",
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.Overall != 6.5 {
		t.Errorf("expected overall 6.5, got %v", eval.Overall)
	}
	if eval.Model != "gpt-4o" {
		t.Errorf("expected model from response, got %q", eval.Model)
	}
}

func TestEvaluateRetriesOnServerError(t *testing.T) {
	evalJSON := `{"fluency_coherence": 6.0, "lexical_resource": 6.0, "grammatical_range_accuracy": 6.0, "pronunciation": 6.0, "feedback": ""}`

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(chatResponseWith(evalJSON)))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Endpoint:   server.URL,
		APIKey:     "test-key",
		MaxRetries: 2,
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	eval, err := client.Evaluate(context.Background(), EvaluationRequest{
		PartNumber: 1,
		Transcript: "I live in a small town near the coast.",
	})
	if err != nil {
		t.Fatalf("Evaluate failed after retry: %v", err)
	}
	if eval.Overall != 6.0 {
		t.Errorf("expected overall 6.0, got %v", eval.Overall)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestEvaluateDoesNotRetryClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Endpoint:   server.URL,
		APIKey:     "test-key",
		MaxRetries: 3,
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.Evaluate(context.Background(), EvaluationRequest{
		PartNumber: 1,
		Transcript: "Some answer.",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 call for non-retryable error, got %d", got)
	}
}

func TestEvaluateRejectsEmptyTranscript(t *testing.T) {
	client, err := NewClient(Config{
		Endpoint: "https://unused.example.com",
		APIKey:   "test-key",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.Evaluate(context.Background(), EvaluationRequest{Transcript: "   "}); err == nil {
		t.Errorf("expected error for blank transcript")
	}
}
