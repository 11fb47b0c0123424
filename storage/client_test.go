package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUpload(t *testing.T) {
	var gotPath, gotContentType, gotUpsert string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer service-key" {
			t.Errorf("missing bearer auth header")
		}
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Endpoint:   server.URL,
		ServiceKey: "service-key",
		Bucket:     "recordings",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	url, err := client.Upload(context.Background(), "user1/q1/a.webm", []byte("audio-bytes"), "audio/webm")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if gotPath != "/object/recordings/user1/q1/a.webm" {
		t.Errorf("unexpected upload path: %q", gotPath)
	}
	if gotContentType != "audio/webm" {
		t.Errorf("unexpected content type: %q", gotContentType)
	}
	if gotUpsert != "true" {
		t.Errorf("expected x-upsert true, got %q", gotUpsert)
	}
	if string(gotBody) != "audio-bytes" {
		t.Errorf("unexpected body: %q", gotBody)
	}
	expectedURL := server.URL + "/object/public/recordings/user1/q1/a.webm"
	if url != expectedURL {
		t.Errorf("expected public URL %q, got %q", expectedURL, url)
	}
}

func TestUploadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket quota exceeded", http.StatusInsufficientStorage)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Endpoint:   server.URL,
		ServiceKey: "service-key",
		Bucket:     "recordings",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.Upload(context.Background(), "k", []byte("x"), "audio/wav"); err == nil {
		t.Errorf("expected error on server failure")
	}
}

func TestUploadValidation(t *testing.T) {
	client, err := NewClient(Config{
		Endpoint:   "https://store.example.com/storage/v1",
		ServiceKey: "service-key",
		Bucket:     "recordings",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.Upload(context.Background(), "", []byte("x"), "audio/wav"); err == nil {
		t.Errorf("expected error for empty key")
	}
	if _, err := client.Upload(context.Background(), "k", nil, "audio/wav"); err == nil {
		t.Errorf("expected error for empty data")
	}
}

func TestDeleteToleratesMissingObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "DELETE" {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Endpoint:   server.URL,
		ServiceKey: "service-key",
		Bucket:     "recordings",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if err := client.Delete(context.Background(), "user1/q1/gone.webm"); err != nil {
		t.Errorf("expected 404 to be tolerated, got %v", err)
	}
}

func TestKeyFromURL(t *testing.T) {
	client, err := NewClient(Config{
		Endpoint:   "https://store.example.com/storage/v1",
		ServiceKey: "service-key",
		Bucket:     "recordings",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	key, ok := client.KeyFromURL(client.PublicURL("u/q/a.webm"))
	if !ok || key != "u/q/a.webm" {
		t.Errorf("expected round trip to u/q/a.webm, got %q ok=%v", key, ok)
	}

	tests := []struct {
		name string
		url  string
	}{
		{"foreign host", "https://other.example.com/object/public/recordings/u/q/a.webm"},
		{"wrong bucket", "https://store.example.com/storage/v1/object/public/other/u/q/a.webm"},
		{"empty key", "https://store.example.com/storage/v1/object/public/recordings/"},
		{"not a url", "u/q/a.webm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if key, ok := client.KeyFromURL(tt.url); ok {
				t.Errorf("expected no key, got %q", key)
			}
		})
	}
}

func TestPublicURLTrimsEndpointSlash(t *testing.T) {
	client, err := NewClient(Config{
		Endpoint:   "https://store.example.com/storage/v1/",
		ServiceKey: "service-key",
		Bucket:     "recordings",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	expected := "https://store.example.com/storage/v1/object/public/recordings/u/q/a.wav"
	if got := client.PublicURL("u/q/a.wav"); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}
