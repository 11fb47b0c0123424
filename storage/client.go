// Package storage provides the client for the hosted object store that
// keeps uploaded answer recordings. The store exposes a simple REST
// surface: POST to create an object, DELETE to remove it, and a public
// URL scheme for playback.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the hosted object store.
type Client struct {
	config     Config
	httpClient *http.Client
}

// Config contains object store client configuration.
type Config struct {
	Endpoint   string // base URL, e.g. https://project.example.co/storage/v1
	ServiceKey string
	Bucket     string
	Timeout    time.Duration
}

// NewClient creates an object store client.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.ServiceKey == "" {
		return nil, fmt.Errorf("service key cannot be empty")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Upload stores data under key and returns its public URL. Existing objects
// under the same key are overwritten, which is what re-recording an answer
// relies on.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key cannot be empty")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("object data cannot be empty")
	}

	url := fmt.Sprintf("%s/object/%s/%s", strings.TrimRight(c.config.Endpoint, "/"), c.config.Bucket, key)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.ServiceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("upload failed with HTTP %d: %s", resp.StatusCode, string(body))
	}

	return c.PublicURL(key), nil
}

// Delete removes the object under key. Missing objects are not an error so
// cleanup stays idempotent.
func (c *Client) Delete(ctx context.Context, key string) error {
	url := fmt.Sprintf("%s/object/%s/%s", strings.TrimRight(c.config.Endpoint, "/"), c.config.Bucket, key)

	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.ServiceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("delete failed with HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// PublicURL returns the playback URL for an object key.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", strings.TrimRight(c.config.Endpoint, "/"), c.config.Bucket, key)
}

// KeyFromURL recovers the object key from a URL produced by PublicURL.
// Returns false for URLs outside this client's endpoint and bucket.
func (c *Client) KeyFromURL(url string) (string, bool) {
	prefix := fmt.Sprintf("%s/object/public/%s/", strings.TrimRight(c.config.Endpoint, "/"), c.config.Bucket)
	key := strings.TrimPrefix(url, prefix)
	if key == url || key == "" {
		return "", false
	}
	return key, true
}
