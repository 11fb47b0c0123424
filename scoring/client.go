package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client calls the hosted chat-completion endpoint that produces band
// scores and feedback for a transcript.
type Client struct {
	config     Config
	httpClient *http.Client
}

// Config contains scoring client configuration.
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
	MaxTokens   int
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []chatChoice  `json:"choices"`
	Error   *chatAPIError `json:"error,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Evaluation is the parsed and band-rounded scoring result for one answer.
type Evaluation struct {
	Fluency       float64 `json:"fluency"`
	Lexical       float64 `json:"lexical"`
	Grammar       float64 `json:"grammar"`
	Pronunciation float64 `json:"pronunciation"`
	Overall       float64 `json:"overall"`
	Summary       string  `json:"summary"`
	Model         string  `json:"model"`
}

// rawEvaluation matches the JSON object the prompt asks the model for.
// bandValue tolerates both numbers and numeric strings, which models
// occasionally emit despite the instructions. Pointer fields distinguish
// an absent criterion from a genuine 0.0.
type rawEvaluation struct {
	FluencyCoherence         *bandValue `json:"fluency_coherence"`
	LexicalResource          *bandValue `json:"lexical_resource"`
	GrammaticalRangeAccuracy *bandValue `json:"grammatical_range_accuracy"`
	Pronunciation            *bandValue `json:"pronunciation"`
	Feedback                 string     `json:"feedback"`
}

type bandValue float64

func (b *bandValue) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return fmt.Errorf("missing band value")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("band value %q is not numeric", s)
	}
	*b = bandValue(f)
	return nil
}

// NewClient creates a scoring client, filling unset config with defaults.
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if config.Model == "" {
		config.Model = "gpt-4o"
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 2000
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Evaluate scores one transcript. The transcript must be non-empty; callers
// reject blank answers before spending a model call.
func (c *Client) Evaluate(ctx context.Context, req EvaluationRequest) (*Evaluation, error) {
	if strings.TrimSpace(req.Transcript) == "" {
		return nil, fmt.Errorf("transcript is empty")
	}

	prompt := BuildEvaluationPrompt(req)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		eval, err := c.doRequest(ctx, prompt)
		if err == nil {
			return eval, nil
		}
		lastErr = err

		if !isRetryable(err) {
			break
		}
	}

	return nil, fmt.Errorf("scoring failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) doRequest(ctx context.Context, prompt string) (*Evaluation, error) {
	reqBody := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.Endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("scoring API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from scoring API")
	}

	eval, err := ParseEvaluation(chatResp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	eval.Model = chatResp.Model
	if eval.Model == "" {
		eval.Model = c.config.Model
	}
	return eval, nil
}

// ParseEvaluation parses the model's JSON answer, tolerating markdown code
// fences, and returns band-rounded scores.
func ParseEvaluation(content string) (*Evaluation, error) {
	content = cleanJSONResponse(content)

	var raw rawEvaluation
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("error parsing evaluation JSON: %w", err)
	}

	// All four criteria must be present; a missing key is a malformed
	// answer, not a 0.0 score.
	for name, band := range map[string]*bandValue{
		"fluency_coherence":          raw.FluencyCoherence,
		"lexical_resource":           raw.LexicalResource,
		"grammatical_range_accuracy": raw.GrammaticalRangeAccuracy,
		"pronunciation":              raw.Pronunciation,
	} {
		if band == nil {
			return nil, fmt.Errorf("evaluation JSON missing criterion %q", name)
		}
	}

	eval := &Evaluation{
		Fluency:       RoundToBand(float64(*raw.FluencyCoherence)),
		Lexical:       RoundToBand(float64(*raw.LexicalResource)),
		Grammar:       RoundToBand(float64(*raw.GrammaticalRangeAccuracy)),
		Pronunciation: RoundToBand(float64(*raw.Pronunciation)),
		Summary:       strings.TrimSpace(raw.Feedback),
	}
	eval.Overall = OverallBand(eval.Fluency, eval.Lexical, eval.Grammar, eval.Pronunciation)
	return eval, nil
}

// cleanJSONResponse strips markdown fences the model sometimes wraps
// around its JSON despite the prompt.
func cleanJSONResponse(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

func isRetryable(err error) bool {
	errStr := err.Error()
	if strings.Contains(errStr, "HTTP error 5") || strings.Contains(errStr, "HTTP error 429") {
		return true
	}
	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "refused") {
		return true
	}
	return false
}
