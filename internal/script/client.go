package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Static errors for script generation.
var (
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("script: SCRIPT_API_KEY environment variable is not set")
	// ErrInvalidTargetWords is returned when the requested length is not positive.
	ErrInvalidTargetWords = errors.New("script: target words must be positive")
	// ErrEmptyScript is returned when the model returns no usable text.
	ErrEmptyScript = errors.New("script: model returned an empty script")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("script: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("script: rate limited")
	// ErrRequestFailed is returned when the request fails with any other non-2xx status code.
	ErrRequestFailed = errors.New("script: request failed")
)

// Defaults for the chat client.
const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/gpt-4o-mini"
)

// ChatClient generates scripts through an OpenAI-compatible
// /chat/completions endpoint.
type ChatClient struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

var _ Generator = (*ChatClient)(nil)

// ClientOption is a function that configures a ChatClient.
type ClientOption func(*ChatClient)

// WithAPIKey sets the API key for bearer authentication.
func WithAPIKey(key string) ClientOption {
	return func(c *ChatClient) {
		c.apiKey = key
	}
}

// WithModel sets the model name.
func WithModel(model string) ClientOption {
	return func(c *ChatClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL sets the API base URL, without the /chat/completions suffix.
func WithBaseURL(u string) ClientOption {
	return func(c *ChatClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *ChatClient) {
		c.temperature = t
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *ChatClient) {
		c.httpClient = hc
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *ChatClient) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(c *ChatClient) {
		c.baseBackoff = d
	}
}

// NewChatClient creates a new ChatClient.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable SCRIPT_API_KEY.
func NewChatClient(opts ...ClientOption) (*ChatClient, error) {
	c := &ChatClient{
		model:       DefaultModel,
		baseURL:     DefaultBaseURL,
		temperature: 0.7,
		httpClient:  &http.Client{Timeout: 90 * time.Second},
		maxRetries:  2,
		baseBackoff: 1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("SCRIPT_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for a script of about req.TargetWords words.
func (c *ChatClient) Generate(ctx context.Context, req Request) (string, error) {
	if req.TargetWords <= 0 {
		return "", ErrInvalidTargetWords
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("script: marshal request: %w", err)
	}

	respBody, err := c.doRequestWithRetry(ctx, c.baseURL+"/chat/completions", body)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("script: unmarshal response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyScript
	}

	text := cleanScript(contentToString(resp.Choices[0].Message.Content))
	if text == "" {
		return "", ErrEmptyScript
	}
	return text, nil
}

// contentToString accepts both the plain string form and the array-of-parts
// form of a chat message.
func contentToString(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var b strings.Builder
		for _, part := range v {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := m["text"].(string); ok {
				b.WriteString(s)
			}
		}
		return b.String()
	default:
		return ""
	}
}

// cleanScript strips code fences and wrapping quotes models sometimes add.
func cleanScript(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// doRequestWithRetry performs a POST with exponential backoff retry.
func (c *ChatClient) doRequestWithRetry(ctx context.Context, url string, body []byte) ([]byte, error) {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("script: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		respBody, err := c.doRequest(ctx, url, body)
		if err == nil {
			return respBody, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("script: max retries exceeded: %w", lastErr)
}

func (c *ChatClient) doRequest(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("script: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("script: request failed: %w", err)
		}
		return nil, &retryableError{err: fmt.Errorf("script: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("script: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := truncate(redact(string(respBody), c.apiKey), 400)
		if resp.StatusCode >= 500 {
			return nil, &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, msg)}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, msg)}
		}
		return nil, fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, msg)
	}

	return respBody, nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "[REDACTED]")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
