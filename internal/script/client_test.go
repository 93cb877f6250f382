package script

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maauso/zenpal-audio/internal/pacing"
)

func newTestClient(t *testing.T, srv *httptest.Server, opts ...ClientOption) *ChatClient {
	t.Helper()
	base := []ClientOption{
		WithAPIKey("sk-test-key"),
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithBaseBackoff(time.Millisecond),
	}
	c, err := NewChatClient(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewChatClient() error = %v", err)
	}
	return c
}

func chatReply(content any) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestNewChatClient_MissingKey(t *testing.T) {
	t.Setenv("SCRIPT_API_KEY", "")

	_, err := NewChatClient()
	if !errors.Is(err, ErrAPIKeyNotSet) {
		t.Errorf("expected ErrAPIKeyNotSet, got %v", err)
	}
}

func TestNewChatClient_EnvKey(t *testing.T) {
	t.Setenv("SCRIPT_API_KEY", "env-key")

	c, err := NewChatClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.apiKey != "env-key" {
		t.Errorf("apiKey = %q, want env-key", c.apiKey)
	}
	if c.baseURL != DefaultBaseURL || c.model != DefaultModel {
		t.Errorf("defaults not applied: %q %q", c.baseURL, c.model)
	}
}

func TestGenerate_Success(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(chatReply("  Breathe in. Breathe out.  ")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithModel("test-model"))
	text, err := c.Generate(context.Background(), Request{
		TargetWords: 140,
		Theme:       "sleep",
		Context:     "long day at work",
		Profile:     pacing.ProfileSparse,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Breathe in. Breathe out." {
		t.Errorf("text = %q", text)
	}

	if got.Model != "test-model" {
		t.Errorf("model = %q", got.Model)
	}
	if got.Stream {
		t.Error("stream should be false")
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	user := got.Messages[1].Content
	for _, want := range []string{"140 words", "Theme: sleep", "long day at work"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q: %s", want, user)
		}
	}
}

func TestGenerate_ContentParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatReply([]any{
			map[string]any{"type": "text", "text": "Relax. "},
			map[string]any{"type": "text", "text": "Let go."},
		})))
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv).Generate(context.Background(), Request{TargetWords: 10})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Relax. Let go." {
		t.Errorf("text = %q", text)
	}
}

func TestGenerate_StripsFencesAndQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chatReply("```text\n\"Be still.\"\n```")))
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv).Generate(context.Background(), Request{TargetWords: 10})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Be still." {
		t.Errorf("text = %q", text)
	}
}

func TestGenerate_EmptyScript(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"blank content", chatReply("   ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv).Generate(context.Background(), Request{TargetWords: 10})
			if !errors.Is(err, ErrEmptyScript) {
				t.Errorf("expected ErrEmptyScript, got %v", err)
			}
		})
	}
}

func TestGenerate_InvalidTargetWords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), Request{TargetWords: 0})
	if !errors.Is(err, ErrInvalidTargetWords) {
		t.Errorf("expected ErrInvalidTargetWords, got %v", err)
	}
}

func TestGenerate_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(chatReply("Rest.")))
		}
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv).Generate(context.Background(), Request{TargetWords: 10})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Rest." {
		t.Errorf("text = %q", text)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestGenerate_MaxRetriesExceeded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, WithMaxRetries(1)).Generate(context.Background(), Request{TargetWords: 10})
	if !errors.Is(err, ErrServerError) {
		t.Errorf("expected ErrServerError, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestGenerate_NonRetryableRedactsKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid key sk-test-key"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), Request{TargetWords: 10})
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	if strings.Contains(err.Error(), "sk-test-key") {
		t.Errorf("error leaks the API key: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDemoScript(t *testing.T) {
	short := DemoScript(1)
	if got := len(strings.Split(short, ". ")); got < 2 {
		t.Errorf("short demo should hold at least two sentences: %q", short)
	}
	if !strings.HasPrefix(short, "Welcome.") {
		t.Errorf("demo should start with Welcome.: %q", short)
	}

	long := DemoScript(10_000)
	if pacing.CountWords(long) <= pacing.CountWords(DemoScript(40)) {
		t.Error("larger targets should yield longer demo scripts")
	}
	if !strings.Contains(long, "\n") {
		t.Error("full demo should contain paragraph breaks")
	}
	if !strings.HasSuffix(long, "yourself.") {
		t.Errorf("full demo should end with the closing sentence: %q", long)
	}
}

type stubGenerator struct {
	text string
	err  error
}

func (s stubGenerator) Generate(context.Context, Request) (string, error) {
	return s.text, s.err
}

func TestFallback(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	ctx := context.Background()

	got, err := WithFallback(stubGenerator{text: "from model"}, logger).Generate(ctx, Request{TargetWords: 20})
	if err != nil || got != "from model" {
		t.Errorf("success pass-through = %q, %v", got, err)
	}

	got, err = WithFallback(stubGenerator{err: ErrServerError}, logger).Generate(ctx, Request{TargetWords: 20})
	if err != nil {
		t.Fatalf("fallback should swallow upstream errors: %v", err)
	}
	if got != DemoScript(20) {
		t.Errorf("fallback = %q, want demo script", got)
	}

	got, err = WithFallback(nil, nil).Generate(ctx, Request{TargetWords: 20})
	if err != nil || got != DemoScript(20) {
		t.Errorf("nil generator = %q, %v", got, err)
	}
}

func TestFallback_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithFallback(stubGenerator{err: context.Canceled}, nil).Generate(ctx, Request{TargetWords: 20})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
