package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domainllm "contentflow/internal/domain/services/llm"
	"contentflow/internal/service/ratelimit"
	"contentflow/internal/service/retry"
)

const messageJSON = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-sonnet-4-5-20250929",
	"content": [{"type": "text", "text": "{\"overview\": \"ok\"}"}],
	"stop_reason": "end_turn",
	"stop_sequence": null,
	"usage": {"input_tokens": 12, "output_tokens": 7}
}`

func newTestProvider(t *testing.T, url string) *Provider {
	t.Helper()
	p, err := NewProvider("sk-test",
		ratelimit.NewRegistry(map[string]ratelimit.Limit{}),
		WithBaseURL(url),
		WithRetry(retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestGenerateResponse(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, messageJSON)
	}))
	defer srv.Close()

	temp := 0.3
	resp, err := newTestProvider(t, srv.URL).GenerateResponse(context.Background(), &domainllm.GenerateRequest{
		Model:       "claude-sonnet-4-5-20250929",
		System:      "be terse",
		Prompt:      "summarize this",
		MaxTokens:   2048,
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}

	if resp.Text != `{"overview": "ok"}` {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.TotalTokens() != 19 {
		t.Errorf("TotalTokens() = %d, want 19", resp.TotalTokens())
	}
	if body["max_tokens"] != float64(2048) || body["temperature"] != 0.3 {
		t.Errorf("request body = %v", body)
	}
}

func TestGenerateResponse_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`)
			return
		}
		_, _ = io.WriteString(w, messageJSON)
	}))
	defer srv.Close()

	_, err := newTestProvider(t, srv.URL).GenerateResponse(context.Background(), &domainllm.GenerateRequest{
		Model:  "claude-sonnet-4-5-20250929",
		Prompt: "hi",
	})
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestGenerateResponse_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	_, err := newTestProvider(t, srv.URL).GenerateResponse(context.Background(), &domainllm.GenerateRequest{
		Model:  "claude-sonnet-4-5-20250929",
		Prompt: "hi",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestSupportsModel(t *testing.T) {
	p, _ := NewProvider("sk-test", nil)
	if !p.SupportsModel("claude-haiku-4-5-20251001") || p.SupportsModel("lorem-fast") {
		t.Error("SupportsModel should accept only claude- models")
	}
	if _, err := NewProvider("", nil); err == nil {
		t.Error("expected error without API key")
	}
}
