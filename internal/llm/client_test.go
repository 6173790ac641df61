package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/desk-relay/internal/config"
)

func newCompletionServer(t *testing.T, content string, calls *int32, gotPrompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(body.Messages) == 1 && gotPrompt != nil {
			*gotPrompt = body.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  body.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
}

func TestCompleteReturnsContentUnmodified(t *testing.T) {
	var calls int32
	var prompt string
	raw := "Project_name: Apollo\nSeverity: High  ```not json```"
	srv := newCompletionServer(t, raw, &calls, &prompt)
	defer srv.Close()

	c := NewClient(config.LLMConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}, zap.NewNop())
	got, err := c.Complete(context.Background(), "gpt-4o", "extract this")
	if err != nil {
		t.Fatal(err)
	}
	if got != raw {
		t.Fatalf("content modified: %q", got)
	}
	if prompt != "extract this" {
		t.Fatalf("unexpected prompt sent: %q", prompt)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestCompleteMissingKey(t *testing.T) {
	var calls int32
	srv := newCompletionServer(t, "x", &calls, nil)
	defer srv.Close()

	c := NewClient(config.LLMConfig{BaseURL: srv.URL + "/v1"}, zap.NewNop())
	if _, err := c.Complete(context.Background(), "gpt-4o", "p"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("no call expected without key")
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.LLMConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, zap.NewNop())
	if _, err := c.Complete(context.Background(), "gpt-4o", "p"); err == nil {
		t.Fatalf("expected error on 401")
	}
}

func TestCompleteRateLimited(t *testing.T) {
	var calls int32
	srv := newCompletionServer(t, "ok", &calls, nil)
	defer srv.Close()

	c := NewClient(config.LLMConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", RateLimit: 0.001, RateBurst: 1}, zap.NewNop())
	if _, err := c.Complete(context.Background(), "m", "p"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Complete(ctx, "m", "p"); err == nil {
		t.Fatalf("expected limiter wait to fail on cancelled context")
	}
	if calls != 1 {
		t.Fatalf("expected throttled call to be skipped, got %d calls", calls)
	}
}
