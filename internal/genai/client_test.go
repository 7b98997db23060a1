package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
}

func TestCompleteReturnsContent(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"content":"hello","category":"MEMORY"}`}},
			},
		})
	})

	out, err := c.Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !strings.Contains(out, `"category":"MEMORY"`) {
		t.Errorf("content = %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotReq.Model != defaultModel {
		t.Errorf("model = %q, want %q", gotReq.Model, defaultModel)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestCompleteErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})

	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "   "}},
			},
		})
	})

	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for blank content")
	}
}

func TestCompleteNoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestCompleteMissingAPIKey(t *testing.T) {
	c := NewClient(Config{})
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	c := NewClient(Config{APIKey: "k", BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected timeout error")
	}
}
