package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing version header")
		}

		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.MaxTokens != 1024 {
			t.Errorf("expected max_tokens 1024, got %d", req.MaxTokens)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("expected single user message, got %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(messagesResponse{
			Content: []contentBlock{{Type: "text", Text: "generated"}},
		})
	}))
	defer srv.Close()

	client := NewAnthropicClient(srv.URL, "test-key", "test-model")
	text, err := client.Complete(context.Background(), "hello", 1024)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != "generated" {
		t.Fatalf("expected generated, got %q", text)
	}
}

func TestAnthropicClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(messagesResponse{
			Error: &apiError{Type: "rate_limit_error", Message: "slow down"},
		})
	}))
	defer srv.Close()

	client := NewAnthropicClient(srv.URL, "test-key", "test-model")
	if _, err := client.Complete(context.Background(), "hello", 1024); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}

func TestAnthropicClientMissingKey(t *testing.T) {
	client := NewAnthropicClient("http://localhost:0", "", "test-model")
	if _, err := client.Complete(context.Background(), "hello", 1024); err == nil {
		t.Fatalf("expected error when api key is missing")
	}
}
