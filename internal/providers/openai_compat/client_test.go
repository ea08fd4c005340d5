package openai_compat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quint/internal/fault"
	"quint/internal/providers"
)

func TestBuildPayloadJSONMode(t *testing.T) {
	c := New(Config{BaseURL: "https://api.openai.com/v1"})

	body, endpoint, err := c.buildPayload(providers.CompleteRequest{
		Model:        "gpt-4o-mini",
		SystemPrompt: "You are concise",
		UserPrompt:   "hello",
		MaxTokens:    123,
		Temperature:  0.4,
		WantsJSON:    true,
	})
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}
	if endpoint != "https://api.openai.com/v1/chat/completions" {
		t.Fatalf("unexpected endpoint %q", endpoint)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["model"] != "gpt-4o-mini" {
		t.Fatalf("expected model gpt-4o-mini, got %#v", payload["model"])
	}
	rf, ok := payload["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Fatalf("expected json_object response_format, got %#v", payload["response_format"])
	}
}

func TestBuildPayloadPlainText(t *testing.T) {
	c := New(Config{BaseURL: "https://api.x.ai/v1"})

	body, _, err := c.buildPayload(providers.CompleteRequest{Model: "grok-beta", UserPrompt: "hello"})
	if err != nil {
		t.Fatalf("build payload: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if _, ok := payload["response_format"]; ok {
		t.Fatalf("response_format must be absent without WantsJSON")
	}
	if _, ok := payload["messages"]; !ok {
		t.Fatalf("messages missing in payload")
	}
}

func TestCompleteClassifiesAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "bad-key"})
	_, err := c.Complete(context.Background(), providers.CompleteRequest{Model: "gpt-4o-mini", UserPrompt: "hi"})
	if !errors.Is(err, fault.ErrUpstreamAuth) {
		t.Fatalf("expected upstream auth error, got %v", err)
	}
}

func TestCompleteClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, MaxRetries: 0})
	_, err := c.Complete(context.Background(), providers.CompleteRequest{Model: "gpt-4o-mini", UserPrompt: "hi"})
	if !errors.Is(err, fault.ErrUpstreamRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestCompleteReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"question\":\"hi?\"}"}}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	resp, err := c.Complete(context.Background(), providers.CompleteRequest{Model: "gpt-4o-mini", UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Text != `{"question":"hi?"}` {
		t.Fatalf("got %q", resp.Text)
	}
}
