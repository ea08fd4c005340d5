package anthropic_messages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quint/internal/fault"
	"quint/internal/providers"
)

const apiVersion = "2023-06-01"

type Config struct {
	BaseURL     string
	APIKey      string
	HTTPClient  *http.Client
	MaxRetries  int
	BackoffBase time.Duration
}

type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 400 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{cfg: cfg}
}

var _ providers.Client = (*Client)(nil)

// Complete calls the messages API. WantsJSON is ignored: the API has no
// structured-output switch, the capability resolver already reports false
// for these models.
func (c *Client) Complete(ctx context.Context, req providers.CompleteRequest) (providers.CompleteResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	payload := map[string]any{
		"model":      req.Model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": req.UserPrompt},
		},
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		payload["system"] = req.SystemPrompt
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return providers.CompleteResponse{}, fmt.Errorf("marshal messages payload: %w", err)
	}

	endpointURL := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/v1/messages"

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		text, retry, err := c.callOnce(ctx, endpointURL, body)
		if err == nil {
			return providers.CompleteResponse{Text: text}, nil
		}
		lastErr = err
		if !retry || attempt == c.cfg.MaxRetries {
			break
		}
		backoff := c.cfg.BackoffBase * (1 << attempt)
		select {
		case <-ctx.Done():
			return providers.CompleteResponse{}, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return providers.CompleteResponse{}, lastErr
}

func (c *Client) callOnce(ctx context.Context, endpointURL string, body []byte) (text string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("%w: request failed: %v", fault.ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", false, fmt.Errorf("%w: read response body: %v", fault.ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", false, fmt.Errorf("%w: status %d", fault.ErrUpstreamAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return "", false, fmt.Errorf("%w: status %d", fault.ErrUpstreamModelNotFound, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", true, fmt.Errorf("%w: status %d", fault.ErrUpstreamRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return "", true, fmt.Errorf("%w: temporary status %d", fault.ErrUpstream, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", false, fmt.Errorf("%w: status %d", fault.ErrUpstream, resp.StatusCode)
	}

	text, err = parseMessages(respBody)
	if err != nil {
		return "", false, err
	}
	return text, false, nil
}

func parseMessages(body []byte) (string, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode messages response: %v", fault.ErrUpstream, err)
	}
	parts := make([]string, 0, len(resp.Content))
	for _, c := range resp.Content {
		if c.Type == "text" && strings.TrimSpace(c.Text) != "" {
			parts = append(parts, c.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: missing text content in messages response", fault.ErrUpstream)
	}
	return strings.Join(parts, "\n"), nil
}
