// Package registry constructs provider clients from a provider id and a
// decrypted API key. Base URLs default to the vendors' public endpoints;
// Google is reached through its OpenAI-compatible surface.
package registry

import (
	"fmt"
	"net/http"
	"time"

	"quint/internal/catalog"
	"quint/internal/providers"
	"quint/internal/providers/anthropic_messages"
	"quint/internal/providers/openai_compat"
)

var defaultBaseURLs = map[string]string{
	catalog.ProviderOpenAI:    "https://api.openai.com/v1",
	catalog.ProviderXAI:       "https://api.x.ai/v1",
	catalog.ProviderGoogle:    "https://generativelanguage.googleapis.com/v1beta/openai",
	catalog.ProviderAnthropic: "https://api.anthropic.com",
}

// Builder carries the shared HTTP settings for every client it constructs.
type Builder struct {
	HTTPClient  *http.Client
	MaxRetries  int
	BackoffBase time.Duration
	// BaseURLs overrides the default endpoint per provider (gateways, tests).
	BaseURLs map[string]string
}

func (b *Builder) baseURL(provider string) string {
	if b.BaseURLs != nil {
		if u, ok := b.BaseURLs[provider]; ok && u != "" {
			return u
		}
	}
	return defaultBaseURLs[provider]
}

// Build returns a client for the given provider using apiKey.
func (b *Builder) Build(provider, apiKey string) (providers.Client, error) {
	switch provider {
	case catalog.ProviderOpenAI, catalog.ProviderXAI, catalog.ProviderGoogle:
		return openai_compat.New(openai_compat.Config{
			BaseURL:     b.baseURL(provider),
			APIKey:      apiKey,
			HTTPClient:  b.HTTPClient,
			MaxRetries:  b.MaxRetries,
			BackoffBase: b.BackoffBase,
		}), nil

	case catalog.ProviderAnthropic:
		return anthropic_messages.New(anthropic_messages.Config{
			BaseURL:     b.baseURL(provider),
			APIKey:      apiKey,
			HTTPClient:  b.HTTPClient,
			MaxRetries:  b.MaxRetries,
			BackoffBase: b.BackoffBase,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
}
