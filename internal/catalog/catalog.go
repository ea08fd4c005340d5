// Package catalog owns the model catalog and the capability rules that keep
// the orchestrator out of per-provider special cases. Providers rename and
// retire models without notice; everything volatile lives here.
package catalog

import "strings"

// DefaultModel is the fallback whenever a selection is absent or unusable.
const DefaultModel = "gpt-4o-mini"

// Supported provider identifiers. One credential record per provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderXAI       = "xai"
)

// Providers lists every provider a credential can be stored for.
var Providers = []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderXAI}

// Model describes one selectable model.
type Model struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Provider    string `json:"provider"`
	Custom      bool   `json:"custom,omitempty"`
}

var builtins = []Model{
	{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini", Provider: ProviderOpenAI},
	{ID: "gpt-4o", DisplayName: "GPT-4o", Provider: ProviderOpenAI},
	{ID: "gpt-4-turbo", DisplayName: "GPT-4 Turbo", Provider: ProviderOpenAI},
	{ID: "gpt-4", DisplayName: "GPT-4", Provider: ProviderOpenAI},
	{ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", Provider: ProviderOpenAI},
	{ID: "claude-3-5-sonnet-20240620", DisplayName: "Claude 3.5 Sonnet", Provider: ProviderAnthropic},
	{ID: "claude-3-haiku-20240307", DisplayName: "Claude 3 Haiku", Provider: ProviderAnthropic},
	{ID: "gemini-1.5-pro", DisplayName: "Gemini 1.5 Pro", Provider: ProviderGoogle},
	{ID: "gemini-1.5-flash", DisplayName: "Gemini 1.5 Flash", Provider: ProviderGoogle},
	{ID: "grok-beta", DisplayName: "Grok Beta", Provider: ProviderXAI},
}

// Builtin returns a copy of the immutable built-in catalog.
func Builtin() []Model {
	out := make([]Model, len(builtins))
	copy(out, builtins)
	return out
}

// IsBuiltin reports whether id belongs to the built-in catalog.
func IsBuiltin(id string) bool {
	for _, m := range builtins {
		if m.ID == id {
			return true
		}
	}
	return false
}

// KnownProvider reports whether provider is in the supported set.
func KnownProvider(provider string) bool {
	for _, p := range Providers {
		if p == provider {
			return true
		}
	}
	return false
}

// Merge unions the built-in catalog with custom models. Built-ins win on id
// collision. Inputs are never mutated.
func Merge(builtin, custom []Model) []Model {
	out := make([]Model, 0, len(builtin)+len(custom))
	seen := make(map[string]bool, len(builtin))
	for _, m := range builtin {
		out = append(out, m)
		seen[m.ID] = true
	}
	for _, m := range custom {
		if seen[m.ID] {
			continue
		}
		m.Custom = true
		out = append(out, m)
		seen[m.ID] = true
	}
	return out
}

// Find returns the descriptor for id from the merged set, if present.
func Find(merged []Model, id string) (Model, bool) {
	for _, m := range merged {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// ProviderFor guesses the provider from a model id's naming convention.
// Returns "" when no convention matches.
func ProviderFor(id string) string {
	switch {
	case strings.HasPrefix(id, "gpt-"), strings.HasPrefix(id, "o1"), strings.HasPrefix(id, "chatgpt-"):
		return ProviderOpenAI
	case strings.HasPrefix(id, "claude-"):
		return ProviderAnthropic
	case strings.HasPrefix(id, "gemini-"):
		return ProviderGoogle
	case strings.HasPrefix(id, "grok-"):
		return ProviderXAI
	default:
		return ""
	}
}
