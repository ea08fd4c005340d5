// Package settings serves prompt templates and tunable AI configuration out
// of the storage layer. Templates are authored by operators; a missing
// template for a known use case is a hard error, never silently defaulted.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quint/internal/fault"
	"quint/internal/prompt"
	"quint/internal/storage"
)

const aiConfigKey = "ai_config"

// AIConfig holds operator-tunable scoring weights for insight synthesis.
type AIConfig struct {
	Weights map[string]float64 `json:"weights"`
}

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

// PromptTemplate returns the stored template body for a use case.
func (s *Service) PromptTemplate(ctx context.Context, useCase string) (string, error) {
	if !prompt.KnownUseCase(useCase) {
		return "", fmt.Errorf("%w: unknown prompt use case %q", fault.ErrValidation, useCase)
	}
	body, err := s.store.GetPromptTemplate(ctx, useCase)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%w: no prompt template for %q, configure prompts first", fault.ErrNotFound, useCase)
		}
		return "", err
	}
	return body, nil
}

func (s *Service) SavePromptTemplate(ctx context.Context, useCase, body string) error {
	if !prompt.KnownUseCase(useCase) {
		return fmt.Errorf("%w: unknown prompt use case %q", fault.ErrValidation, useCase)
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%w: prompt template body is empty", fault.ErrValidation)
	}
	return s.store.UpsertPromptTemplate(ctx, useCase, body)
}

func (s *Service) ListPromptTemplates(ctx context.Context) ([]storage.PromptTemplate, error) {
	return s.store.ListPromptTemplates(ctx)
}

func (s *Service) SaveAIConfig(ctx context.Context, cfg AIConfig) error {
	for name, w := range cfg.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("%w: weight %q must be within [0, 1]", fault.ErrValidation, name)
		}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode ai config: %w", err)
	}
	return s.store.SetSetting(ctx, aiConfigKey, string(raw))
}

// AIConfig returns the stored configuration, or an empty one when nothing
// has been saved yet.
func (s *Service) AIConfig(ctx context.Context) (AIConfig, error) {
	raw, err := s.store.GetSetting(ctx, aiConfigKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return AIConfig{Weights: map[string]float64{}}, nil
		}
		return AIConfig{}, err
	}
	var cfg AIConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return AIConfig{}, fmt.Errorf("decode ai config: %w", err)
	}
	if cfg.Weights == nil {
		cfg.Weights = map[string]float64{}
	}
	return cfg, nil
}
