package registry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"quint/internal/catalog"
	"quint/internal/fault"
	"quint/internal/storage"
	"quint/internal/vault"
)

func newTestRegistry(t *testing.T) (*Registry, *storage.Store) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(ctx, "sqlite", ":memory:", true, "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	v, err := vault.New("registry-test-master-key")
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	return New(store, v, zerolog.Nop()), store
}

func TestSaveAndGetAPIKey(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if err := r.SaveAPIKey(ctx, catalog.ProviderOpenAI, "sk-test-123"); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}
	got, err := r.GetAPIKey(ctx, catalog.ProviderOpenAI)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if got != "sk-test-123" {
		t.Fatalf("got %q, want sk-test-123", got)
	}
}

func TestGetAPIKeyUnset(t *testing.T) {
	r, _ := newTestRegistry(t)

	got, err := r.GetAPIKey(context.Background(), catalog.ProviderAnthropic)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty key for unset provider, got %q", got)
	}
}

func TestSaveAPIKeyValidation(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if err := r.SaveAPIKey(ctx, catalog.ProviderOpenAI, ""); !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("empty key: got %v, want ErrValidation", err)
	}
	if err := r.SaveAPIKey(ctx, "nonsense", "sk-x"); !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("unknown provider: got %v, want ErrValidation", err)
	}
}

func TestGetAPIKeyUndecryptable(t *testing.T) {
	r, store := newTestRegistry(t)
	ctx := context.Background()

	// A record written under a different master key must be treated as
	// not configured, not as a fatal error.
	other, err := vault.New("some-other-master-key")
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	bundle, err := other.Encrypt("sk-unreadable")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	rec := Record{
		Keys:        map[string]vault.Bundle{catalog.ProviderOpenAI: bundle},
		ActiveModel: catalog.DefaultModel,
	}
	raw, _ := json.Marshal(rec)
	if err := store.PutAIRecord(ctx, string(raw)); err != nil {
		t.Fatalf("put record: %v", err)
	}

	got, err := r.GetAPIKey(ctx, catalog.ProviderOpenAI)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty key for undecryptable bundle, got %q", got)
	}
}

func TestDeleteAPIKeyIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if err := r.DeleteAPIKey(ctx, catalog.ProviderGoogle); err != nil {
		t.Fatalf("delete absent key: %v", err)
	}

	if err := r.SaveAPIKey(ctx, catalog.ProviderGoogle, "g-key"); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}
	if err := r.DeleteAPIKey(ctx, catalog.ProviderGoogle); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	got, err := r.GetAPIKey(ctx, catalog.ProviderGoogle)
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if got != "" {
		t.Fatalf("expected key gone after delete, got %q", got)
	}
}

func TestSnapshotNeverExposesPlaintext(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	secret := "sk-super-secret-value"
	if err := r.SaveAPIKey(ctx, catalog.ProviderOpenAI, secret); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}

	snap, err := r.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.HasKeys {
		t.Fatal("HasKeys = false, want true")
	}
	if !snap.ProviderKeys[catalog.ProviderOpenAI] {
		t.Fatal("ProviderKeys[openai] = false, want true")
	}
	if snap.ProviderKeys[catalog.ProviderAnthropic] {
		t.Fatal("ProviderKeys[anthropic] = true, want false")
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	if strings.Contains(string(raw), secret) {
		t.Fatal("snapshot serialization leaked plaintext key material")
	}
}

func TestSnapshotDefaults(t *testing.T) {
	r, _ := newTestRegistry(t)

	snap, err := r.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.ActiveModel != catalog.DefaultModel {
		t.Fatalf("ActiveModel = %q, want %q", snap.ActiveModel, catalog.DefaultModel)
	}
	if len(snap.Models) == 0 {
		t.Fatal("expected built-in models in empty registry snapshot")
	}
	if snap.HasKeys {
		t.Fatal("HasKeys = true on empty registry")
	}
}

func TestAddModelAndActivate(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	m := catalog.Model{ID: "gpt-4o-2024-11-20", DisplayName: "GPT-4o (2024-11-20)", Provider: catalog.ProviderOpenAI}
	if err := r.AddModel(ctx, m); err != nil {
		t.Fatalf("AddModel: %v", err)
	}
	if err := r.SetActiveModel(ctx, m.ID); err != nil {
		t.Fatalf("SetActiveModel: %v", err)
	}

	active, err := r.ActiveModel(ctx)
	if err != nil {
		t.Fatalf("ActiveModel: %v", err)
	}
	if active.ID != m.ID {
		t.Fatalf("active = %q, want %q", active.ID, m.ID)
	}
	if !active.Custom {
		t.Fatal("custom model lost its Custom flag")
	}
}

func TestAddModelConflicts(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if err := r.AddModel(ctx, catalog.Model{ID: catalog.DefaultModel, DisplayName: "dupe", Provider: catalog.ProviderOpenAI}); !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("builtin collision: got %v, want ErrConflict", err)
	}

	m := catalog.Model{ID: "my-model", DisplayName: "Mine", Provider: catalog.ProviderXAI}
	if err := r.AddModel(ctx, m); err != nil {
		t.Fatalf("AddModel: %v", err)
	}
	if err := r.AddModel(ctx, m); !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("duplicate custom: got %v, want ErrConflict", err)
	}

	if err := r.AddModel(ctx, catalog.Model{ID: "x", Provider: catalog.ProviderOpenAI}); !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("missing display name: got %v, want ErrValidation", err)
	}
}

func TestDeleteModel(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if err := r.DeleteModel(ctx, catalog.DefaultModel); !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("delete builtin: got %v, want ErrForbidden", err)
	}
	if err := r.DeleteModel(ctx, "never-added"); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("delete missing: got %v, want ErrNotFound", err)
	}

	m := catalog.Model{ID: "ephemeral-model", DisplayName: "Ephemeral", Provider: catalog.ProviderAnthropic}
	if err := r.AddModel(ctx, m); err != nil {
		t.Fatalf("AddModel: %v", err)
	}
	if err := r.SetActiveModel(ctx, m.ID); err != nil {
		t.Fatalf("SetActiveModel: %v", err)
	}
	if err := r.DeleteModel(ctx, m.ID); err != nil {
		t.Fatalf("DeleteModel: %v", err)
	}

	// Deleting the active model resets selection to the default.
	snap, err := r.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.ActiveModel != catalog.DefaultModel {
		t.Fatalf("ActiveModel after delete = %q, want %q", snap.ActiveModel, catalog.DefaultModel)
	}
	if _, ok := catalog.Find(snap.Models, m.ID); ok {
		t.Fatal("deleted model still present in snapshot")
	}
}

func TestSetActiveModelUnknown(t *testing.T) {
	r, _ := newTestRegistry(t)

	err := r.SetActiveModel(context.Background(), "totally-unknown-123")
	if !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
