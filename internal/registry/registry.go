// Package registry persists provider credentials and the model catalog as a
// single durable record. Credentials pass through the vault; plaintext keys
// never leave GetAPIKey. Mutations are serialized by a mutex around the
// read-modify-write cycle so concurrent administrative calls cannot lose
// updates; reads take the latest stored snapshot without the write lock.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"quint/internal/catalog"
	"quint/internal/fault"
	"quint/internal/storage"
	"quint/internal/vault"
)

// Record is the durable shape: one ciphertext bundle per provider, the
// custom model list, and the active model id.
type Record struct {
	Keys        map[string]vault.Bundle `json:"keys"`
	Models      []catalog.Model         `json:"models"`
	ActiveModel string                  `json:"activeModel"`
}

// Snapshot is the caller-facing view. It never contains plaintext keys,
// only presence flags.
type Snapshot struct {
	Models       []catalog.Model `json:"models"`
	ActiveModel  string          `json:"activeModel"`
	HasKeys      bool            `json:"hasKeys"`
	ProviderKeys map[string]bool `json:"providerKeys"`
}

type Registry struct {
	store  *storage.Store
	vault  *vault.Vault
	logger zerolog.Logger

	mu sync.Mutex
}

func New(store *storage.Store, v *vault.Vault, logger zerolog.Logger) *Registry {
	return &Registry{store: store, vault: v, logger: logger}
}

func (r *Registry) load(ctx context.Context) (Record, error) {
	raw, err := r.store.GetAIRecord(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Record{Keys: map[string]vault.Bundle{}, ActiveModel: catalog.DefaultModel}, nil
		}
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, fmt.Errorf("decode registry record: %w", err)
	}
	if rec.Keys == nil {
		rec.Keys = map[string]vault.Bundle{}
	}
	if rec.ActiveModel == "" {
		rec.ActiveModel = catalog.DefaultModel
	}
	return rec, nil
}

func (r *Registry) persist(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode registry record: %w", err)
	}
	return r.store.PutAIRecord(ctx, string(raw))
}

// GetAPIKey returns the decrypted key for provider, or "" when none is
// configured. A key that fails to decrypt is logged and treated as absent
// rather than crashing the host: the operator re-saves it.
func (r *Registry) GetAPIKey(ctx context.Context, provider string) (string, error) {
	if !catalog.KnownProvider(provider) {
		return "", fmt.Errorf("%w: unknown provider %q", fault.ErrValidation, provider)
	}
	rec, err := r.load(ctx)
	if err != nil {
		return "", err
	}
	bundle, ok := rec.Keys[provider]
	if !ok {
		return "", nil
	}
	plaintext, err := r.vault.Decrypt(bundle)
	if err != nil {
		r.logger.Warn().Err(err).Str("provider", provider).Msg("stored api key failed to decrypt, treating as not configured")
		return "", nil
	}
	return plaintext, nil
}

func (r *Registry) SaveAPIKey(ctx context.Context, provider, plaintext string) error {
	if provider == "" || plaintext == "" {
		return fmt.Errorf("%w: provider and api key are required", fault.ErrValidation)
	}
	if !catalog.KnownProvider(provider) {
		return fmt.Errorf("%w: unknown provider %q", fault.ErrValidation, provider)
	}
	bundle, err := r.vault.Encrypt(plaintext)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.load(ctx)
	if err != nil {
		return err
	}
	rec.Keys[provider] = bundle
	if err := r.persist(ctx, rec); err != nil {
		return err
	}
	r.audit(ctx, "api_key.save", fmt.Sprintf(`{"provider":%q}`, provider))
	return nil
}

// DeleteAPIKey is idempotent: deleting an absent key is not an error.
func (r *Registry) DeleteAPIKey(ctx context.Context, provider string) error {
	if !catalog.KnownProvider(provider) {
		return fmt.Errorf("%w: unknown provider %q", fault.ErrValidation, provider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := rec.Keys[provider]; !ok {
		return nil
	}
	delete(rec.Keys, provider)
	if err := r.persist(ctx, rec); err != nil {
		return err
	}
	r.audit(ctx, "api_key.delete", fmt.Sprintf(`{"provider":%q}`, provider))
	return nil
}

// Snapshot returns the merged catalog, the validated active model and key
// presence flags. Plaintext never appears here.
func (r *Registry) Snapshot(ctx context.Context) (Snapshot, error) {
	rec, err := r.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	merged := catalog.Merge(catalog.Builtin(), rec.Models)

	active := rec.ActiveModel
	if _, ok := catalog.Find(merged, active); !ok {
		active = catalog.DefaultModel
	}

	providerKeys := make(map[string]bool, len(catalog.Providers))
	hasKeys := false
	for _, p := range catalog.Providers {
		_, ok := rec.Keys[p]
		providerKeys[p] = ok
		hasKeys = hasKeys || ok
	}

	return Snapshot{
		Models:       merged,
		ActiveModel:  active,
		HasKeys:      hasKeys,
		ProviderKeys: providerKeys,
	}, nil
}

// ActiveModel resolves the current selection to a descriptor from the merged
// catalog, falling back to the default when the selection is stale.
func (r *Registry) ActiveModel(ctx context.Context) (catalog.Model, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return catalog.Model{}, err
	}
	m, ok := catalog.Find(snap.Models, snap.ActiveModel)
	if !ok {
		m, _ = catalog.Find(snap.Models, catalog.DefaultModel)
	}
	return m, nil
}

func (r *Registry) SetActiveModel(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.load(ctx)
	if err != nil {
		return err
	}
	merged := catalog.Merge(catalog.Builtin(), rec.Models)
	if _, ok := catalog.Find(merged, id); !ok {
		return fmt.Errorf("%w: model %q is not in the catalog", fault.ErrNotFound, id)
	}
	rec.ActiveModel = id
	if err := r.persist(ctx, rec); err != nil {
		return err
	}
	r.audit(ctx, "model.activate", fmt.Sprintf(`{"model":%q}`, id))
	return nil
}

func (r *Registry) AddModel(ctx context.Context, m catalog.Model) error {
	if m.ID == "" || m.DisplayName == "" {
		return fmt.Errorf("%w: model id and display name are required", fault.ErrValidation)
	}
	if !catalog.KnownProvider(m.Provider) {
		return fmt.Errorf("%w: unknown provider %q", fault.ErrValidation, m.Provider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.load(ctx)
	if err != nil {
		return err
	}
	if catalog.IsBuiltin(m.ID) {
		return fmt.Errorf("%w: model %q is built in", fault.ErrConflict, m.ID)
	}
	for _, existing := range rec.Models {
		if existing.ID == m.ID {
			return fmt.Errorf("%w: model %q already exists", fault.ErrConflict, m.ID)
		}
	}
	m.Custom = true
	rec.Models = append(rec.Models, m)
	if err := r.persist(ctx, rec); err != nil {
		return err
	}
	r.audit(ctx, "model.add", fmt.Sprintf(`{"model":%q,"provider":%q}`, m.ID, m.Provider))
	return nil
}

// DeleteModel removes a custom model. Built-ins cannot be deleted. Removing
// the active model resets the selection to the default.
func (r *Registry) DeleteModel(ctx context.Context, id string) error {
	if catalog.IsBuiltin(id) {
		return fmt.Errorf("%w: model %q is built in", fault.ErrForbidden, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.load(ctx)
	if err != nil {
		return err
	}
	kept := rec.Models[:0]
	found := false
	for _, m := range rec.Models {
		if m.ID == id {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return fmt.Errorf("%w: model %q", fault.ErrNotFound, id)
	}
	rec.Models = kept
	if rec.ActiveModel == id {
		rec.ActiveModel = catalog.DefaultModel
	}
	if err := r.persist(ctx, rec); err != nil {
		return err
	}
	r.audit(ctx, "model.delete", fmt.Sprintf(`{"model":%q}`, id))
	return nil
}

func (r *Registry) audit(ctx context.Context, action, metaJSON string) {
	if err := r.store.LogAction(ctx, storage.AuditEntry{Action: action, MetaJSON: metaJSON}); err != nil {
		r.logger.Warn().Err(err).Str("action", action).Msg("failed to write audit entry")
	}
}
