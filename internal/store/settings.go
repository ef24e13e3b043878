package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"listing-sync/internal/models"
)

const catalogSettingsKey = "settings:catalog"

// SettingsStore holds the catalog connection scalars
type SettingsStore struct {
	kv       KV
	defaults models.CatalogSettings
}

// NewSettingsStore creates a settings store falling back to defaults
func NewSettingsStore(kv KV, defaults models.CatalogSettings) *SettingsStore {
	return &SettingsStore{kv: kv, defaults: defaults}
}

// GetCatalogSettings returns the stored settings, filling unset fields from defaults
func (s *SettingsStore) GetCatalogSettings(ctx context.Context) (models.CatalogSettings, error) {
	settings := s.defaults

	stored, err := s.stored(ctx)
	if err != nil {
		return models.CatalogSettings{}, err
	}
	if stored.BaseURL != "" {
		settings.BaseURL = stored.BaseURL
	}
	if stored.APIPath != "" {
		settings.APIPath = stored.APIPath
	}
	if stored.APIKey != "" {
		settings.APIKey = stored.APIKey
	}
	return withDefaultPath(settings), nil
}

// SaveCatalogSettings overwrites the stored settings. An empty API key keeps
// the key saved before, since the key is never read back by clients.
func (s *SettingsStore) SaveCatalogSettings(ctx context.Context, settings models.CatalogSettings) error {
	if settings.APIKey == "" {
		previous, err := s.stored(ctx)
		if err != nil {
			return err
		}
		settings.APIKey = previous.APIKey
	}

	raw, err := json.Marshal(withDefaultPath(settings))
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, catalogSettingsKey, raw); err != nil {
		return fmt.Errorf("failed to write catalog settings: %w", err)
	}
	return nil
}

// stored returns the saved settings, or zero settings when none were saved
func (s *SettingsStore) stored(ctx context.Context) (models.CatalogSettings, error) {
	var stored models.CatalogSettings

	raw, err := s.kv.Get(ctx, catalogSettingsKey)
	if errors.Is(err, ErrNotFound) {
		return stored, nil
	}
	if err != nil {
		return stored, fmt.Errorf("failed to read catalog settings: %w", err)
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return stored, fmt.Errorf("failed to decode catalog settings: %w", err)
	}
	return stored, nil
}

func withDefaultPath(settings models.CatalogSettings) models.CatalogSettings {
	if settings.APIPath == "" {
		settings.APIPath = models.DefaultAPIPath
	}
	return settings
}
