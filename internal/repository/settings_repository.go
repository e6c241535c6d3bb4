package repository

import (
	"context"
	"errors"
	"fmt"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/internal/domain/repository"
	"CryptoNotify/pkg/cache"
)

// CacheSettingsRepository stores settings as JSON under settings:<profile>.
type CacheSettingsRepository struct {
	cache cache.Service
	key   string
}

// NewCacheSettingsRepository creates a settings repository for profile.
func NewCacheSettingsRepository(c cache.Service, profile string) repository.SettingsRepository {
	if profile == "" {
		profile = "default"
	}
	return &CacheSettingsRepository{cache: c, key: cache.GenerateKey("settings", profile)}
}

func (r *CacheSettingsRepository) Load(ctx context.Context) (models.Settings, bool, error) {
	var s models.Settings
	err := r.cache.Get(ctx, r.key, &s)
	switch {
	case err == nil:
		return s, true, nil
	case errors.Is(err, cache.ErrCacheMiss):
		return models.Settings{}, false, nil
	default:
		return models.Settings{}, false, fmt.Errorf("load settings: %w", err)
	}
}

// Save overwrites the stored settings.
func (r *CacheSettingsRepository) Save(ctx context.Context, s models.Settings) error {
	if err := r.cache.Set(ctx, r.key, s, 0); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
