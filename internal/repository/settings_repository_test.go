package repository

import (
	"context"
	"testing"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSettingsRepository_SaveAndLoad(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	repo := NewCacheSettingsRepository(c, "desk")
	ctx := context.Background()

	_, ok, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	want := models.Settings{Enabled: true, OnlyImportant: true, AutoMarkAsRead: true}
	require.NoError(t, repo.Save(ctx, want))

	got, ok, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	var raw string
	require.NoError(t, c.Get(ctx, "settings:desk", &raw))
	assert.JSONEq(t, `{"enabled":true,"browserNotifications":false,"soundEnabled":false,"onlyImportant":true,"autoMarkAsRead":true}`, raw)
}

func TestCacheSettingsRepository_ProfilesAreIsolated(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, NewCacheSettingsRepository(c, "a").Save(ctx, models.DefaultSettings()))

	_, ok, err := NewCacheSettingsRepository(c, "").Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
