package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettingsRepo struct {
	mu      sync.Mutex
	saved   *models.Settings
	saves   int
	loadErr error
}

func (r *memSettingsRepo) Load(context.Context) (models.Settings, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return models.Settings{}, false, r.loadErr
	}
	if r.saved == nil {
		return models.Settings{}, false, nil
	}
	return *r.saved, true, nil
}

func (r *memSettingsRepo) Save(_ context.Context, s models.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = &s
	r.saves++
	return nil
}

func (r *memSettingsRepo) get() (models.Settings, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saved == nil {
		return models.Settings{}, false
	}
	return *r.saved, true
}

func TestSettingsSync_RestoresPersistedSettings(t *testing.T) {
	s, _ := newStartedStore(t, models.DefaultSettings())
	saved := models.Settings{Enabled: false, SoundEnabled: true, OnlyImportant: true}
	repo := &memSettingsRepo{saved: &saved}

	ss := NewSettingsSync(repo, s, s, logger.Nop())
	require.NoError(t, ss.Restore(context.Background()))

	assert.Equal(t, saved, s.Snapshot().Settings)
}

func TestSettingsSync_NothingPersisted(t *testing.T) {
	s, _ := newStartedStore(t, models.DefaultSettings())
	ss := NewSettingsSync(&memSettingsRepo{}, s, s, logger.Nop())

	require.NoError(t, ss.Restore(context.Background()))
	assert.Equal(t, models.DefaultSettings(), s.Snapshot().Settings)
}

func TestSettingsSync_LoadError(t *testing.T) {
	s, _ := newStartedStore(t, models.DefaultSettings())
	ss := NewSettingsSync(&memSettingsRepo{loadErr: errors.New("redis down")}, s, s, logger.Nop())

	assert.ErrorContains(t, ss.Restore(context.Background()), "redis down")
}

func TestSettingsSync_SavesChanges(t *testing.T) {
	s, _ := newStartedStore(t, models.DefaultSettings())
	repo := &memSettingsRepo{}
	ss := NewSettingsSync(repo, s, s, logger.Nop())
	s.Subscribe(ss)
	ss.Start()
	defer ss.Close()

	dispatch(t, s, models.Add{Record: rec("a", models.KindInfo, false)})
	time.Sleep(20 * time.Millisecond)
	_, ok := repo.get()
	assert.False(t, ok, "non-settings commits are not persisted")

	dispatch(t, s, models.UpdateSettings{Patch: models.SettingsPatch{AutoMarkAsRead: boolPtr(true)}})
	assert.Eventually(t, func() bool {
		got, ok := repo.get()
		return ok && got.AutoMarkAsRead
	}, time.Second, 5*time.Millisecond)
}

func TestSettingsSync_CloseFlushesPending(t *testing.T) {
	s, _ := newStartedStore(t, models.DefaultSettings())
	repo := &memSettingsRepo{}
	ss := NewSettingsSync(repo, s, s, logger.Nop())
	s.Subscribe(ss)

	// writer not started: the change can only be saved by Close
	dispatch(t, s, models.UpdateSettings{Patch: models.SettingsPatch{SoundEnabled: boolPtr(false)}})
	ss.Close()

	got, ok := repo.get()
	require.True(t, ok)
	assert.False(t, got.SoundEnabled)
}
