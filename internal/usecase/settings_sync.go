package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"CryptoNotify/internal/domain/models"
	drepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/pkg/logger"
)

// SettingsSync restores persisted settings at startup and saves every
// settings change. Saves are coalesced: only the latest settings are written.
type SettingsSync struct {
	repo       drepo.SettingsRepository
	dispatcher drepo.Dispatcher
	state      drepo.StateReader
	logger     *logger.Logger

	poke   chan struct{}
	dirty  atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewSettingsSync(repo drepo.SettingsRepository, d drepo.Dispatcher, state drepo.StateReader, l *logger.Logger) *SettingsSync {
	ctx, cancel := context.WithCancel(context.Background())
	return &SettingsSync{
		repo:       repo,
		dispatcher: d,
		state:      state,
		logger:     l.Component("settings_sync"),
		poke:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Restore applies persisted settings, if any, through UPDATE_SETTINGS.
func (s *SettingsSync) Restore(ctx context.Context) error {
	saved, ok, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return nil
	}
	if _, err := s.dispatcher.Dispatch(ctx, models.UpdateSettings{Patch: models.PatchFrom(saved)}); err != nil {
		return fmt.Errorf("apply settings: %w", err)
	}
	s.logger.Info("restored persisted settings")
	return nil
}

// Start launches the writer.
func (s *SettingsSync) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-s.poke:
				s.save(s.ctx)
			}
		}
	}()
}

// OnCommit implements repository.Observer.
func (s *SettingsSync) OnCommit(c models.Commit) {
	if !c.SettingsChanged() {
		return
	}
	s.dirty.Store(true)
	select {
	case s.poke <- struct{}{}:
	default:
	}
}

func (s *SettingsSync) save(ctx context.Context) {
	if !s.dirty.Swap(false) {
		return
	}
	if err := s.repo.Save(ctx, s.state.Snapshot().Settings); err != nil {
		s.dirty.Store(true)
		s.logger.Warn("failed to persist settings", logger.Error(err))
	}
}

// Close stops the writer after a final save of unsaved changes.
func (s *SettingsSync) Close() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.save(ctx)
	})
}
