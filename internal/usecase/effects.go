package usecase

import (
	"context"
	"sync"

	"CryptoNotify/internal/domain/models"
	drepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/pkg/logger"
)

type effectJob struct {
	record  models.Record
	desktop bool
	sound   bool
}

// EffectRunner triggers the desktop and sound bridges for inserted records.
//
// Gating is decided from the settings of the committing state; the bridges
// themselves run on a background worker so the store loop never waits on
// the OS.
type EffectRunner struct {
	desktop drepo.DesktopNotifier
	sound   drepo.SoundPlayer
	metrics drepo.Metrics
	logger  *logger.Logger

	queue  chan effectJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewEffectRunner creates a runner. Either bridge may be nil.
func NewEffectRunner(desktop drepo.DesktopNotifier, sound drepo.SoundPlayer, metrics drepo.Metrics, l *logger.Logger, queueSize int) *EffectRunner {
	if queueSize <= 0 {
		queueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &EffectRunner{
		desktop: desktop,
		sound:   sound,
		metrics: metrics,
		logger:  l.Component("effects"),
		queue:   make(chan effectJob, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the worker.
func (e *EffectRunner) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-e.ctx.Done():
				return
			case job := <-e.queue:
				e.run(job)
			}
		}
	}()
}

// OnCommit implements repository.Observer.
func (e *EffectRunner) OnCommit(c models.Commit) {
	rec, ok := c.Inserted()
	if !ok {
		return
	}
	s := c.Next.Settings
	job := effectJob{
		record:  rec,
		desktop: e.desktop != nil && s.BrowserNotificationsEnabled,
		sound:   e.sound != nil && s.SoundEnabled && s.Enabled,
	}
	if !job.desktop && !job.sound {
		return
	}
	if e.ctx.Err() != nil {
		return
	}

	select {
	case e.queue <- job:
	default:
		e.metrics.RecordDropped("effects_queue_full")
		e.logger.Debug("effect queue full, dropping", logger.String("id", rec.ID))
	}
}

func (e *EffectRunner) run(job effectJob) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic in notification bridge", logger.Any("recover", r))
		}
	}()

	if job.desktop {
		e.desktop.Notify(e.ctx, job.record)
	}
	if job.sound {
		e.sound.Play(e.ctx, job.record.Kind)
	}
}

// Close stops the worker. Queued jobs that have not started are discarded.
func (e *EffectRunner) Close() {
	e.once.Do(func() {
		e.cancel()
		e.wg.Wait()
	})
}
