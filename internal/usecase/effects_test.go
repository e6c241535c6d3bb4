package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/pkg/logger"
	"CryptoNotify/pkg/metrics"

	"github.com/stretchr/testify/assert"
)

type fakeDesktop struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeDesktop) Notify(_ context.Context, r models.Record) {
	f.mu.Lock()
	f.ids = append(f.ids, r.ID)
	f.mu.Unlock()
}

func (f *fakeDesktop) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}

type fakeSound struct {
	mu    sync.Mutex
	kinds []models.Kind
}

func (f *fakeSound) Play(_ context.Context, k models.Kind) {
	f.mu.Lock()
	f.kinds = append(f.kinds, k)
	f.mu.Unlock()
}

func (f *fakeSound) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.kinds)
}

func addCommit(prev models.State, rec models.Record) models.Commit {
	next := Reducer{}.Reduce(prev, models.Add{Record: rec})
	return models.Commit{Action: models.Add{Record: rec}, Prev: prev, Next: next}
}

func TestEffectRunner_GatesOnSettings(t *testing.T) {
	tests := []struct {
		name        string
		settings    models.Settings
		wantDesktop int
		wantSound   int
	}{
		{"all on", models.DefaultSettings(), 1, 1},
		{"browser off", models.Settings{Enabled: true, SoundEnabled: true}, 0, 1},
		{"sound off", models.Settings{Enabled: true, BrowserNotificationsEnabled: true}, 1, 0},
		{"disabled silences sound", models.Settings{BrowserNotificationsEnabled: true, SoundEnabled: true}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, s := &fakeDesktop{}, &fakeSound{}
			r := NewEffectRunner(d, s, metrics.Nop{}, logger.Nop(), 8)
			r.Start()
			defer r.Close()

			r.OnCommit(addCommit(models.NewState(tt.settings), rec("1", models.KindAlert, false)))

			assert.Eventually(t, func() bool {
				return d.count() == tt.wantDesktop && s.count() == tt.wantSound
			}, time.Second, 5*time.Millisecond)
		})
	}
}

func TestEffectRunner_IgnoresNonInsertingCommits(t *testing.T) {
	d, s := &fakeDesktop{}, &fakeSound{}
	r := NewEffectRunner(d, s, metrics.Nop{}, logger.Nop(), 8)
	r.Start()

	settings := models.DefaultSettings()
	settings.OnlyImportant = true
	st := models.NewState(settings)

	// filtered by the importance gate
	r.OnCommit(addCommit(st, rec("1", models.KindInfo, false)))
	// duplicate id
	withOne := Reducer{}.Reduce(st, models.Add{Record: rec("2", models.KindAlert, true)})
	r.OnCommit(addCommit(withOne, rec("2", models.KindAlert, true)))
	// not an add
	r.OnCommit(models.Commit{Action: models.MarkAllRead{}, Prev: withOne, Next: withOne})

	r.Close()
	assert.Zero(t, d.count())
	assert.Zero(t, s.count())
}

func TestEffectRunner_CloseIsIdempotent(t *testing.T) {
	r := NewEffectRunner(&fakeDesktop{}, nil, metrics.Nop{}, logger.Nop(), 1)
	r.Start()
	r.Close()
	r.Close()

	assert.NotPanics(t, func() {
		r.OnCommit(addCommit(models.NewState(models.DefaultSettings()), rec("1", models.KindInfo, false)))
	})
}
