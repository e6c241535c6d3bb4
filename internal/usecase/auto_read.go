package usecase

import (
	"context"
	"sync"

	"CryptoNotify/internal/domain/models"
	drepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/pkg/logger"

	"github.com/benbjohnson/clock"
)

// AutoReader marks non-urgent records as read once their display time is up.
//
// It keeps one cancelable timer per record id. A timer is cancelled as soon
// as its record is read or leaves the store; Close releases all of them.
type AutoReader struct {
	ctx        context.Context
	dispatcher drepo.Dispatcher
	state      drepo.StateReader
	clock      clock.Clock
	logger     *logger.Logger

	mu     sync.Mutex
	timers map[string]*clock.Timer
	closed bool
}

// NewAutoReader creates the scheduler. ctx bounds the MARK_READ dispatches.
func NewAutoReader(ctx context.Context, d drepo.Dispatcher, state drepo.StateReader, clk clock.Clock, l *logger.Logger) *AutoReader {
	if clk == nil {
		clk = clock.New()
	}
	return &AutoReader{
		ctx:        ctx,
		dispatcher: d,
		state:      state,
		clock:      clk,
		logger:     l.Component("auto_read"),
		timers:     make(map[string]*clock.Timer),
	}
}

// OnCommit implements repository.Observer.
func (a *AutoReader) OnCommit(c models.Commit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	if rec, ok := c.Inserted(); ok && rec.Hides() {
		a.scheduleLocked(rec)
	}

	for id, t := range a.timers {
		rec, ok := c.Next.Find(id)
		if !ok || rec.Read {
			t.Stop()
			delete(a.timers, id)
		}
	}
}

func (a *AutoReader) scheduleLocked(rec models.Record) {
	id := rec.ID
	a.timers[id] = a.clock.AfterFunc(rec.Duration(), func() {
		a.fire(id)
	})
}

func (a *AutoReader) fire(id string) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	delete(a.timers, id)
	a.mu.Unlock()

	if !a.state.Snapshot().Settings.AutoMarkAsRead {
		return
	}
	if _, err := a.dispatcher.Dispatch(a.ctx, models.MarkRead{ID: id}); err != nil {
		a.logger.Debug("auto-read dispatch skipped", logger.String("id", id), logger.Error(err))
	}
}

// Pending returns the number of armed timers.
func (a *AutoReader) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.timers)
}

// Close cancels every pending timer. Later commits are ignored.
func (a *AutoReader) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for id, t := range a.timers {
		t.Stop()
		delete(a.timers, id)
	}
}
