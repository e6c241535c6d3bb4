package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"CryptoNotify/internal/domain/models"
	drepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/pkg/logger"
)

var (
	// ErrStoreNotStarted is returned by Dispatch before Start was called.
	ErrStoreNotStarted = errors.New("notification store not started")
	// ErrStoreClosed is returned by Dispatch once the store loop has exited.
	ErrStoreClosed = errors.New("notification store closed")
)

type dispatchRequest struct {
	action models.Action
	done   chan models.State
}

// Store owns the notification state.
//
// A single goroutine applies every action through the reducer, so all
// writers (real-time channel, HTTP handlers, timers) are serialized and
// observers see commits strictly in dispatch order.
type Store struct {
	reducer   Reducer
	metrics   drepo.Metrics
	logger    *logger.Logger
	requests  chan dispatchRequest
	current   atomic.Pointer[models.State]
	seq       uint64
	started   atomic.Bool
	stopped   chan struct{}
	mu        sync.RWMutex
	observers []drepo.Observer
}

// NewStore creates a store holding an empty state with the given settings.
func NewStore(reducer Reducer, settings models.Settings, metrics drepo.Metrics, l *logger.Logger) *Store {
	s := &Store{
		reducer:  reducer,
		metrics:  metrics,
		logger:   l.Component("store"),
		requests: make(chan dispatchRequest, 64),
		stopped:  make(chan struct{}),
	}
	initial := models.NewState(settings)
	s.current.Store(&initial)
	return s
}

// Subscribe registers an observer for all subsequent commits.
func (s *Store) Subscribe(o drepo.Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Snapshot returns the latest committed state.
func (s *Store) Snapshot() models.State {
	return *s.current.Load()
}

// Start launches the store loop. It runs until ctx is cancelled.
func (s *Store) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("notification store already started")
	}

	go func() {
		defer close(s.stopped)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("store loop stopped")
				return
			case req := <-s.requests:
				req.done <- s.apply(req.action)
			}
		}
	}()
	return nil
}

// Done is closed once the store loop has exited.
func (s *Store) Done() <-chan struct{} {
	return s.stopped
}

// Dispatch enqueues a and waits until it has been committed.
func (s *Store) Dispatch(ctx context.Context, a models.Action) (models.State, error) {
	if !s.started.Load() {
		return models.State{}, ErrStoreNotStarted
	}

	req := dispatchRequest{action: a, done: make(chan models.State, 1)}
	select {
	case s.requests <- req:
	case <-s.stopped:
		return models.State{}, ErrStoreClosed
	case <-ctx.Done():
		return models.State{}, ctx.Err()
	}

	select {
	case st := <-req.done:
		return st, nil
	case <-s.stopped:
		// the loop may have committed right before exiting
		select {
		case st := <-req.done:
			return st, nil
		default:
			return models.State{}, ErrStoreClosed
		}
	case <-ctx.Done():
		return models.State{}, ctx.Err()
	}
}

// apply runs on the store goroutine only.
func (s *Store) apply(a models.Action) models.State {
	start := time.Now()
	prev := *s.current.Load()
	next := s.reducer.Reduce(prev, a)
	s.current.Store(&next)
	s.seq++

	s.metrics.RecordAction(a.Type())
	s.metrics.RecordState(len(next.Records), next.UnreadCount, next.Connected)

	commit := models.Commit{Seq: s.seq, Action: a, Prev: prev, Next: next, At: start}

	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()
	for _, o := range observers {
		s.notify(o, commit)
	}

	s.metrics.RecordLatency("dispatch", time.Since(start).Seconds())
	return next
}

func (s *Store) notify(o drepo.Observer, c models.Commit) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in store observer",
				logger.String("action", c.Action.Type()),
				logger.Any("recover", r),
			)
		}
	}()
	o.OnCommit(c)
}
