package usecase

import (
	"context"
	"sync"
	"time"

	"CryptoNotify/internal/domain/models"
	drepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/pkg/logger"
)

// ChannelFactory builds a fresh real-time channel for each listening session.
type ChannelFactory func() (drepo.Channel, error)

// Listener opens the real-time channel while notifications are enabled and
// closes it when they are not. With notifications disabled no connection is
// ever attempted.
type Listener struct {
	factory    ChannelFactory
	dispatcher drepo.Dispatcher
	state      drepo.StateReader
	logger     *logger.Logger

	poke   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu      sync.Mutex
	current drepo.Channel
}

// NewListener creates a listener. It does nothing until Start.
func NewListener(factory ChannelFactory, d drepo.Dispatcher, state drepo.StateReader, l *logger.Logger) *Listener {
	return &Listener{
		factory:    factory,
		dispatcher: d,
		state:      state,
		logger:     l.Component("listener"),
		poke:       make(chan struct{}, 1),
	}
}

// Start launches the supervisor and applies the current settings.
func (l *Listener) Start(ctx context.Context) {
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.loop()
	}()
	l.wake()
}

// OnCommit implements repository.Observer.
func (l *Listener) OnCommit(c models.Commit) {
	if c.Prev.Settings.Enabled != c.Next.Settings.Enabled {
		l.wake()
	}
}

// Listening reports whether a channel is currently open.
func (l *Listener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current != nil
}

func (l *Listener) wake() {
	select {
	case l.poke <- struct{}{}:
	default:
	}
}

func (l *Listener) loop() {
	defer l.stopChannel()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-l.poke:
			if l.state.Snapshot().Settings.Enabled {
				l.startChannel()
			} else {
				l.stopChannel()
			}
		}
	}
}

func (l *Listener) startChannel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != nil {
		return
	}

	ch, err := l.factory()
	if err != nil {
		l.logger.Error("failed to create real-time channel", logger.Error(err))
		return
	}
	if err := ch.Start(l.ctx); err != nil {
		l.logger.Error("failed to start real-time channel", logger.Error(err))
		ch.Close()
		return
	}
	l.current = ch
	l.logger.Info("notifications enabled, listening")
}

func (l *Listener) stopChannel() {
	l.mu.Lock()
	ch := l.current
	l.current = nil
	l.mu.Unlock()
	if ch == nil {
		return
	}

	ch.Close()
	l.logger.Info("notifications disabled, channel closed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := l.dispatcher.Dispatch(ctx, models.SetConnection{Connected: false}); err != nil {
		l.logger.Debug("connection state not dispatched", logger.Error(err))
	}
}

// Close stops the supervisor and the open channel, if any.
func (l *Listener) Close() {
	l.once.Do(func() {
		if l.cancel == nil {
			return
		}
		l.cancel()
		l.wg.Wait()
	})
}
