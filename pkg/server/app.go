package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"CryptoNotify/internal/usecase"
	"CryptoNotify/pkg/config"
	xhttp "CryptoNotify/pkg/http"
	pkgkafka "CryptoNotify/pkg/kafka"
	applogger "CryptoNotify/pkg/logger"
)

// Deps are the components the application drives. Consumer and
// KafkaHandler may be nil when inbound Kafka is not configured.
type Deps struct {
	Config       *config.Config
	Logger       *applogger.Logger
	Store        *usecase.Store
	AutoRead     *usecase.AutoReader
	Effects      *usecase.EffectRunner
	Listener     *usecase.Listener
	History      *usecase.HistoryRecorder
	Settings     *usecase.SettingsSync
	Consumer     *pkgkafka.Consumer
	KafkaHandler pkgkafka.MessageHandler
	HTTP         *xhttp.Server
}

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	Deps
	logger  *applogger.Logger
	closers []closer

	cancelStore context.CancelFunc
	runCtx      context.Context
	cancelRun   context.CancelFunc
	started     bool
	stopOnce    sync.Once
	stopErr     error
}

// New creates a new App instance with all dependencies.
func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = applogger.Nop()
	}
	return &App{Deps: d, logger: d.Logger.Component("app")}
}

// OnClose registers an infrastructure client to close after every
// component has stopped. Closers run in registration order.
func (a *App) OnClose(name string, fn func() error) {
	if fn != nil {
		a.closers = append(a.closers, closer{name: name, fn: fn})
	}
}

// Start brings the agent up: the store first, then its observers, then the
// inbound sources. It returns once everything is running.
func (a *App) Start(ctx context.Context) error {
	storeCtx, cancel := context.WithCancel(context.Background())
	a.cancelStore = cancel
	if err := a.Store.Start(storeCtx); err != nil {
		cancel()
		return fmt.Errorf("start store: %w", err)
	}
	a.started = true
	a.runCtx, a.cancelRun = context.WithCancel(context.Background())

	a.Store.Subscribe(a.Effects)
	a.Store.Subscribe(a.AutoRead)
	a.Store.Subscribe(a.History)
	a.Store.Subscribe(a.Settings)
	a.Store.Subscribe(a.Listener)

	a.Effects.Start()
	a.History.Start()

	restoreCtx, restoreCancel := context.WithTimeout(ctx, 5*time.Second)
	err := a.Settings.Restore(restoreCtx)
	restoreCancel()
	if err != nil {
		a.logger.Warn("settings restore failed, using configured defaults", applogger.Error(err))
	}
	a.Settings.Start()

	// after restore, so a persisted "disabled" never opens the channel
	a.Listener.Start(a.runCtx)

	if a.Consumer != nil && a.KafkaHandler != nil {
		a.Consumer.RegisterHandler(a.KafkaHandler)
		if err := a.Consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.KafkaHandler.Topic()))
	}

	if err := a.HTTP.Start(); err != nil {
		return err
	}

	st := a.Store.Snapshot()
	a.logger.Info("notification agent started",
		applogger.String("env", a.Config.Environment),
		applogger.String("history", a.Config.History.Backend),
		applogger.Bool("enabled", st.Settings.Enabled),
	)
	return nil
}

// Run starts the application and blocks until interrupted or the HTTP
// server fails.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		a.logger.Error("startup failed", applogger.Error(err))
		_ = a.Shutdown(context.Background())
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-a.HTTP.Errors():
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops inbound sources first so nothing new reaches the store,
// then the observers, then the store, then infrastructure clients.
// It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() {
		a.stopErr = a.shutdown(ctx)
	})
	return a.stopErr
}

func (a *App) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")
	var errs []error

	if err := a.HTTP.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.Consumer != nil {
		if err := a.Consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.started {
		a.Listener.Close()
		a.cancelRun()
		a.AutoRead.Close()
		a.Settings.Close()
		a.Effects.Close()
		a.History.Close()

		a.cancelStore()
		select {
		case <-a.Store.Done():
		case <-ctx.Done():
			a.logger.Warn("store did not stop in time", applogger.Error(ctx.Err()))
			errs = append(errs, ctx.Err())
		}
	}

	a.Logger.DetachCollector()

	for _, c := range a.closers {
		if err := c.fn(); err != nil {
			a.logger.Warn("close error", applogger.String("client", c.name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
