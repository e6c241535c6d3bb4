package repository

import (
	"context"

	"CryptoNotify/internal/domain/models"
)

// Dispatcher is the single serialized write path into the notification store.
type Dispatcher interface {
	Dispatch(ctx context.Context, a models.Action) (models.State, error)
}

// StateReader exposes the latest committed store state.
type StateReader interface {
	Snapshot() models.State
}

// Observer receives every committed transition in order.
// Implementations must not block and must not call Dispatch synchronously.
type Observer interface {
	OnCommit(c models.Commit)
}

// Channel is a real-time notification source with a scoped lifetime.
type Channel interface {
	Start(ctx context.Context) error
	Close()
}

// DesktopNotifier shows native notifications for inserted records.
type DesktopNotifier interface {
	Notify(ctx context.Context, r models.Record)
}

// SoundPlayer plays an audio cue for a notification kind.
type SoundPlayer interface {
	Play(ctx context.Context, k models.Kind)
}

// HistoryPublisher streams inserted records to a message broker.
type HistoryPublisher interface {
	PublishBatch(ctx context.Context, records []models.Record) error
	Close() error
}

// HistoryStorage persists inserted records for later analysis.
type HistoryStorage interface {
	StoreBatch(ctx context.Context, records []models.Record) error
	Close() error
}

// SettingsRepository persists user settings across agent restarts.
type SettingsRepository interface {
	Load(ctx context.Context) (models.Settings, bool, error)
	Save(ctx context.Context, s models.Settings) error
}

// Metrics records agent-level telemetry.
type Metrics interface {
	RecordAction(action string)
	RecordState(records, unread int, connected bool)
	RecordFrame(kind string)
	RecordDropped(reason string)
	RecordReconnect()
	RecordBridge(bridge, result string)
	RecordExported(backend string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
