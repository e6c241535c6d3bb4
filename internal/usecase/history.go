package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CryptoNotify/internal/domain/models"
	drepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/pkg/logger"
)

const (
	HistoryBackendNone       = "none"
	HistoryBackendKafka      = "kafka"
	HistoryBackendClickHouse = "clickhouse"
	HistoryBackendSNS        = "sns"
)

// HistoryRecorder exports inserted records to the configured backend in batches.
// Export failures are logged and counted; they never reach the store.
type HistoryRecorder struct {
	pub     drepo.HistoryPublisher
	store   drepo.HistoryStorage
	metrics drepo.Metrics
	logger  *logger.Logger
	backend string
	batchSz int
	batchTO time.Duration

	in     chan models.Record
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewHistoryRecorder creates a new HistoryRecorder instance.
func NewHistoryRecorder(
	pub drepo.HistoryPublisher,
	store drepo.HistoryStorage,
	metrics drepo.Metrics,
	l *logger.Logger,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *HistoryRecorder {
	if backend == "" {
		backend = HistoryBackendNone
	}
	if batchSz <= 0 {
		batchSz = 50
	}
	if batchTO <= 0 {
		batchTO = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HistoryRecorder{
		pub:     pub,
		store:   store,
		metrics: metrics,
		logger:  l.Component("history").With(logger.String("backend", backend)),
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
		in:      make(chan models.Record, batchSz*4),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Enabled reports whether records are exported at all.
func (p *HistoryRecorder) Enabled() bool {
	return p.backend != HistoryBackendNone
}

// Start launches the batching worker.
func (p *HistoryRecorder) Start() {
	if !p.Enabled() {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop()
	}()
}

// OnCommit implements repository.Observer.
func (p *HistoryRecorder) OnCommit(c models.Commit) {
	if !p.Enabled() || p.ctx.Err() != nil {
		return
	}
	rec, ok := c.Inserted()
	if !ok {
		return
	}
	select {
	case p.in <- rec:
	default:
		p.metrics.RecordDropped("history_queue_full")
	}
}

func (p *HistoryRecorder) loop() {
	batch := make([]models.Record, 0, p.batchSz)
	timer := time.NewTimer(p.batchTO)
	defer timer.Stop()

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := p.ProcessBatch(ctx, batch); err != nil {
			p.logger.Warn("history export failed", logger.Int("records", len(batch)), logger.Error(err))
		}
		batch = make([]models.Record, 0, p.batchSz)
	}

	for {
		select {
		case <-p.ctx.Done():
			// drain what is already queued, then flush once more
			for {
				select {
				case rec := <-p.in:
					batch = append(batch, rec)
				default:
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					flush(ctx)
					cancel()
					return
				}
			}
		case rec := <-p.in:
			batch = append(batch, rec)
			if len(batch) >= p.batchSz {
				flush(p.ctx)
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(p.batchTO)
			}
		case <-timer.C:
			flush(p.ctx)
			timer.Reset(p.batchTO)
		}
	}
}

// ProcessBatch writes records to the configured backend.
func (p *HistoryRecorder) ProcessBatch(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case HistoryBackendKafka, HistoryBackendSNS:
		if p.pub == nil {
			return fmt.Errorf("%s backend has no publisher", p.backend)
		}
		err = p.pub.PublishBatch(ctx, records)
	case HistoryBackendClickHouse:
		if p.store == nil {
			return fmt.Errorf("%s backend has no storage", p.backend)
		}
		err = p.store.StoreBatch(ctx, records)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("history_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	p.metrics.RecordExported(p.backend, len(records))
	p.metrics.RecordLatency("history_batch", time.Since(start).Seconds())
	return nil
}

// Close flushes pending records and closes underlying resources if available.
func (p *HistoryRecorder) Close() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
		if p.pub != nil {
			_ = p.pub.Close()
		}
		if p.store != nil {
			_ = p.store.Close()
		}
	})
}
