package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CryptoNotify/internal/domain/models"
	domrepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/internal/service/ratelimit"
	"CryptoNotify/pkg/logger"
)

var (
	// ErrThrottled is returned when a source channel exceeded its rate.
	ErrThrottled = errors.New("notification throttled")
	// ErrInvalidRecord wraps every validation failure of an ADD record.
	ErrInvalidRecord = errors.New("invalid notification")
)

// IngestPipeline sits between inbound sources and the store.
// It validates ADD records and throttles them per source channel; every
// other action passes straight through.
type IngestPipeline struct {
	next    domrepo.Dispatcher
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter
	logger  *logger.Logger
	rps     float64
	burst   float64
}

type PipelineOption func(*IngestPipeline)

// WithRate sets the sustained records per second and the burst allowed per
// source channel. A non-positive burst disables throttling.
func WithRate(rps, burst float64) PipelineOption {
	return func(p *IngestPipeline) {
		p.rps = rps
		p.burst = burst
	}
}

// WithLimiter replaces the token bucket, mainly for tests.
func WithLimiter(l *ratelimit.Limiter) PipelineOption {
	return func(p *IngestPipeline) {
		if l != nil {
			p.limiter = l
		}
	}
}

// NewIngestPipeline creates a pipeline forwarding to next.
func NewIngestPipeline(next domrepo.Dispatcher, metrics domrepo.Metrics, l *logger.Logger, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		next:    next,
		metrics: metrics,
		limiter: ratelimit.New(),
		logger:  l.Component("ingest"),
		rps:     10,
		burst:   20,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Source returns a dispatcher that tags throttling with the given source name.
func (p *IngestPipeline) Source(name string) domrepo.Dispatcher {
	return sourceDispatcher{p: p, source: name}
}

// Dispatch implements repository.Dispatcher for an anonymous source.
func (p *IngestPipeline) Dispatch(ctx context.Context, a models.Action) (models.State, error) {
	return p.dispatch(ctx, "default", a)
}

func (p *IngestPipeline) dispatch(ctx context.Context, source string, a models.Action) (models.State, error) {
	add, ok := a.(models.Add)
	if !ok {
		return p.next.Dispatch(ctx, a)
	}

	start := time.Now()
	if err := validateRecord(add.Record); err != nil {
		p.metrics.RecordDropped("invalid")
		return models.State{}, err
	}

	key := source + "/" + add.Record.Channel
	if !p.limiter.Allow(key, p.burst, p.rps) {
		p.metrics.RecordDropped("throttled")
		p.logger.Debug("record throttled",
			logger.String("source", source),
			logger.String("channel", add.Record.Channel),
		)
		return models.State{}, ErrThrottled
	}

	st, err := p.next.Dispatch(ctx, a)
	if err != nil {
		p.metrics.RecordError("ingest_dispatch")
		return st, fmt.Errorf("ingest dispatch: %w", err)
	}
	p.metrics.RecordFrame(string(add.Record.Kind))
	p.metrics.RecordLatency("ingest", time.Since(start).Seconds())
	return st, nil
}

type sourceDispatcher struct {
	p      *IngestPipeline
	source string
}

func (d sourceDispatcher) Dispatch(ctx context.Context, a models.Action) (models.State, error) {
	return d.p.dispatch(ctx, d.source, a)
}

func validateRecord(r models.Record) error {
	if r.ID == "" {
		return fmt.Errorf("%w: record id empty", ErrInvalidRecord)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown notification type %q", ErrInvalidRecord, r.Kind)
	}
	if r.Title == "" {
		return fmt.Errorf("%w: title empty", ErrInvalidRecord)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("%w: timestamp missing", ErrInvalidRecord)
	}
	return nil
}
