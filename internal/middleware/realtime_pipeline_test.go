package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/internal/service/ratelimit"
	"CryptoNotify/pkg/logger"
	"CryptoNotify/pkg/metrics"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	actions []models.Action
	err     error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, a models.Action) (models.State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return models.State{}, d.err
	}
	d.actions = append(d.actions, a)
	return models.State{}, nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.actions)
}

func addFor(id, channel string) models.Add {
	return models.Add{Record: models.Record{
		ID:        id,
		Kind:      models.KindSignal,
		Title:     "BTC/USDT buy",
		Channel:   channel,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

func TestIngestPipeline_PassesNonAddThrough(t *testing.T) {
	next := &recordingDispatcher{}
	p := NewIngestPipeline(next, metrics.Nop{}, logger.Nop(), WithRate(1, 1))

	for i := 0; i < 5; i++ {
		_, err := p.Dispatch(context.Background(), models.MarkAllRead{})
		require.NoError(t, err)
	}
	assert.Equal(t, 5, next.count())
}

func TestIngestPipeline_RejectsInvalidRecords(t *testing.T) {
	next := &recordingDispatcher{}
	p := NewIngestPipeline(next, metrics.Nop{}, logger.Nop())

	valid := addFor("a", "signals").Record
	cases := map[string]func(r *models.Record){
		"empty id":      func(r *models.Record) { r.ID = "" },
		"unknown kind":  func(r *models.Record) { r.Kind = "gossip" },
		"empty title":   func(r *models.Record) { r.Title = "" },
		"no created at": func(r *models.Record) { r.CreatedAt = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := valid
			mutate(&r)
			_, err := p.Dispatch(context.Background(), models.Add{Record: r})
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
	assert.Zero(t, next.count())
}

func TestIngestPipeline_ThrottlesPerSourceChannel(t *testing.T) {
	clk := clock.NewMock()
	next := &recordingDispatcher{}
	p := NewIngestPipeline(next, metrics.Nop{}, logger.Nop(),
		WithRate(1, 2),
		WithLimiter(ratelimit.NewWithClock(clk)),
	)
	ws := p.Source("ws")
	kafka := p.Source("kafka")
	ctx := context.Background()

	_, err := ws.Dispatch(ctx, addFor("1", "signals"))
	require.NoError(t, err)
	_, err = ws.Dispatch(ctx, addFor("2", "signals"))
	require.NoError(t, err)
	_, err = ws.Dispatch(ctx, addFor("3", "signals"))
	assert.ErrorIs(t, err, ErrThrottled)

	// other channels and sources have their own bucket
	_, err = ws.Dispatch(ctx, addFor("4", "alerts"))
	assert.NoError(t, err)
	_, err = kafka.Dispatch(ctx, addFor("5", "signals"))
	assert.NoError(t, err)

	clk.Add(time.Second)
	_, err = ws.Dispatch(ctx, addFor("6", "signals"))
	assert.NoError(t, err)

	assert.Equal(t, 5, next.count())
}

func TestIngestPipeline_ZeroBurstDisablesThrottling(t *testing.T) {
	next := &recordingDispatcher{}
	p := NewIngestPipeline(next, metrics.Nop{}, logger.Nop(), WithRate(0, 0))

	for i := 0; i < 50; i++ {
		_, err := p.Dispatch(context.Background(), addFor(string(rune('a'+i%26))+"x", ""))
		require.NoError(t, err)
	}
	assert.Equal(t, 50, next.count())
}

func TestIngestPipeline_WrapsDownstreamErrors(t *testing.T) {
	base := errors.New("store closed")
	p := NewIngestPipeline(&recordingDispatcher{err: base}, metrics.Nop{}, logger.Nop())

	_, err := p.Dispatch(context.Background(), addFor("a", ""))
	assert.ErrorIs(t, err, base)
}
