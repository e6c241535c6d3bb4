package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"CryptoNotify/internal/domain/models"
	pkgkafka "CryptoNotify/pkg/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	pkgkafka.SetMetricsRegisterer(prometheus.NewRegistry())
}

type execCall struct {
	query string
	args  []interface{}
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) ExecContext(_ context.Context, q string, args ...interface{}) (sql.Result, error) {
	f.calls = append(f.calls, execCall{query: q, args: args})
	return nil, f.err
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *mockWriter) Close() error { return m.Called().Error(0) }

func historyRecord(id string, kind models.Kind) models.Record {
	price := decimal.RequireFromString("67250.5")
	return models.Record{
		ID:          id,
		Kind:        kind,
		Title:       "BTC Alert",
		Message:     "BTC crossed 67k",
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		TradingPair: "BTC/USDT",
		Side:        models.SideBuy,
		Price:       &price,
		Urgent:      true,
	}
}

func TestClickHouseHistoryStorage_StoreBatch(t *testing.T) {
	db := &fakeExecer{}
	s := NewClickHouseHistoryStorage(db, "notify.notifications", "default")

	err := s.StoreBatch(context.Background(), []models.Record{
		historyRecord("a", models.KindPriceAlert),
		{},
		historyRecord("b", models.KindSignal),
	})
	require.NoError(t, err)
	require.Len(t, db.calls, 1)

	call := db.calls[0]
	assert.True(t, strings.HasPrefix(call.query, "INSERT INTO notify.notifications (id, kind,"))
	assert.Equal(t, 2, strings.Count(call.query, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	require.Len(t, call.args, 24)
	assert.Equal(t, "a", call.args[0])
	assert.Equal(t, "price_alert", call.args[1])
	assert.Equal(t, "67250.5", call.args[8])
	assert.Nil(t, call.args[9])
	assert.Equal(t, uint8(1), call.args[10])
	assert.Equal(t, "default", call.args[11])
}

func TestClickHouseHistoryStorage_EmptyAndErrors(t *testing.T) {
	db := &fakeExecer{err: errors.New("table missing")}
	s := NewClickHouseHistoryStorage(db, "notify.notifications", "default")

	require.NoError(t, s.StoreBatch(context.Background(), nil))
	assert.Empty(t, db.calls)

	err := s.StoreBatch(context.Background(), []models.Record{historyRecord("a", models.KindInfo)})
	assert.ErrorContains(t, err, "table missing")
	assert.NoError(t, s.Close())
}

func TestKafkaHistoryPublisher_KeysByKind(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 2 || msgs[0].Topic != "notifications.history" {
			return false
		}
		var got models.Record
		if err := json.Unmarshal(msgs[0].Value, &got); err != nil {
			return false
		}
		return string(msgs[0].Key) == "price_alert" &&
			string(msgs[1].Key) == "signal" &&
			got.ID == "a" &&
			msgs[0].Headers[0].Key == "profile"
	})).Return(nil).Once()

	p := NewKafkaHistoryPublisher(pkgkafka.NewProducerWithWriter(w, "snappy"), "notifications.history", "default")
	require.NoError(t, p.PublishBatch(context.Background(), []models.Record{
		historyRecord("a", models.KindPriceAlert),
		historyRecord("b", models.KindSignal),
	}))
	require.NoError(t, p.Close())
	w.AssertExpectations(t)
	w.AssertNotCalled(t, "Close")
}
