package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/internal/domain/repository"
	pkgkafka "CryptoNotify/pkg/kafka"

	"github.com/segmentio/kafka-go"
)

// Execer is the subset of *sql.DB the ClickHouse storage needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ClickHouseHistoryStorage implements HistoryStorage for ClickHouse.
type ClickHouseHistoryStorage struct {
	db      Execer
	table   string
	profile string
}

// NewClickHouseHistoryStorage creates ClickHouse storage writing into table
// (database-qualified, e.g. notify.notifications).
func NewClickHouseHistoryStorage(db Execer, table, profile string) repository.HistoryStorage {
	return &ClickHouseHistoryStorage{db: db, table: table, profile: profile}
}

const historyColumns = "(id, kind, title, message, created_at, channel, trading_pair, side, price, price_change, urgent, profile)"

// StoreBatch inserts records as multi-row VALUES, chunked to bound query size.
func (s *ClickHouseHistoryStorage) StoreBatch(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	const chunkSize = 500
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*12)
		for _, r := range records[start:end] {
			if r.ID == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.ID,
				string(r.Kind),
				r.Title,
				r.Message,
				r.CreatedAt.UTC(),
				r.Channel,
				r.TradingPair,
				string(r.Side),
				decimalArg(r.Price),
				decimalArg(r.PriceChange),
				boolToUInt8(r.Urgent),
				s.profile,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s %s VALUES %s", s.table, historyColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the connection pool is owned by pkg/clickhouse.
func (s *ClickHouseHistoryStorage) Close() error {
	return nil
}

// KafkaHistoryPublisher implements HistoryPublisher for Kafka.
type KafkaHistoryPublisher struct {
	producer *pkgkafka.Producer
	topic    string
	profile  string
}

// NewKafkaHistoryPublisher creates Kafka publisher.
func NewKafkaHistoryPublisher(producer *pkgkafka.Producer, topic, profile string) repository.HistoryPublisher {
	return &KafkaHistoryPublisher{producer: producer, topic: topic, profile: profile}
}

// PublishBatch sends one message per record, keyed by kind so a partition
// keeps per-kind ordering.
func (p *KafkaHistoryPublisher) PublishBatch(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(records))
	for i, r := range records {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(r.Kind),
			Value: r,
			Headers: []kafka.Header{
				{Key: "profile", Value: []byte(p.profile)},
				{Key: "record_id", Value: []byte(r.ID)},
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the producer is shared with the error-log collector and
// closed by the app.
func (p *KafkaHistoryPublisher) Close() error {
	return nil
}
