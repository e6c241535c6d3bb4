package clickhouse

import "fmt"

// NotificationsTable is the default history table.
const NotificationsTable = "notifications"

// NotificationsSchema returns the DDL for the notification history table in db.
// Rows are deduplicated on id by ReplacingMergeTree, so a replayed batch is harmless.
func NotificationsSchema(db, table string) []string {
	if db == "" {
		db = "notify"
	}
	if table == "" {
		table = NotificationsTable
	}
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	id           String,
	kind         LowCardinality(String),
	title        String,
	message      String,
	created_at   DateTime64(3, 'UTC'),
	channel      LowCardinality(String),
	trading_pair LowCardinality(String),
	side         LowCardinality(String),
	price        Nullable(Decimal(38, 18)),
	price_change Nullable(Decimal(38, 18)),
	urgent       UInt8,
	profile      LowCardinality(String),
	inserted_at  DateTime64(3, 'UTC') DEFAULT now64(3)
) ENGINE = ReplacingMergeTree(inserted_at)
PARTITION BY toYYYYMM(created_at)
ORDER BY (kind, created_at, id)
TTL toDateTime(created_at) + INTERVAL 90 DAY`, db, table),
	}
}
