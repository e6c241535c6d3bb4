package clickhouse

import (
	"net"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOptions(t *testing.T) {
	opts := buildOptions(ClientConfig{
		Host:         "ch",
		Port:         9000,
		Database:     "notify",
		User:         "default",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  30 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	})
	assert.Equal(t, []string{"ch:9000"}, opts.Addr)
	assert.Equal(t, "notify", opts.Auth.Database)
	assert.Equal(t, clickhouse.Native, opts.Protocol)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.Equal(t, 30, opts.Settings["max_execution_time"])
	assert.Equal(t, 1, opts.Settings["async_insert"])
	assert.Equal(t, 1, opts.Settings["wait_for_async_insert"])
}

func TestBuildOptions_HTTP(t *testing.T) {
	opts := buildOptions(ClientConfig{Host: "ch", Port: 8123, Database: "notify", UseHTTP: true})
	assert.Equal(t, clickhouse.HTTP, opts.Protocol)
	assert.Equal(t, clickhouse.CompressionGZIP, opts.Compression.Method)
	assert.Empty(t, opts.Settings)
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}

func TestNewClient_StopsAfterPingAttempts(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	start := time.Now()
	_, err = NewClient(
		WithHost("127.0.0.1"),
		WithPort(port),
		WithTimeouts(500*time.Millisecond, time.Second),
		WithPingAttempts(1),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 attempts")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNotificationsSchema(t *testing.T) {
	stmts := NotificationsSchema("", "")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS notify", stmts[0])
	assert.Contains(t, stmts[1], "CREATE TABLE IF NOT EXISTS notify.notifications")
	assert.Contains(t, stmts[1], "ReplacingMergeTree")
}
