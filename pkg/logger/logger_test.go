package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedEntry))
	return nil
}

func (p *capturePublisher) entries() []AggregatedEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AggregatedEntry
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestCollector_DeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &capturePublisher{}
	c := NewErrorCollector(&CollectorConfig{FlushInterval: time.Hour, Topic: "logs.errors", Publisher: pub})

	fields := map[string]interface{}{"component": "realtime"}
	c.Add("error", "dial failed", fields, "client.go:10")
	c.Add("error", "dial failed", fields, "client.go:10")
	c.Add("error", "decode failed", nil, "decode.go:5")
	assert.Equal(t, 2, c.Pending())

	c.Close()

	got := pub.entries()
	require.Len(t, got, 2)
	assert.Equal(t, "logs.errors", pub.topic)
	counts := map[string]int{}
	for _, e := range got {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, map[string]int{"dial failed": 2, "decode failed": 1}, counts)
}

func TestCollector_FlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewErrorCollector(&CollectorConfig{FlushInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	defer c.Close()

	c.Add("error", "a", nil, "x")
	c.Add("error", "b", nil, "x")

	assert.Eventually(t, func() bool { return len(pub.entries()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, c.Pending())
}

func TestLogger_ErrorLinesReachCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AttachCollector(&CollectorConfig{FlushInterval: time.Hour, Publisher: pub})
	child := l.Component("store")

	child.Warn("not collected")
	child.Error("collected", Error(errors.New("boom")), String("id", "n-1"))
	l.DetachCollector()

	got := pub.entries()
	require.Len(t, got, 1)
	assert.Equal(t, "collected", got[0].Message)
	assert.Equal(t, "boom", got[0].Fields["error"])
	assert.Equal(t, "n-1", got[0].Fields["id"])
}

func TestStrings_JoinsValues(t *testing.T) {
	k, v := Strings("brokers", []string{"kafka-1:9092", "kafka-2:9092"}).GetKeyValue()
	assert.Equal(t, "brokers", k)
	assert.Equal(t, "kafka-1:9092, kafka-2:9092", v)

	_, v = Strings("brokers", nil).GetKeyValue()
	assert.Equal(t, "", v)
}
