package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *mockWriter) Close() error { return m.Called().Error(0) }

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestProducer_PublishBatchEncodesValues(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		return len(msgs) == 3 &&
			string(msgs[0].Value) == "raw" &&
			string(msgs[1].Value) == "text" &&
			string(msgs[2].Value) == `{"a":1}` &&
			string(msgs[2].Key) == "k" &&
			msgs[0].Topic == "t"
	})).Return(nil).Once()

	p := NewProducerWithWriter(w, "snappy")
	err := p.PublishBatch(context.Background(), "t", []Message{
		{Value: []byte("raw")},
		{Value: "text"},
		{Key: []byte("k"), Value: map[string]int{"a": 1}},
	})
	require.NoError(t, err)
	w.AssertExpectations(t)
}

func TestProducer_PublishMessageWrapsErrors(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available"))

	p := NewProducerWithWriter(w, "snappy")
	err := p.PublishMessage(context.Background(), "logs", map[string]string{"level": "error"})
	assert.ErrorContains(t, err, "leader not available")
}

func TestProducer_EmptyBatchIsNoOp(t *testing.T) {
	w := &mockWriter{}
	p := NewProducerWithWriter(w, "snappy")
	require.NoError(t, p.PublishBatch(context.Background(), "t", nil))
	w.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Gzip, parseCompression("gzip"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Snappy, parseCompression("unknown"))
}
