package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"CryptoNotify/internal/domain/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishBatchInput
	out    *sns.PublishBatchOutput
	err    error
}

func (f *fakeSNS) PublishBatch(_ context.Context, in *sns.PublishBatchInput, _ ...func(*sns.Options)) (*sns.PublishBatchOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.out == nil {
		return &sns.PublishBatchOutput{}, f.err
	}
	return f.out, f.err
}

func TestSNSHistoryPublisher_ChunksByTen(t *testing.T) {
	client := &fakeSNS{}
	p := NewSNSHistoryPublisher(client, "arn:aws:sns:us-east-1:000000000000:history", "desk")

	records := make([]models.Record, 23)
	for i := range records {
		records[i] = historyRecord(fmt.Sprintf("id-%d", i), models.KindPriceAlert)
	}
	require.NoError(t, p.PublishBatch(context.Background(), records))

	require.Len(t, client.inputs, 3)
	assert.Len(t, client.inputs[0].PublishBatchRequestEntries, 10)
	assert.Len(t, client.inputs[1].PublishBatchRequestEntries, 10)
	assert.Len(t, client.inputs[2].PublishBatchRequestEntries, 3)
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:history", aws.ToString(client.inputs[0].TopicArn))

	entry := client.inputs[2].PublishBatchRequestEntries[0]
	assert.Equal(t, "r20", aws.ToString(entry.Id))
	assert.Equal(t, "price_alert", aws.ToString(entry.MessageAttributes["kind"].StringValue))
	assert.Equal(t, "desk", aws.ToString(entry.MessageAttributes["profile"].StringValue))
	assert.Equal(t, "true", aws.ToString(entry.MessageAttributes["urgent"].StringValue))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Message)), &body))
	assert.Equal(t, "id-20", body["id"])
	assert.Equal(t, "BTC/USDT", body["tradingPair"])
}

func TestSNSHistoryPublisher_Empty(t *testing.T) {
	client := &fakeSNS{}
	p := NewSNSHistoryPublisher(client, "arn", "default")
	require.NoError(t, p.PublishBatch(context.Background(), nil))
	assert.Empty(t, client.inputs)
}

func TestSNSHistoryPublisher_Errors(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		boom := errors.New("boom")
		p := NewSNSHistoryPublisher(&fakeSNS{err: boom}, "arn", "default")
		err := p.PublishBatch(context.Background(), []models.Record{historyRecord("a", models.KindSignal)})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("partial failure", func(t *testing.T) {
		client := &fakeSNS{out: &sns.PublishBatchOutput{
			Failed: []types.BatchResultErrorEntry{{Id: aws.String("r1"), Code: aws.String("InternalError")}},
		}}
		p := NewSNSHistoryPublisher(client, "arn", "default")
		err := p.PublishBatch(context.Background(), []models.Record{
			historyRecord("a", models.KindSignal),
			historyRecord("b", models.KindSignal),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "r1=InternalError")
	})
}
