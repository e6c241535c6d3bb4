package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/internal/domain/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsMaxBatch is the PublishBatch entry limit.
const snsMaxBatch = 10

// SNSAPI is the subset of *sns.Client the publisher needs.
type SNSAPI interface {
	PublishBatch(ctx context.Context, in *sns.PublishBatchInput, optFns ...func(*sns.Options)) (*sns.PublishBatchOutput, error)
}

// SNSHistoryPublisher implements HistoryPublisher for an SNS topic.
type SNSHistoryPublisher struct {
	client   SNSAPI
	topicARN string
	profile  string
}

// NewSNSHistoryPublisher creates SNS publisher.
func NewSNSHistoryPublisher(client SNSAPI, topicARN, profile string) repository.HistoryPublisher {
	return &SNSHistoryPublisher{client: client, topicARN: topicARN, profile: profile}
}

// PublishBatch sends records as JSON in chunks of ten. Subscribers can filter
// on the kind and urgent message attributes.
func (p *SNSHistoryPublisher) PublishBatch(ctx context.Context, records []models.Record) error {
	for start := 0; start < len(records); start += snsMaxBatch {
		end := start + snsMaxBatch
		if end > len(records) {
			end = len(records)
		}

		entries := make([]types.PublishBatchRequestEntry, 0, end-start)
		for i, r := range records[start:end] {
			body, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("marshal record %s: %w", r.ID, err)
			}
			entries = append(entries, types.PublishBatchRequestEntry{
				Id:      aws.String("r" + strconv.Itoa(start+i)),
				Message: aws.String(string(body)),
				MessageAttributes: map[string]types.MessageAttributeValue{
					"kind":    stringAttr(string(r.Kind)),
					"profile": stringAttr(p.profile),
					"urgent":  stringAttr(strconv.FormatBool(r.Urgent)),
				},
			})
		}

		out, err := p.client.PublishBatch(ctx, &sns.PublishBatchInput{
			TopicArn:                   aws.String(p.topicARN),
			PublishBatchRequestEntries: entries,
		})
		if err != nil {
			return fmt.Errorf("sns publish batch: %w", err)
		}
		if out != nil && len(out.Failed) > 0 {
			ids := make([]string, 0, len(out.Failed))
			for _, f := range out.Failed {
				ids = append(ids, aws.ToString(f.Id)+"="+aws.ToString(f.Code))
			}
			return fmt.Errorf("sns rejected %d of %d entries: %s", len(out.Failed), len(entries), strings.Join(ids, ","))
		}
	}
	return nil
}

// Close is a no-op; the SNS client holds no connections of its own.
func (p *SNSHistoryPublisher) Close() error {
	return nil
}

func stringAttr(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}
