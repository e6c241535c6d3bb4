package usecase

import (
	"context"
	"errors"
	"time"

	"CryptoNotify/internal/domain/models"
	domrepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/internal/middleware"
	pkgkafka "CryptoNotify/pkg/kafka"
	"CryptoNotify/pkg/logger"
)

// RecordDecoder turns a raw envelope into a record ready for ADD.
type RecordDecoder interface {
	Decode(data []byte) (models.Record, bool, error)
}

// NotificationsHandler consumes notification envelopes from Kafka and feeds
// them into the store through the ingest pipeline.
type NotificationsHandler struct {
	topic      string
	decoder    RecordDecoder
	dispatcher domrepo.Dispatcher
	metrics    domrepo.Metrics
	logger     *logger.Logger
}

func NewNotificationsHandler(topic string, dec RecordDecoder, d domrepo.Dispatcher, metrics domrepo.Metrics, l *logger.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		topic:      topic,
		decoder:    dec,
		dispatcher: d,
		metrics:    metrics,
		logger:     l.Component("kafka_notifications"),
	}
}

func (h *NotificationsHandler) Topic() string { return h.topic }

// Handle accepts the same envelope the websocket server pushes.
// Malformed messages are permanent failures; a throttled record is dropped.
func (h *NotificationsHandler) Handle(ctx context.Context, b []byte) error {
	r, ok, err := h.decoder.Decode(b)
	if err != nil {
		h.metrics.RecordError("consumer_decode")
		return pkgkafka.Permanent(err)
	}
	if !ok {
		h.metrics.RecordDropped("ignored_type")
		return nil
	}

	start := time.Now()
	_, err = h.dispatcher.Dispatch(ctx, models.Add{Record: r})
	h.metrics.RecordLatency("consumer_dispatch", time.Since(start).Seconds())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, middleware.ErrThrottled):
		h.logger.Debug("kafka record throttled", logger.String("id", r.ID))
		return nil
	case errors.Is(err, middleware.ErrInvalidRecord):
		h.metrics.RecordError("consumer_invalid")
		return pkgkafka.Permanent(err)
	default:
		h.metrics.RecordError("consumer_dispatch")
		return err
	}
}

var _ pkgkafka.MessageHandler = (*NotificationsHandler)(nil)
