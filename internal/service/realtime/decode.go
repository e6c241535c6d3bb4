package realtime

import (
	"fmt"
	"time"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/pkg/id"

	"github.com/benbjohnson/clock"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

// Decoder turns inbound frames into records ready for ADD.
type Decoder struct {
	validate        *validator.Validate
	clock           clock.Clock
	defaultDuration time.Duration
}

// NewDecoder creates a decoder stamping records with clk. A nil clk uses
// the wall clock.
func NewDecoder(clk clock.Clock) *Decoder {
	if clk == nil {
		clk = clock.New()
	}
	v := validator.New()
	_ = v.RegisterValidation("notification_kind", func(fl validator.FieldLevel) bool {
		return models.Kind(fl.Field().String()).Valid()
	})
	return &Decoder{validate: v, clock: clk}
}

// WithDefaultDuration sets the display duration for payloads that carry none.
func (d *Decoder) WithDefaultDuration(dur time.Duration) *Decoder {
	d.defaultDuration = dur
	return d
}

// Decode parses one envelope. It reports false without error for envelope
// types other than "notification".
func (d *Decoder) Decode(data []byte) (models.Record, bool, error) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.Record{}, false, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type != models.EnvelopeTypeNotification {
		return models.Record{}, false, nil
	}
	if len(env.Notification) == 0 || string(env.Notification) == "null" {
		return models.Record{}, false, fmt.Errorf("decode envelope: notification missing")
	}

	var p models.Payload
	if err := json.Unmarshal(env.Notification, &p); err != nil {
		return models.Record{}, false, fmt.Errorf("decode notification: %w", err)
	}
	rec, err := d.FromPayload(p)
	if err != nil {
		return models.Record{}, false, err
	}
	return rec, true, nil
}

// FromPayload validates p and assigns a fresh id and creation time.
func (d *Decoder) FromPayload(p models.Payload) (models.Record, error) {
	if err := d.validate.Struct(p); err != nil {
		return models.Record{}, fmt.Errorf("invalid notification: %w", err)
	}

	dur := time.Duration(p.DurationMs) * time.Millisecond
	if dur == 0 {
		dur = d.defaultDuration
	}

	now := d.clock.Now()
	return models.Record{
		ID:              id.New(now),
		Kind:            p.Kind,
		Title:           p.Title,
		Message:         p.Message,
		CreatedAt:       now,
		Channel:         p.Channel,
		TradingPair:     p.TradingPair,
		Side:            p.Side,
		Price:           p.Price,
		PriceChange:     p.PriceChange,
		Urgent:          p.Urgent,
		AutoHide:        p.AutoHide,
		DisplayDuration: dur,
	}, nil
}
