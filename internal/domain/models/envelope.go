package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// EnvelopeTypeNotification is the only envelope type turned into records.
const EnvelopeTypeNotification = "notification"

// Envelope is the JSON frame pushed by the notification server.
type Envelope struct {
	Type         string          `json:"type"`
	Notification json.RawMessage `json:"notification"`
}

// Payload is the inbound notification body before id and timestamp are assigned.
type Payload struct {
	Kind        Kind             `json:"type" validate:"required,notification_kind"`
	Title       string           `json:"title" validate:"required,max=256"`
	Message     string           `json:"message" validate:"max=4096"`
	Channel     string           `json:"channel,omitempty" validate:"max=128"`
	TradingPair string           `json:"tradingPair,omitempty" validate:"max=32"`
	Side        Side             `json:"side,omitempty" validate:"omitempty,oneof=buy sell"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	PriceChange *decimal.Decimal `json:"priceChange,omitempty"`
	Urgent      bool             `json:"urgent,omitempty"`
	AutoHide    *bool            `json:"autoHide,omitempty"`
	// DurationMs is the on-screen duration in milliseconds.
	DurationMs int64 `json:"duration,omitempty" validate:"gte=0,lte=86400000"`
}
