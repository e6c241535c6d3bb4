package models

// Requests for the notification HTTP API.

type ListNotificationsRequest struct {
	Limit      int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
	UnreadOnly bool   `query:"unread" json:"unread"`
	Kind       string `query:"type" json:"type" validate:"omitempty,notification_kind"`
	// Since is RFC3339 or unix milliseconds; only newer records are listed.
	Since string `query:"since" json:"since"`
}

// TriggerNotificationRequest raises a local notification, the same shape the
// push server sends.
type TriggerNotificationRequest struct {
	Payload
}

type RecordIDRequest struct {
	ID string `param:"id" json:"id" validate:"required,max=64"`
}

type PermissionRequest struct {
	Permission string `json:"permission" validate:"required,oneof=default granted denied"`
}

// RecordView is the HTTP representation of a Record.
type RecordView struct {
	Record
	DurationMs int64 `json:"duration"`
}

// NewRecordView renders r with its effective display duration.
func NewRecordView(r Record) RecordView {
	return RecordView{Record: r, DurationMs: r.Duration().Milliseconds()}
}

// StateView is the HTTP representation of State.
type StateView struct {
	Records     []RecordView `json:"records"`
	UnreadCount int          `json:"unreadCount"`
	Connected   bool         `json:"connected"`
	Settings    Settings     `json:"settings"`
}

// RuntimeConfig lists the endpoints a client session needs.
type RuntimeConfig struct {
	APIBaseURL           string `json:"apiBaseUrl"`
	WebSocketURL         string `json:"wsUrl"`
	MLServiceURL         string `json:"mlServiceUrl"`
	StripePublishableKey string `json:"stripePublishableKey,omitempty"`
}
