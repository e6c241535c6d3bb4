package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the category of a notification.
type Kind string

const (
	KindSignal        Kind = "signal"
	KindAlert         Kind = "alert"
	KindInfo          Kind = "info"
	KindSuccess       Kind = "success"
	KindWarning       Kind = "warning"
	KindError         Kind = "error"
	KindPriceAlert    Kind = "price_alert"
	KindTargetReached Kind = "target_reached"
	KindStopLoss      Kind = "stop_loss"
)

// Kinds lists the closed set of notification categories.
var Kinds = []Kind{
	KindSignal, KindAlert, KindInfo, KindSuccess, KindWarning,
	KindError, KindPriceAlert, KindTargetReached, KindStopLoss,
}

// Valid reports whether k belongs to the closed set.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Side is the trade direction attached to signal-like notifications.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// DefaultDisplayDuration applies when a record carries no explicit duration.
const DefaultDisplayDuration = 5 * time.Second

// Record is a single notification held by the store.
//
// ID and CreatedAt are assigned once and never change. Read only ever moves
// from false to true.
type Record struct {
	ID              string           `json:"id"`
	Kind            Kind             `json:"type"`
	Title           string           `json:"title"`
	Message         string           `json:"message"`
	CreatedAt       time.Time        `json:"timestamp"`
	Read            bool             `json:"read"`
	Channel         string           `json:"channel,omitempty"`
	TradingPair     string           `json:"tradingPair,omitempty"`
	Side            Side             `json:"side,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	PriceChange     *decimal.Decimal `json:"priceChange,omitempty"`
	Urgent          bool             `json:"urgent"`
	AutoHide        *bool            `json:"autoHide,omitempty"`
	DisplayDuration time.Duration    `json:"-"`
}

// Hides reports whether the record is eligible for automatic hiding/reading.
func (r Record) Hides() bool {
	if r.Urgent {
		return false
	}
	return r.AutoHide == nil || *r.AutoHide
}

// Duration returns how long the record stays on screen before auto-read.
func (r Record) Duration() time.Duration {
	if r.DisplayDuration > 0 {
		return r.DisplayDuration
	}
	return DefaultDisplayDuration
}

// Settings is the user-configurable part of the store.
type Settings struct {
	Enabled                     bool `json:"enabled" yaml:"enabled"`
	BrowserNotificationsEnabled bool `json:"browserNotifications" yaml:"browser_notifications"`
	SoundEnabled                bool `json:"soundEnabled" yaml:"sound_enabled"`
	OnlyImportant               bool `json:"onlyImportant" yaml:"only_important"`
	AutoMarkAsRead              bool `json:"autoMarkAsRead" yaml:"auto_mark_as_read"`
}

// DefaultSettings returns the settings a fresh session starts with.
func DefaultSettings() Settings {
	return Settings{
		Enabled:                     true,
		BrowserNotificationsEnabled: true,
		SoundEnabled:                true,
	}
}

// SettingsPatch is a partial settings update; nil fields are left untouched.
type SettingsPatch struct {
	Enabled                     *bool `json:"enabled,omitempty"`
	BrowserNotificationsEnabled *bool `json:"browserNotifications,omitempty"`
	SoundEnabled                *bool `json:"soundEnabled,omitempty"`
	OnlyImportant               *bool `json:"onlyImportant,omitempty"`
	AutoMarkAsRead              *bool `json:"autoMarkAsRead,omitempty"`
}

// Apply shallow-merges the patch into s.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.BrowserNotificationsEnabled != nil {
		s.BrowserNotificationsEnabled = *p.BrowserNotificationsEnabled
	}
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.OnlyImportant != nil {
		s.OnlyImportant = *p.OnlyImportant
	}
	if p.AutoMarkAsRead != nil {
		s.AutoMarkAsRead = *p.AutoMarkAsRead
	}
	return s
}

// PatchFrom builds a patch that sets every field to the values in s.
func PatchFrom(s Settings) SettingsPatch {
	return SettingsPatch{
		Enabled:                     &s.Enabled,
		BrowserNotificationsEnabled: &s.BrowserNotificationsEnabled,
		SoundEnabled:                &s.SoundEnabled,
		OnlyImportant:               &s.OnlyImportant,
		AutoMarkAsRead:              &s.AutoMarkAsRead,
	}
}

// State is an immutable snapshot of the notification store.
//
// Records are ordered newest first. UnreadCount always equals the number of
// records with Read == false.
type State struct {
	Records     []Record `json:"records"`
	UnreadCount int      `json:"unreadCount"`
	Connected   bool     `json:"connected"`
	Settings    Settings `json:"settings"`
}

// NewState returns an empty state carrying the given settings.
func NewState(s Settings) State {
	return State{Records: []Record{}, Settings: s}
}

// Find returns the record with the given id.
func (s State) Find(id string) (Record, bool) {
	for _, r := range s.Records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Has reports whether a record with the given id is present.
func (s State) Has(id string) bool {
	_, ok := s.Find(id)
	return ok
}

// CountUnread counts unread records.
func (s State) CountUnread() int {
	n := 0
	for _, r := range s.Records {
		if !r.Read {
			n++
		}
	}
	return n
}
