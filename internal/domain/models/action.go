package models

import "time"

// Action is a state transition request understood by the reducer.
type Action interface {
	// Type returns the stable action name used in logs and metrics.
	Type() string
}

// Add inserts a record at the head of the store.
type Add struct {
	Record Record
}

// MarkRead marks one record as read.
type MarkRead struct {
	ID string
}

// MarkAllRead marks every record as read.
type MarkAllRead struct{}

// Remove deletes one record.
type Remove struct {
	ID string
}

// ClearAll deletes every record.
type ClearAll struct{}

// SetConnection reflects real-time channel liveness.
type SetConnection struct {
	Connected bool
}

// UpdateSettings shallow-merges a patch into the settings.
type UpdateSettings struct {
	Patch SettingsPatch
}

func (Add) Type() string            { return "ADD" }
func (MarkRead) Type() string       { return "MARK_READ" }
func (MarkAllRead) Type() string    { return "MARK_ALL_READ" }
func (Remove) Type() string         { return "REMOVE" }
func (ClearAll) Type() string       { return "CLEAR_ALL" }
func (SetConnection) Type() string  { return "SET_CONNECTION" }
func (UpdateSettings) Type() string { return "UPDATE_SETTINGS" }

// Commit describes one applied transition.
type Commit struct {
	Seq    uint64
	Action Action
	Prev   State
	Next   State
	At     time.Time
}

// Inserted returns the record an Add commit actually inserted.
// It reports false when the action was filtered out or was not an Add.
func (c Commit) Inserted() (Record, bool) {
	a, ok := c.Action.(Add)
	if !ok || a.Record.ID == "" {
		return Record{}, false
	}
	if c.Prev.Has(a.Record.ID) {
		return Record{}, false
	}
	return c.Next.Find(a.Record.ID)
}

// SettingsChanged reports whether the commit changed any setting.
func (c Commit) SettingsChanged() bool {
	return c.Prev.Settings != c.Next.Settings
}
