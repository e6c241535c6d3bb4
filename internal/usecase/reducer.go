package usecase

import "CryptoNotify/internal/domain/models"

// DefaultMaxRecords bounds how many records the store retains.
const DefaultMaxRecords = 100

// Reducer is the pure state-transition function of the notification store.
//
// Reduce never mutates its input: every transition that changes records
// builds a new slice, so committed states can be shared with readers.
type Reducer struct {
	MaxRecords int
}

// Reduce applies a to s and returns the next state. Unknown actions and
// actions targeting missing ids return s unchanged.
func (r Reducer) Reduce(s models.State, a models.Action) models.State {
	switch act := a.(type) {
	case models.Add:
		return r.add(s, act.Record)
	case models.MarkRead:
		return markRead(s, act.ID)
	case models.MarkAllRead:
		return markAllRead(s)
	case models.Remove:
		return remove(s, act.ID)
	case models.ClearAll:
		s.Records = []models.Record{}
		s.UnreadCount = 0
		return s
	case models.SetConnection:
		s.Connected = act.Connected
		return s
	case models.UpdateSettings:
		s.Settings = act.Patch.Apply(s.Settings)
		return s
	default:
		return s
	}
}

func (r Reducer) add(s models.State, rec models.Record) models.State {
	// importance filter is enforced here and nowhere else
	if s.Settings.OnlyImportant && !rec.Urgent {
		return s
	}
	if rec.ID == "" || s.Has(rec.ID) {
		return s
	}

	limit := r.MaxRecords
	if limit <= 0 {
		limit = DefaultMaxRecords
	}

	n := len(s.Records) + 1
	if n > limit {
		n = limit
	}
	records := make([]models.Record, 0, n)
	records = append(records, rec)
	for _, old := range s.Records {
		if len(records) == limit {
			break
		}
		records = append(records, old)
	}

	s.Records = records
	s.UnreadCount = s.CountUnread()
	return s
}

func markRead(s models.State, id string) models.State {
	idx := -1
	for i, rec := range s.Records {
		if rec.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 || s.Records[idx].Read {
		return s
	}

	records := make([]models.Record, len(s.Records))
	copy(records, s.Records)
	records[idx].Read = true

	s.Records = records
	s.UnreadCount = s.CountUnread()
	return s
}

func markAllRead(s models.State) models.State {
	if s.UnreadCount == 0 {
		return s
	}
	records := make([]models.Record, len(s.Records))
	for i, rec := range s.Records {
		rec.Read = true
		records[i] = rec
	}
	s.Records = records
	s.UnreadCount = 0
	return s
}

func remove(s models.State, id string) models.State {
	if !s.Has(id) {
		return s
	}
	records := make([]models.Record, 0, len(s.Records)-1)
	for _, rec := range s.Records {
		if rec.ID != id {
			records = append(records, rec)
		}
	}
	s.Records = records
	s.UnreadCount = s.CountUnread()
	return s
}
