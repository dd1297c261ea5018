package model

import "time"

// EntryState tags a MessageListView entry.
type EntryState int

const (
	// Pending entries were inserted locally and await the store's copy.
	Pending EntryState = iota
	// Confirmed entries come from a store snapshot.
	Confirmed
)

func (s EntryState) String() string {
	if s == Pending {
		return "pending"
	}
	return "confirmed"
}

// Entry is one element of a MessageListView.
type Entry struct {
	State   EntryState `json:"state"`
	Message Message    `json:"message"`
}

// Key is the entry's render identity. Confirmed entries are keyed by the
// store id, pending ones by their correlation id.
func (e Entry) Key() string {
	if e.State == Confirmed {
		return e.Message.ID
	}
	return "pending-" + e.Message.CorrelationID
}

// MessageListView is the render-ready, ordered message sequence. The last
// element is the most recently ordered message.
type MessageListView struct {
	Entries []*Entry  `json:"entries"`
	Version uint64    `json:"version"`
	BuiltAt time.Time `json:"built_at"`
}

// Len returns the number of entries.
func (v MessageListView) Len() int { return len(v.Entries) }

// Last returns the final entry, if any.
func (v MessageListView) Last() (*Entry, bool) {
	if len(v.Entries) == 0 {
		return nil, false
	}
	return v.Entries[len(v.Entries)-1], true
}
