package feed

import (
	"cmp"
	"log/slog"
	"slices"
	"time"

	"github.com/johndosdos/huddle/internal/model"
	"github.com/johndosdos/huddle/internal/store"
)

// Reconciler turns snapshot deliveries and local pending messages into a
// MessageListView. It keeps entries identity-stable: an entry whose message
// did not change between deliveries is the same *model.Entry afterwards.
// A Reconciler is not safe for concurrent use.
type Reconciler struct {
	seen      uint64
	firstSeen map[string]uint64
	confirmed []*model.Entry
	byID      map[string]*model.Entry
	pending   []*model.Entry
	version   uint64
	now       func() time.Time
}

// NewReconciler returns an empty Reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{
		firstSeen: make(map[string]uint64),
		byID:      make(map[string]*model.Entry),
		now:       time.Now,
	}
}

func sameMessage(a, b model.Message) bool {
	if (a.CreatedAt == nil) != (b.CreatedAt == nil) {
		return false
	}
	if a.CreatedAt != nil && !a.CreatedAt.Equal(*b.CreatedAt) {
		return false
	}
	a.CreatedAt, b.CreatedAt = nil, nil
	return a == b
}

// Apply replaces the confirmed part of the view with the snapshot's
// documents. Documents that cannot be decoded are skipped. Pending entries
// whose correlation id shows up in the snapshot are dropped.
func (r *Reconciler) Apply(docs []store.Document) model.MessageListView {
	next := make([]*model.Entry, 0, len(docs))
	byID := make(map[string]*model.Entry, len(docs))
	arrived := make(map[string]struct{})

	for _, doc := range docs {
		msg, err := DecodeMessage(doc)
		if err != nil {
			slog.Warn("skipping malformed message", "error", err)
			continue
		}
		if _, dup := byID[msg.ID]; dup {
			continue
		}

		if _, ok := r.firstSeen[msg.ID]; !ok {
			r.seen++
			r.firstSeen[msg.ID] = r.seen
		}

		e, ok := r.byID[msg.ID]
		if !ok || !sameMessage(e.Message, msg) {
			e = &model.Entry{State: model.Confirmed, Message: msg}
		}
		next = append(next, e)
		byID[msg.ID] = e

		if msg.CorrelationID != "" {
			arrived[msg.CorrelationID] = struct{}{}
		}
	}

	slices.SortStableFunc(next, func(a, b *model.Entry) int {
		ta, tb := a.Message.CreatedAt, b.Message.CreatedAt
		switch {
		case ta == nil && tb != nil:
			return 1
		case ta != nil && tb == nil:
			return -1
		case ta != nil && tb != nil:
			if n := ta.Compare(*tb); n != 0 {
				return n
			}
		}
		return cmp.Compare(r.firstSeen[a.Message.ID], r.firstSeen[b.Message.ID])
	})

	for id := range r.firstSeen {
		if _, ok := byID[id]; !ok {
			delete(r.firstSeen, id)
		}
	}

	r.confirmed = next
	r.byID = byID
	r.pending = slices.DeleteFunc(r.pending, func(e *model.Entry) bool {
		_, ok := arrived[e.Message.CorrelationID]
		return ok
	})

	return r.View()
}

// Track appends a locally sent message as a pending entry, unless the store
// already delivered it.
func (r *Reconciler) Track(msg model.Message) model.MessageListView {
	for _, e := range r.confirmed {
		if e.Message.CorrelationID == msg.CorrelationID {
			return r.View()
		}
	}
	for _, e := range r.pending {
		if e.Message.CorrelationID == msg.CorrelationID {
			return r.View()
		}
	}

	msg.ID = ""
	msg.CreatedAt = nil
	r.pending = append(r.pending, &model.Entry{State: model.Pending, Message: msg})
	return r.View()
}

// Discard drops the pending entry with the given correlation id. It reports
// whether there was one.
func (r *Reconciler) Discard(correlationID string) (model.MessageListView, bool) {
	n := len(r.pending)
	r.pending = slices.DeleteFunc(r.pending, func(e *model.Entry) bool {
		return e.Message.CorrelationID == correlationID
	})
	return r.View(), len(r.pending) != n
}

// View builds the current list: confirmed entries in order, then pending ones
// in the order they were sent.
func (r *Reconciler) View() model.MessageListView {
	r.version++
	entries := make([]*model.Entry, 0, len(r.confirmed)+len(r.pending))
	entries = append(entries, r.confirmed...)
	entries = append(entries, r.pending...)
	return model.MessageListView{
		Entries: entries,
		Version: r.version,
		BuiltAt: r.now().UTC(),
	}
}
