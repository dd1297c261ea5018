package feed

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/huddle/internal/model"
	"github.com/johndosdos/huddle/internal/store"
)

var author = uuid.MustParse("7d1f0c4e-6a43-4c55-9d4a-3f1f2b6c9a10")

func at(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

func doc(id, text string, createdAt *time.Time, correlationID string) store.Document {
	rec := store.Record{
		FieldText:          text,
		FieldUID:           author.String(),
		FieldDisplayName:   "alice",
		FieldCorrelationID: correlationID,
	}
	if createdAt != nil {
		rec[FieldCreatedAt] = *createdAt
	} else {
		rec[FieldCreatedAt] = nil
	}
	return store.Document{ID: id, Data: rec}
}

func keys(v model.MessageListView) []string {
	out := make([]string, 0, v.Len())
	for _, e := range v.Entries {
		out = append(out, e.Key())
	}
	return out
}

func TestReconcilerOrdering(t *testing.T) {
	tests := []struct {
		name string
		docs []store.Document
		want []string
	}{
		{
			name: "ascending_by_created_at",
			docs: []store.Document{doc("b", "2", at(20), ""), doc("a", "1", at(10), ""), doc("c", "3", at(30), "")},
			want: []string{"a", "b", "c"},
		},
		{
			name: "ties_keep_first_seen_order",
			docs: []store.Document{doc("x", "1", at(10), ""), doc("y", "2", at(10), "")},
			want: []string{"x", "y"},
		},
		{
			name: "unresolved_last",
			docs: []store.Document{doc("p", "1", nil, ""), doc("a", "2", at(10), ""), doc("q", "3", nil, "")},
			want: []string{"a", "p", "q"},
		},
		{
			name: "empty",
			docs: nil,
			want: []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReconciler()
			got := r.Apply(tc.docs)
			assert.Equal(t, tc.want, keys(got))
		})
	}
}

func TestReconcilerTiesKeepFirstSeenAcrossDeliveries(t *testing.T) {
	r := NewReconciler()

	v := r.Apply([]store.Document{doc("x", "1", at(10), "")})
	require.Equal(t, []string{"x"}, keys(v))

	// The store lists y first, but x was seen a delivery earlier.
	v = r.Apply([]store.Document{doc("y", "2", at(10), ""), doc("x", "1", at(10), "")})
	assert.Equal(t, []string{"x", "y"}, keys(v))

	v = r.Apply([]store.Document{doc("y", "2", at(10), ""), doc("z", "3", at(10), ""), doc("x", "1", at(10), "")})
	assert.Equal(t, []string{"x", "y", "z"}, keys(v))
}

func TestReconcilerPromotesResolvedTimestampOnce(t *testing.T) {
	r := NewReconciler()

	v := r.Apply([]store.Document{doc("a", "1", at(10), ""), doc("p", "2", nil, "")})
	require.Equal(t, []string{"a", "p"}, keys(v))

	// p resolves after b but b was already resolved earlier.
	v = r.Apply([]store.Document{doc("a", "1", at(10), ""), doc("p", "2", at(30), ""), doc("b", "3", at(20), "")})
	assert.Equal(t, []string{"a", "b", "p"}, keys(v))

	v = r.Apply([]store.Document{doc("a", "1", at(10), ""), doc("p", "2", at(30), ""), doc("b", "3", at(20), "")})
	assert.Equal(t, []string{"a", "b", "p"}, keys(v))
}

func TestReconcilerIdentityStable(t *testing.T) {
	r := NewReconciler()

	first := r.Apply([]store.Document{doc("a", "1", at(10), ""), doc("b", "2", nil, "")})
	second := r.Apply([]store.Document{doc("a", "1", at(10), ""), doc("b", "2", at(20), ""), doc("c", "3", at(30), "")})

	require.Equal(t, 3, second.Len())
	assert.Same(t, first.Entries[0], second.Entries[0], "unchanged entry must be reused")
	assert.NotSame(t, first.Entries[1], second.Entries[1], "changed entry must be rebuilt")
	assert.Equal(t, first.Entries[1].Key(), second.Entries[1].Key())
	assert.Greater(t, second.Version, first.Version)
}

func TestReconcilerPendingConfirmation(t *testing.T) {
	r := NewReconciler()
	r.Apply([]store.Document{doc("a", "1", at(10), "")})

	v := r.Track(model.Message{Body: "hi", AuthorID: author, CorrelationID: "c1"})
	require.Equal(t, []string{"a", "pending-c1"}, keys(v))
	last, _ := v.Last()
	assert.Equal(t, model.Pending, last.State)

	// Tracking the same message twice is a no-op.
	v = r.Track(model.Message{Body: "hi", AuthorID: author, CorrelationID: "c1"})
	assert.Equal(t, 2, v.Len())

	v = r.Apply([]store.Document{doc("a", "1", at(10), ""), doc("m", "hi", nil, "c1")})
	assert.Equal(t, []string{"a", "m"}, keys(v))
	last, _ = v.Last()
	assert.Equal(t, model.Confirmed, last.State)

	// Arrived before it was tracked.
	v = r.Track(model.Message{Body: "hi", AuthorID: author, CorrelationID: "c1"})
	assert.Equal(t, []string{"a", "m"}, keys(v))
}

func TestReconcilerDiscard(t *testing.T) {
	r := NewReconciler()
	r.Track(model.Message{Body: "one", CorrelationID: "c1"})
	r.Track(model.Message{Body: "two", CorrelationID: "c2"})

	v, ok := r.Discard("c1")
	assert.True(t, ok)
	assert.Equal(t, []string{"pending-c2"}, keys(v))

	_, ok = r.Discard("c1")
	assert.False(t, ok)
}

func TestReconcilerSkipsMalformed(t *testing.T) {
	r := NewReconciler()
	bad := store.Document{ID: "bad", Data: store.Record{FieldText: "x", FieldUID: "not-a-uuid"}}

	v := r.Apply([]store.Document{doc("a", "1", at(10), ""), bad})
	assert.Equal(t, []string{"a"}, keys(v))
}

func TestMessageRecordRoundTrip(t *testing.T) {
	msg := model.Message{
		Body:          "hello",
		AuthorID:      author,
		AuthorName:    "alice",
		AuthorEmail:   "alice@example.com",
		CorrelationID: "c9",
	}
	rec := EncodeMessage(msg)
	assert.True(t, store.IsServerTimestamp(rec[FieldCreatedAt]))
	assert.Nil(t, rec[FieldPhotoURL])

	rec[FieldCreatedAt] = nil
	got, err := DecodeMessage(store.Document{ID: "m1", Data: rec})
	require.NoError(t, err)

	msg.ID = "m1"
	assert.Equal(t, msg, got)
	assert.False(t, got.Resolved())
}
