package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/huddle/internal/store"
)

func fixedClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func next(t *testing.T, sub store.Subscription) store.Delivery {
	t.Helper()
	select {
	case d, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return d
	case <-time.After(time.Second):
		t.Fatal("no delivery")
	}
	return store.Delivery{}
}

func ids(s store.Snapshot) []string {
	out := make([]string, 0, len(s.Docs))
	for _, d := range s.Docs {
		out = append(out, d.ID)
	}
	return out
}

func TestSubscribeOrdered(t *testing.T) {
	ctx := context.Background()
	s := New(Options{Clock: fixedClock(time.Unix(0, 0))})

	first, err := s.Append(ctx, store.Messages, store.Record{"text": "a", "createdAt": store.ServerTimestamp})
	require.NoError(t, err)

	sub, err := s.SubscribeOrdered(ctx, store.Messages, "createdAt")
	require.NoError(t, err)
	defer sub.Stop()

	d := next(t, sub)
	require.NoError(t, d.Err)
	assert.Equal(t, []string{first}, ids(d.Snapshot))

	second, err := s.Append(ctx, store.Messages, store.Record{"text": "b", "createdAt": store.ServerTimestamp})
	require.NoError(t, err)

	d = next(t, sub)
	assert.Equal(t, []string{first, second}, ids(d.Snapshot))
	assert.NotNil(t, store.Time(d.Snapshot.Docs[1].Data["createdAt"]))
}

func TestSubscribeOrderedByExplicitTimes(t *testing.T) {
	ctx := context.Background()
	s := New(Options{})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	late, _ := s.Append(ctx, store.Messages, store.Record{"createdAt": base.Add(time.Minute)})
	early, _ := s.Append(ctx, store.Messages, store.Record{"createdAt": base})
	tie, _ := s.Append(ctx, store.Messages, store.Record{"createdAt": base})

	sub, err := s.SubscribeOrdered(ctx, store.Messages, "createdAt")
	require.NoError(t, err)
	defer sub.Stop()

	assert.Equal(t, []string{early, tie, late}, ids(next(t, sub).Snapshot))
}

func TestDeferredTimestamps(t *testing.T) {
	ctx := context.Background()
	s := New(Options{Clock: fixedClock(time.Unix(100, 0)), DeferTimestamps: true})

	sub, err := s.SubscribeOrdered(ctx, store.Messages, "createdAt")
	require.NoError(t, err)
	defer sub.Stop()
	next(t, sub)

	id, err := s.Append(ctx, store.Messages, store.Record{"createdAt": store.ServerTimestamp})
	require.NoError(t, err)

	d := next(t, sub)
	require.Len(t, d.Snapshot.Docs, 1)
	assert.Nil(t, store.Time(d.Snapshot.Docs[0].Data["createdAt"]))

	s.ResolvePending()
	d = next(t, sub)
	assert.Equal(t, id, d.Snapshot.Docs[0].ID)
	assert.NotNil(t, store.Time(d.Snapshot.Docs[0].Data["createdAt"]))
}

func TestUpsertMerge(t *testing.T) {
	ctx := context.Background()
	s := New(Options{})

	require.NoError(t, s.UpsertMerge(ctx, store.Users, "u1", store.Record{"displayName": "Alice", "photoURL": "a.png"}))
	require.NoError(t, s.UpsertMerge(ctx, store.Users, "u1", store.Record{"displayName": "Bob"}))

	doc, err := s.Get(store.Users, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", doc.Data["displayName"])
	assert.Equal(t, "a.png", doc.Data["photoURL"])

	_, err = s.Get(store.Users, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRejectWrites(t *testing.T) {
	ctx := context.Background()
	s := New(Options{})
	s.RejectWrites(errors.New("quota exceeded"))

	_, err := s.Append(ctx, store.Messages, store.Record{"text": "x"})
	assert.ErrorIs(t, err, store.ErrWriteRejected)

	err = s.UpsertMerge(ctx, store.Users, "u1", store.Record{"displayName": "x"})
	assert.ErrorIs(t, err, store.ErrWriteRejected)
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(Options{})
	sub, err := s.SubscribeOrdered(context.Background(), store.Messages, "createdAt")
	require.NoError(t, err)

	sub.Stop()
	sub.Stop()

	_, err = s.Append(context.Background(), store.Messages, store.Record{"text": "x"})
	require.NoError(t, err)

	// Only the initial snapshot may still be buffered; after it the channel is closed.
	for range sub.C() {
	}
}

func TestFailEndsSubscription(t *testing.T) {
	s := New(Options{})
	sub, err := s.SubscribeOrdered(context.Background(), store.Messages, "createdAt")
	require.NoError(t, err)

	s.Fail(store.Messages, errors.New("stream broken"))

	d := next(t, sub)
	assert.EqualError(t, d.Err, "stream broken")
	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(Options{})
	sub, err := s.SubscribeOrdered(ctx, store.Messages, "createdAt")
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.col(store.Messages).subs) == 0
	}, time.Second, 10*time.Millisecond)
	_ = sub
}
