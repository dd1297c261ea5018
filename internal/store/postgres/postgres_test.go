package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/huddle/internal/database"
	"github.com/johndosdos/huddle/internal/store"
	"github.com/johndosdos/huddle/internal/testutil"
)

func next(t *testing.T, sub store.Subscription) store.Delivery {
	t.Helper()
	select {
	case d, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("no delivery")
	}
	return store.Delivery{}
}

func TestStore(t *testing.T) {
	pool := testutil.DbInit(t)
	s := New(database.New(pool), nil)
	ctx := context.Background()

	first, err := s.Append(ctx, store.Messages, store.Record{"text": "a", "createdAt": store.ServerTimestamp})
	require.NoError(t, err)

	sub, err := s.SubscribeOrdered(ctx, store.Messages, "createdAt")
	require.NoError(t, err)
	defer sub.Stop()

	d := next(t, sub)
	require.NoError(t, d.Err)
	require.Len(t, d.Snapshot.Docs, 1)
	assert.Equal(t, first, d.Snapshot.Docs[0].ID)
	assert.NotNil(t, store.Time(d.Snapshot.Docs[0].Data["createdAt"]), "server timestamp resolved")

	second, err := s.Append(ctx, store.Messages, store.Record{"text": "b", "createdAt": store.ServerTimestamp})
	require.NoError(t, err)

	d = next(t, sub)
	require.NoError(t, d.Err)
	ids := []string{}
	for _, doc := range d.Snapshot.Docs {
		ids = append(ids, doc.ID)
	}
	assert.Equal(t, []string{first, second}, ids)

	require.NoError(t, s.UpsertMerge(ctx, store.Users, "u1", store.Record{"displayName": "alice", "photoURL": nil}))
	require.NoError(t, s.UpsertMerge(ctx, store.Users, "u1", store.Record{"displayName": "alicia"}))

	doc, err := s.Get(ctx, store.Users, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alicia", doc.Data["displayName"])
	assert.Contains(t, doc.Data, "photoURL")

	_, err = s.Get(ctx, store.Users, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStopClosesSubscription(t *testing.T) {
	pool := testutil.DbInit(t)
	s := New(database.New(pool), nil)

	sub, err := s.SubscribeOrdered(context.Background(), store.Messages, "createdAt")
	require.NoError(t, err)
	sub.Stop()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-sub.C():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription not closed")
		}
	}
}

func TestUpsertServerFields(t *testing.T) {
	pool := testutil.DbInit(t)
	s := New(database.New(pool), nil)
	ctx := context.Background()

	require.NoError(t, s.UpsertMerge(ctx, store.Users, "u2", store.Record{"seenAt": store.ServerTimestamp}))
	doc, err := s.Get(ctx, store.Users, "u2")
	require.NoError(t, err)
	inserted := store.Time(doc.Data["seenAt"])
	require.NotNil(t, inserted)

	t.Run("later upsert gets its own time", func(t *testing.T) {
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, s.UpsertMerge(ctx, store.Users, "u2", store.Record{"seenAt": store.ServerTimestamp}))

		doc, err := s.Get(ctx, store.Users, "u2")
		require.NoError(t, err)
		updated := store.Time(doc.Data["seenAt"])
		require.NotNil(t, updated)
		assert.True(t, updated.After(*inserted), "upsert kept insert time %v", updated)
	})

	t.Run("plain overwrite is not a server field", func(t *testing.T) {
		require.NoError(t, s.UpsertMerge(ctx, store.Users, "u2", store.Record{"seenAt": "never"}))

		doc, err := s.Get(ctx, store.Users, "u2")
		require.NoError(t, err)
		assert.Equal(t, "never", doc.Data["seenAt"])
	})
}

func TestDecode(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 30, 0, 123456000, time.UTC)

	doc, err := decode(database.Document{
		ID:           "d1",
		Data:         []byte(`{"text":"hi","createdAt":"2026-05-01T14:30:00.123456+02:00"}`),
		ServerFields: []string{"createdAt"},
	})
	require.NoError(t, err)
	assert.Equal(t, at, doc.Data["createdAt"])
	assert.Equal(t, "hi", doc.Data["text"])

	_, err = decode(database.Document{
		ID:           "d2",
		Data:         []byte(`{"createdAt":"later"}`),
		ServerFields: []string{"createdAt"},
	})
	assert.Error(t, err)
}
