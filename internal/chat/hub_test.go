package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/huddle/internal/feed"
	"github.com/johndosdos/huddle/internal/model"
	"github.com/johndosdos/huddle/internal/store"
	"github.com/johndosdos/huddle/internal/store/memory"
)

// gatedStore holds every Append until release is closed.
type gatedStore struct {
	*memory.Store
	release chan struct{}
}

func (g *gatedStore) Append(ctx context.Context, collection string, rec store.Record) (string, error) {
	<-g.release
	return g.Store.Append(ctx, collection, rec)
}

func waitFor(t *testing.T, v *View, match func(model.MessageListView) bool) model.MessageListView {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case list := <-v.Updates:
			if match(list) {
				return list
			}
		case <-deadline:
			t.Fatal("view never reached the expected state")
			return model.MessageListView{}
		}
	}
}

func onlyPending(list model.MessageListView) bool {
	last, ok := list.Last()
	return ok && list.Len() == 1 && last.State == model.Pending
}

func onlyConfirmed(list model.MessageListView) bool {
	last, ok := list.Last()
	return ok && list.Len() == 1 && last.State == model.Confirmed
}

func TestHubOptimisticFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := &gatedStore{Store: memory.New(memory.Options{}), release: make(chan struct{})}
	hub := NewHub()
	go hub.Run(ctx)
	feeds := feed.NewSynchronizer(st)

	a := alice()
	bob := &model.Session{UserID: uuid.New(), DisplayName: "bob"}

	tab1, err := OpenView(ctx, hub, feeds, a)
	require.NoError(t, err)
	defer tab1.Close()
	tab2, err := OpenView(ctx, hub, feeds, a)
	require.NoError(t, err)
	defer tab2.Close()
	other, err := OpenView(ctx, hub, feeds, bob)
	require.NoError(t, err)
	defer other.Close()

	for _, v := range []*View{tab1, tab2, other} {
		waitFor(t, v, func(l model.MessageListView) bool { return l.Len() == 0 })
	}

	s := NewSender(st, hub, SenderOpts{})
	defer s.Close()

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := s.Send(ctx, a, "hello")
		done <- result{out, err}
	}()

	for _, v := range []*View{tab1, tab2} {
		list := waitFor(t, v, onlyPending)
		assert.Equal(t, "hello", list.Entries[0].Message.Body)
	}
	assert.Empty(t, other.Updates, "pending entries stay with the sender")

	close(st.release)
	res := <-done
	require.NoError(t, res.err)

	for _, v := range []*View{tab1, tab2, other} {
		list := waitFor(t, v, onlyConfirmed)
		assert.Equal(t, res.out.ID, list.Entries[0].Message.ID)
	}
}

func TestOpenViewRequiresSession(t *testing.T) {
	hub := NewHub()
	_, err := OpenView(context.Background(), hub, feed.NewSynchronizer(memory.New(memory.Options{})), nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestOpenViewAfterHubStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	_, err := OpenView(context.Background(), hub, feed.NewSynchronizer(memory.New(memory.Options{})), alice())
	assert.ErrorIs(t, err, ErrHubStopped)
}

func TestHubRefreshReachesOnlyThatUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)
	feeds := feed.NewSynchronizer(memory.New(memory.Options{}))

	a := alice()
	bob := &model.Session{UserID: uuid.New(), DisplayName: "bob"}

	tab1, err := OpenView(ctx, hub, feeds, a)
	require.NoError(t, err)
	defer tab1.Close()
	tab2, err := OpenView(ctx, hub, feeds, a)
	require.NoError(t, err)
	defer tab2.Close()
	other, err := OpenView(ctx, hub, feeds, bob)
	require.NoError(t, err)
	defer other.Close()

	renamed := *a
	renamed.DisplayName = "alicia"
	hub.Refresh(ctx, renamed)

	for _, v := range []*View{tab1, tab2} {
		select {
		case s := <-v.Viewer:
			assert.Equal(t, "alicia", s.DisplayName)
		case <-time.After(2 * time.Second):
			t.Fatal("view was not refreshed")
		}
	}
	assert.Empty(t, other.Viewer)
}
