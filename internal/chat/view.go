package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/johndosdos/huddle/internal/feed"
	"github.com/johndosdos/huddle/internal/model"
)

// View is one mounted conversation view, such as a browser tab's SSE stream
// or websocket. Updates always holds the latest list only, and Viewer the
// latest session of the viewing user after a profile change.
type View struct {
	UserID  uuid.UUID
	Updates chan model.MessageListView
	Errors  chan error
	Viewer  chan model.Session

	hub       *Hub
	sub       *feed.Subscription
	closeOnce sync.Once
}

// OpenView subscribes a new view for session and registers it with hub.
func OpenView(ctx context.Context, hub *Hub, feeds *feed.Synchronizer, session *model.Session) (*View, error) {
	if session == nil {
		return nil, ErrUnauthenticated
	}

	v := &View{
		UserID:  session.UserID,
		Updates: make(chan model.MessageListView, 1),
		Errors:  make(chan error, 1),
		Viewer:  make(chan model.Session, 1),
		hub:     hub,
	}
	v.sub = feeds.Open(ctx, v.offer, v.fail)

	reg := Registration{View: v, Done: make(chan struct{})}
	select {
	case hub.Register <- reg:
	case <-hub.done:
		v.sub.Unsubscribe()
		return nil, ErrHubStopped
	case <-ctx.Done():
		v.sub.Unsubscribe()
		return nil, ctx.Err()
	}
	<-reg.Done

	return v, nil
}

func (v *View) offer(list model.MessageListView) {
	select {
	case <-v.Updates:
	default:
	}
	v.Updates <- list
}

// setViewer is only called from the hub goroutine.
func (v *View) setViewer(s model.Session) {
	select {
	case <-v.Viewer:
	default:
	}
	v.Viewer <- s
}

func (v *View) fail(err error) {
	select {
	case v.Errors <- err:
	default:
	}
}

// Done is closed when the view's subscription has ended.
func (v *View) Done() <-chan struct{} {
	return v.sub.Done()
}

// Close unsubscribes the view and unregisters it from the hub.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		v.sub.Unsubscribe()
		select {
		case v.hub.Unregister <- v:
		case <-v.hub.done:
		}
	})
}
