// Package feed keeps a conversation view's message list in sync with the
// document store. Each subscription issues one ordered live query and
// reconciles every snapshot, together with locally pending messages, into a
// render-ready model.MessageListView.
package feed

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/johndosdos/huddle/internal/model"
	"github.com/johndosdos/huddle/internal/store"
)

// Unsubscribe stops a subscription. It is idempotent and safe to call from
// any goroutine, except from inside the subscription's own callbacks.
type Unsubscribe func()

// Source is the part of the store a Synchronizer reads from.
type Source interface {
	SubscribeOrdered(ctx context.Context, collection, orderKey string) (store.Subscription, error)
}

// Synchronizer opens message subscriptions against a Source.
type Synchronizer struct {
	src        Source
	collection string
	orderKey   string
}

// NewSynchronizer returns a Synchronizer over the messages collection ordered
// by creation time.
func NewSynchronizer(src Source) *Synchronizer {
	return &Synchronizer{
		src:        src,
		collection: store.Messages,
		orderKey:   FieldCreatedAt,
	}
}

// Subscription is a live message list. onUpdate and onError are never
// invoked concurrently with each other.
type Subscription struct {
	onUpdate func(model.MessageListView)
	onError  func(error)

	ops    chan func(*Reconciler) (model.MessageListView, bool)
	cancel context.CancelFunc
	done   chan struct{}

	stopped  atomic.Bool
	stopOnce sync.Once
	// mu is held while a callback runs.
	mu sync.Mutex
}

// Subscribe starts a subscription. A failure to open the query is reported
// through onError and yields a subscription that never updates.
func (s *Synchronizer) Subscribe(ctx context.Context, onUpdate func(model.MessageListView), onError func(error)) Unsubscribe {
	return s.Open(ctx, onUpdate, onError).Unsubscribe
}

// Open is Subscribe returning the Subscription itself, so that pending
// messages can be tracked on it.
func (s *Synchronizer) Open(ctx context.Context, onUpdate func(model.MessageListView), onError func(error)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		onUpdate: onUpdate,
		onError:  onError,
		ops:      make(chan func(*Reconciler) (model.MessageListView, bool)),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	q, err := s.src.SubscribeOrdered(ctx, s.collection, s.orderKey)
	if err != nil {
		sub.fail(err)
		cancel()
		close(sub.done)
		return sub
	}

	go sub.run(ctx, q)
	return sub
}

func (sub *Subscription) run(ctx context.Context, q store.Subscription) {
	defer close(sub.done)
	defer q.Stop()

	rec := NewReconciler()
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-q.C():
			if !ok {
				return
			}
			if d.Err != nil {
				sub.fail(d.Err)
				continue
			}
			sub.update(rec.Apply(d.Snapshot.Docs))
		case op := <-sub.ops:
			if view, changed := op(rec); changed {
				sub.update(view)
			}
		}
	}
}

func (sub *Subscription) update(view model.MessageListView) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.stopped.Load() || sub.onUpdate == nil {
		return
	}
	sub.onUpdate(view)
}

func (sub *Subscription) fail(err error) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.stopped.Load() || sub.onError == nil {
		return
	}
	sub.onError(err)
}

func (sub *Subscription) submit(op func(*Reconciler) (model.MessageListView, bool)) {
	select {
	case sub.ops <- op:
	case <-sub.done:
	}
}

// Track inserts msg as a pending entry until a record with the same
// correlation id arrives.
func (sub *Subscription) Track(msg model.Message) {
	sub.submit(func(r *Reconciler) (model.MessageListView, bool) {
		return r.Track(msg), true
	})
}

// Discard removes the pending entry with the given correlation id.
func (sub *Subscription) Discard(correlationID string) {
	sub.submit(func(r *Reconciler) (model.MessageListView, bool) {
		return r.Discard(correlationID)
	})
}

// Done is closed once the subscription has stopped delivering, either after
// Unsubscribe or because the underlying query ended.
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}

// Unsubscribe stops the subscription. Once it returns no callback runs.
func (sub *Subscription) Unsubscribe() {
	sub.stopOnce.Do(func() {
		sub.stopped.Store(true)
		sub.cancel()
	})
	// Wait out a callback that is already running.
	sub.mu.Lock()
	sub.mu.Unlock() //nolint:staticcheck
}
