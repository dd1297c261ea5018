// Package memory is an in-process document store. It backs local runs and
// tests, and mimics a latency-compensating remote store when timestamps are
// deferred: writes show up immediately with unresolved server timestamps and
// are resolved later.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johndosdos/huddle/internal/store"
)

// Options tune the store.
type Options struct {
	// Clock supplies server timestamps. Defaults to time.Now in UTC.
	Clock func() time.Time
	// DeferTimestamps leaves server timestamps unresolved until
	// ResolvePending is called.
	DeferTimestamps bool
}

type document struct {
	id      string
	seq     int64
	data    store.Record
	pending []string
}

type collection struct {
	docs []*document
	byID map[string]*document
	subs map[*subscription]struct{}
}

// Store is an in-memory store.Store.
type Store struct {
	mu          sync.Mutex
	opts        Options
	seq         int64
	collections map[string]*collection
	rejectErr   error
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New(opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &Store{
		opts:        opts,
		collections: make(map[string]*collection),
	}
}

// RejectWrites makes every following write fail with err wrapped in
// store.ErrWriteRejected. A nil err accepts writes again.
func (s *Store) RejectWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectErr = err
}

func (s *Store) col(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{
			byID: make(map[string]*document),
			subs: make(map[*subscription]struct{}),
		}
		s.collections[name] = c
	}
	return c
}

func (s *Store) checkWrite(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.rejectErr != nil {
		return fmt.Errorf("%w: %v", store.ErrWriteRejected, s.rejectErr)
	}
	return nil
}

// Append adds rec to the collection under a fresh id.
func (s *Store) Append(ctx context.Context, name string, rec store.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWrite(ctx); err != nil {
		return "", err
	}

	c := s.col(name)
	s.seq++
	doc := &document{id: uuid.NewString(), seq: s.seq}
	doc.data, doc.pending = s.resolve(rec)
	c.docs = append(c.docs, doc)
	c.byID[doc.id] = doc

	s.publish(c)
	return doc.id, nil
}

// UpsertMerge merges fields into the document with the given id.
func (s *Store) UpsertMerge(ctx context.Context, name, id string, fields store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWrite(ctx); err != nil {
		return err
	}

	c := s.col(name)
	data, pending := s.resolve(fields)

	doc, ok := c.byID[id]
	if !ok {
		s.seq++
		doc = &document{id: id, seq: s.seq, data: store.Record{}}
		c.docs = append(c.docs, doc)
		c.byID[id] = doc
	}
	for k := range fields {
		doc.pending = slices.DeleteFunc(doc.pending, func(p string) bool { return p == k })
	}
	maps.Copy(doc.data, data)
	doc.pending = append(doc.pending, pending...)

	s.publish(c)
	return nil
}

// Get returns a copy of a stored document.
func (s *Store) Get(name, id string) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.col(name).byID[id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{ID: doc.id, Data: maps.Clone(doc.data)}, nil
}

// ResolvePending assigns server timestamps to every deferred field and
// notifies subscribers of the affected collections.
func (s *Store) ResolvePending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.collections {
		changed := false
		for _, doc := range c.docs {
			if len(doc.pending) == 0 {
				continue
			}
			now := s.opts.Clock()
			for _, field := range doc.pending {
				doc.data[field] = now
			}
			doc.pending = nil
			changed = true
		}
		if changed {
			s.publish(c)
		}
	}
}

// resolve copies rec, replacing server timestamp sentinels. Deferred fields
// are stored as nil and returned so they can be resolved later.
func (s *Store) resolve(rec store.Record) (store.Record, []string) {
	out := make(store.Record, len(rec))
	var pending []string
	for k, v := range rec {
		if !store.IsServerTimestamp(v) {
			out[k] = v
			continue
		}
		if s.opts.DeferTimestamps {
			out[k] = nil
			pending = append(pending, k)
			continue
		}
		out[k] = s.opts.Clock()
	}
	return out, pending
}

// snapshot builds the ordered view of c for orderKey. Caller holds s.mu.
func (c *collection) snapshot(orderKey string, now time.Time) store.Snapshot {
	docs := slices.Clone(c.docs)
	slices.SortStableFunc(docs, func(a, b *document) int {
		ta, tb := store.Time(a.data[orderKey]), store.Time(b.data[orderKey])
		switch {
		case ta == nil && tb == nil:
			return cmp.Compare(a.seq, b.seq)
		case ta == nil:
			return 1
		case tb == nil:
			return -1
		}
		if n := ta.Compare(*tb); n != 0 {
			return n
		}
		return cmp.Compare(a.seq, b.seq)
	})

	out := store.Snapshot{Docs: make([]store.Document, 0, len(docs)), ReadTime: now}
	for _, d := range docs {
		out.Docs = append(out.Docs, store.Document{ID: d.id, Data: maps.Clone(d.data)})
	}
	return out
}

// publish pushes a fresh snapshot to every subscriber of c. Caller holds s.mu.
func (s *Store) publish(c *collection) {
	now := s.opts.Clock()
	for sub := range c.subs {
		store.Offer(sub.ch, store.Delivery{Snapshot: c.snapshot(sub.orderKey, now)})
	}
}

// Fail delivers err to every subscriber of the collection and ends their
// subscriptions, as a remote store does when a listen stream breaks.
func (s *Store) Fail(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.col(name)
	for sub := range c.subs {
		store.Offer(sub.ch, store.Delivery{Err: err})
		sub.closeLocked()
	}
}

type subscription struct {
	s        *Store
	c        *collection
	orderKey string
	ch       chan store.Delivery
	closed   bool
}

// SubscribeOrdered delivers the current snapshot right away and a new one
// after every change to the collection.
func (s *Store) SubscribeOrdered(ctx context.Context, name, orderKey string) (store.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := s.col(name)
	sub := &subscription{
		s:        s,
		c:        c,
		orderKey: orderKey,
		ch:       make(chan store.Delivery, 1),
	}
	c.subs[sub] = struct{}{}
	store.Offer(sub.ch, store.Delivery{Snapshot: c.snapshot(orderKey, s.opts.Clock())})

	context.AfterFunc(ctx, sub.Stop)

	return sub, nil
}

func (sub *subscription) C() <-chan store.Delivery { return sub.ch }

func (sub *subscription) Stop() {
	sub.s.mu.Lock()
	defer sub.s.mu.Unlock()
	sub.closeLocked()
}

func (sub *subscription) closeLocked() {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(sub.c.subs, sub)
	close(sub.ch)
}
