// Package postgres stores documents in a jsonb table. Live subscriptions
// re-query their collection whenever this instance writes to it or a change
// notice arrives from another instance.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/johndosdos/huddle/internal/database"
	"github.com/johndosdos/huddle/internal/store"
)

// Notifier tells other instances that a collection changed.
type Notifier interface {
	Notify(ctx context.Context, collection, documentID string) error
}

// Store is a store.Store on top of the documents table.
type Store struct {
	db       *database.Queries
	notifier Notifier

	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

var _ store.Store = (*Store)(nil)

// New returns a Store. With a nil notifier, changes only reach subscriptions
// of this instance.
func New(db *database.Queries, notifier Notifier) *Store {
	return &Store{
		db:       db,
		notifier: notifier,
		subs:     make(map[string]map[*subscription]struct{}),
	}
}

// encode splits rec into the JSON payload and the list of fields that carry
// the server timestamp sentinel. The database writes its clock into those
// fields as part of the insert or upsert.
func encode(rec store.Record) ([]byte, []string, error) {
	plain := make(map[string]any, len(rec))
	serverFields := []string{}
	for k, v := range rec {
		if store.IsServerTimestamp(v) {
			serverFields = append(serverFields, k)
			continue
		}
		plain[k] = v
	}

	data, err := json.Marshal(plain)
	if err != nil {
		return nil, nil, fmt.Errorf("could not encode record: %w", err)
	}
	return data, serverFields, nil
}

func decode(doc database.Document) (store.Document, error) {
	data := store.Record{}
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return store.Document{}, fmt.Errorf("could not decode document %s: %w", doc.ID, err)
	}
	for _, field := range doc.ServerFields {
		ts := store.Time(data[field])
		if ts == nil {
			return store.Document{}, fmt.Errorf("document %s: server field %q holds %v", doc.ID, field, data[field])
		}
		data[field] = ts.UTC()
	}
	return store.Document{ID: doc.ID, Data: data}, nil
}

// rejected reports whether err came from the database refusing the write, as
// opposed to a connection or context failure.
func rejected(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}

// Append inserts rec under a fresh id.
func (s *Store) Append(ctx context.Context, collection string, rec store.Record) (string, error) {
	data, serverFields, err := encode(rec)
	if err != nil {
		return "", err
	}

	doc, err := s.db.InsertDocument(ctx, database.InsertDocumentParams{
		Collection:   collection,
		ID:           uuid.NewString(),
		Data:         data,
		ServerFields: serverFields,
	})
	if err != nil {
		if rejected(err) {
			return "", fmt.Errorf("%w: %v", store.ErrWriteRejected, err)
		}
		return "", fmt.Errorf("database error: %w", err)
	}

	s.changed(ctx, collection, doc.ID)
	return doc.ID, nil
}

// UpsertMerge merges fields into the document with the given id.
func (s *Store) UpsertMerge(ctx context.Context, collection, id string, fields store.Record) error {
	data, serverFields, err := encode(fields)
	if err != nil {
		return err
	}

	err = s.db.UpsertDocumentMerge(ctx, database.UpsertDocumentMergeParams{
		Collection:   collection,
		ID:           id,
		Data:         data,
		ServerFields: serverFields,
	})
	if err != nil {
		if rejected(err) {
			return fmt.Errorf("%w: %v", store.ErrWriteRejected, err)
		}
		return fmt.Errorf("database error: %w", err)
	}

	s.changed(ctx, collection, id)
	return nil
}

// Get loads a single document.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	doc, err := s.db.GetDocument(ctx, database.GetDocumentParams{Collection: collection, ID: id})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Document{}, store.ErrNotFound
		}
		return store.Document{}, fmt.Errorf("database error: %w", err)
	}
	return decode(doc)
}

func (s *Store) changed(ctx context.Context, collection, id string) {
	if s.notifier == nil {
		s.Changed(collection)
		return
	}
	// The notice comes back to this instance through the broker as well.
	if err := s.notifier.Notify(ctx, collection, id); err != nil {
		slog.WarnContext(ctx, "failed to publish change notice",
			"error", err,
			"collection", collection)
		s.Changed(collection)
	}
}

// Changed wakes every live subscription on collection.
func (s *Store) Changed(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs[collection] {
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

func (s *Store) snapshot(ctx context.Context, collection, orderKey string) (store.Snapshot, error) {
	rows, err := s.db.ListDocuments(ctx, database.ListDocumentsParams{
		Collection: collection,
		OrderKey:   orderKey,
	})
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("database error: %w", err)
	}

	snap := store.Snapshot{Docs: make([]store.Document, 0, len(rows)), ReadTime: time.Now().UTC()}
	for _, row := range rows {
		doc, err := decode(row)
		if err != nil {
			return store.Snapshot{}, err
		}
		snap.Docs = append(snap.Docs, doc)
	}
	return snap, nil
}

type subscription struct {
	cancel context.CancelFunc
	wake   chan struct{}
	ch     chan store.Delivery
}

// SubscribeOrdered runs a goroutine that queries the collection once up front
// and again after every change, until ctx is done or Stop is called. A failed
// query is delivered and ends the subscription.
func (s *Store) SubscribeOrdered(ctx context.Context, collection, orderKey string) (store.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		ch:     make(chan store.Delivery, 1),
	}
	sub.wake <- struct{}{}

	s.mu.Lock()
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[*subscription]struct{})
	}
	s.subs[collection][sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.subs[collection], sub)
			s.mu.Unlock()
			close(sub.ch)
		}()

		for {
			select {
			case <-sub.wake:
				snap, err := s.snapshot(ctx, collection, orderKey)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					store.Offer(sub.ch, store.Delivery{Err: err})
					return
				}
				store.Offer(sub.ch, store.Delivery{Snapshot: snap})

			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

func (sub *subscription) C() <-chan store.Delivery { return sub.ch }

func (sub *subscription) Stop() { sub.cancel() }
