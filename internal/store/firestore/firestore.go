// Package firestore backs the document store with Cloud Firestore, whose
// query snapshots already have the full-snapshot semantics the chat core
// expects.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/johndosdos/huddle/internal/store"
)

// Store is a store.Store on Firestore.
type Store struct {
	client *firestore.Client
}

var _ store.Store = (*Store)(nil)

// NewStore creates a Firestore store for projectID.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// toFirestore swaps the store sentinel for Firestore's own.
func toFirestore(rec store.Record) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if store.IsServerTimestamp(v) {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}

func writeErr(op string, err error) error {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.InvalidArgument, codes.FailedPrecondition,
		codes.AlreadyExists, codes.ResourceExhausted, codes.Unauthenticated:
		return fmt.Errorf("firestore %s: %w: %v", op, store.ErrWriteRejected, err)
	}
	return fmt.Errorf("firestore %s: %w", op, err)
}

// Append adds rec to collection under an auto-generated id.
func (s *Store) Append(ctx context.Context, collection string, rec store.Record) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, toFirestore(rec))
	if err != nil {
		return "", writeErr("Append", err)
	}
	return ref.ID, nil
}

// UpsertMerge merges fields into the document, creating it if needed.
func (s *Store) UpsertMerge(ctx context.Context, collection, id string, fields store.Record) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, toFirestore(fields), firestore.MergeAll)
	if err != nil {
		return writeErr("UpsertMerge", err)
	}
	return nil
}

type subscription struct {
	cancel context.CancelFunc
	ch     chan store.Delivery
}

func (sub *subscription) C() <-chan store.Delivery { return sub.ch }

func (sub *subscription) Stop() { sub.cancel() }

// SubscribeOrdered listens to collection ordered ascending by orderKey.
func (s *Store) SubscribeOrdered(ctx context.Context, collection, orderKey string) (store.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		cancel: cancel,
		ch:     make(chan store.Delivery, 1),
	}

	it := s.client.Collection(collection).OrderBy(orderKey, firestore.Asc).Snapshots(ctx)

	go func() {
		defer close(sub.ch)
		defer it.Stop()

		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled || errors.Is(err, iterator.Done) {
					return
				}
				store.Offer(sub.ch, store.Delivery{Err: fmt.Errorf("firestore snapshot: %w", err)})
				return
			}

			snaps, err := qs.Documents.GetAll()
			if err != nil {
				store.Offer(sub.ch, store.Delivery{Err: fmt.Errorf("firestore snapshot documents: %w", err)})
				return
			}

			snap := store.Snapshot{Docs: make([]store.Document, 0, len(snaps)), ReadTime: qs.ReadTime}
			if snap.ReadTime.IsZero() {
				snap.ReadTime = time.Now().UTC()
			}
			for _, ds := range snaps {
				snap.Docs = append(snap.Docs, store.Document{ID: ds.Ref.ID, Data: ds.Data()})
			}
			store.Offer(sub.ch, store.Delivery{Snapshot: snap})
		}
	}()

	return sub, nil
}
