// Package store defines the document store the chat core talks to: durable
// collections of schemaless records that can be appended to, merged into and
// subscribed to as ordered full snapshots.
package store

import (
	"context"
	"errors"
	"time"
)

// Collection names used by the application.
const (
	Messages = "messages"
	Users    = "users"
)

var (
	ErrWriteRejected = errors.New("store: write rejected")
	ErrNotFound      = errors.New("store: not found")
)

// Record is a document's field set.
type Record map[string]any

type serverTimestamp struct{}

// ServerTimestamp is a field value the store replaces with its own clock at
// write time. Until the store resolves it, snapshots may carry nil for that
// field.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Document is a stored record together with its store-assigned id.
type Document struct {
	ID   string
	Data Record
}

// Snapshot is the complete, currently matching document set of an ordered
// query.
type Snapshot struct {
	Docs     []Document
	ReadTime time.Time
}

// Delivery carries either a snapshot or the subscription's failure.
type Delivery struct {
	Snapshot Snapshot
	Err      error
}

// Subscription is a live ordered query. C is closed once the subscription
// ends, either through Stop, context cancellation or a terminal error.
type Subscription interface {
	C() <-chan Delivery
	Stop()
}

// Store is the document store consumed by the chat core.
type Store interface {
	// Append adds rec to collection and returns the new document id.
	Append(ctx context.Context, collection string, rec Record) (string, error)

	// SubscribeOrdered streams full snapshots of collection ordered ascending
	// by orderKey. Documents whose orderKey is still unresolved come last.
	SubscribeOrdered(ctx context.Context, collection, orderKey string) (Subscription, error)

	// UpsertMerge merges fields into the document, creating it if needed.
	UpsertMerge(ctx context.Context, collection, id string, fields Record) error
}

// Offer replaces whatever is pending in ch with d. Full snapshots supersede
// each other, so a slow reader only ever sees the latest one. ch must have a
// capacity of one and a single producer.
func Offer(ch chan Delivery, d Delivery) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- d:
	default:
	}
}

// Time decodes a timestamp field as stored by any of the backends: native
// time values or RFC 3339 strings from JSON documents.
func Time(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return &t
	case *time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil
		}
		return &parsed
	}
	return nil
}

// String decodes a string field, returning "" for missing or null values.
func String(v any) string {
	s, _ := v.(string)
	return s
}
