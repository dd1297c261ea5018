package firestore

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/johndosdos/huddle/internal/store"
)

func TestToFirestoreSwapsSentinel(t *testing.T) {
	out := toFirestore(store.Record{"text": "hi", "createdAt": store.ServerTimestamp})
	assert.Equal(t, "hi", out["text"])
	assert.Equal(t, firestore.ServerTimestamp, out["createdAt"])
}

func TestWriteErr(t *testing.T) {
	err := writeErr("Append", status.Error(codes.PermissionDenied, "denied"))
	assert.ErrorIs(t, err, store.ErrWriteRejected)

	err = writeErr("Append", errors.New("connection reset"))
	assert.NotErrorIs(t, err, store.ErrWriteRejected)
}

func TestNewStoreRequiresProject(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	assert.Error(t, err)
}
