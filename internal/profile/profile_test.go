package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/huddle/internal/auth"
	"github.com/johndosdos/huddle/internal/chat"
	"github.com/johndosdos/huddle/internal/feed"
	"github.com/johndosdos/huddle/internal/model"
	"github.com/johndosdos/huddle/internal/store"
	"github.com/johndosdos/huddle/internal/store/memory"
	"github.com/johndosdos/huddle/internal/testutil"
)

type countingProvider struct {
	Provider
	updates int
}

func (c *countingProvider) UpdateDisplayName(ctx context.Context, s *model.Session, name string) error {
	c.updates++
	return c.Provider.UpdateDisplayName(ctx, s, name)
}

func register(t *testing.T, svc *auth.Service, name string) *model.Session {
	t.Helper()
	g, err := svc.Register(context.Background(), auth.RegisterParams{
		Username: name,
		Email:    name + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return &g.Session
}

func TestUpdateDisplayNameRejected(t *testing.T) {
	svc := auth.NewService(testutil.NewQueries(), auth.Config{JWTSecret: "secret"})
	me := register(t, svc, "alice")

	tests := []struct {
		name    string
		viewer  *model.Session
		subject uuid.UUID
		newName string
		wantErr error
	}{
		{"other_user", me, uuid.New(), "mallory", ErrNotSelf},
		{"empty_name", me, me.UserID, "", ErrEmptyDisplayName},
		{"whitespace_name", me, me.UserID, "   ", ErrEmptyDisplayName},
		{"no_session", nil, me.UserID, "alicia", ErrUnauthenticated},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider := &countingProvider{Provider: svc}
			st := memory.New(memory.Options{})
			e := NewEditor(provider, st)

			_, err := e.UpdateDisplayName(context.Background(), tc.viewer, tc.subject, tc.newName)

			assert.ErrorIs(t, err, tc.wantErr)
			assert.Zero(t, provider.updates, "no provider call")
			_, err = st.Get(store.Users, me.UserID.String())
			assert.ErrorIs(t, err, store.ErrNotFound, "no profile write")
		})
	}
}

func TestUpdateDisplayName(t *testing.T) {
	ctx := context.Background()
	svc := auth.NewService(testutil.NewQueries(), auth.Config{JWTSecret: "secret"})
	me := register(t, svc, "alice")
	st := memory.New(memory.Options{})

	sender := chat.NewSender(st, nil, chat.SenderOpts{})
	defer sender.Close()
	sent, err := sender.Send(ctx, me, "hello")
	require.NoError(t, err)

	require.NoError(t, st.UpsertMerge(ctx, store.Users, me.UserID.String(), store.Record{"theme": "dark"}))

	updated, err := NewEditor(svc, st).UpdateDisplayName(ctx, me, me.UserID, "  alicia ")
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.DisplayName)
	assert.Equal(t, me.UserID, updated.UserID)

	doc, err := st.Get(store.Users, me.UserID.String())
	require.NoError(t, err)
	assert.Equal(t, "alicia", doc.Data[FieldDisplayName])
	assert.Nil(t, doc.Data[FieldPhotoURL])
	assert.Equal(t, "dark", doc.Data["theme"], "merge keeps other fields")

	// Historical messages keep their author snapshot.
	msgDoc, err := st.Get(store.Messages, sent.ID)
	require.NoError(t, err)
	msg, err := feed.DecodeMessage(msgDoc)
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.AuthorName)
}

func TestUpdateDisplayNameProviderFailure(t *testing.T) {
	q := testutil.NewQueries()
	svc := auth.NewService(q, auth.Config{JWTSecret: "secret"})
	me := register(t, svc, "alice")
	st := memory.New(memory.Options{})

	boom := errors.New("connection reset")
	q.Err = boom

	_, err := NewEditor(svc, st).UpdateDisplayName(context.Background(), me, me.UserID, "alicia")
	assert.ErrorIs(t, err, boom)
	_, err = st.Get(store.Users, me.UserID.String())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
