// Package profile edits the signed-in user's own profile.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/johndosdos/huddle/internal/model"
	"github.com/johndosdos/huddle/internal/store"
)

var (
	ErrNotSelf          = errors.New("profile: only your own profile can be edited")
	ErrEmptyDisplayName = errors.New("profile: display name is empty")
	ErrUnauthenticated  = errors.New("profile: not signed in")
)

// Profile record fields.
const (
	FieldDisplayName = "displayName"
	FieldPhotoURL    = "photoURL"
)

// Provider is the identity provider side of a profile edit.
type Provider interface {
	UpdateDisplayName(ctx context.Context, s *model.Session, name string) error
	LoadSession(ctx context.Context, userID uuid.UUID) (*model.Session, error)
}

// Editor updates display names in the identity provider and the shared
// profile record.
type Editor struct {
	provider Provider
	store    store.Store
}

func NewEditor(provider Provider, st store.Store) *Editor {
	return &Editor{provider: provider, store: st}
}

// UpdateDisplayName renames viewer, who must be the subject. Messages already
// sent keep the name they were sent with.
func (e *Editor) UpdateDisplayName(ctx context.Context, viewer *model.Session, subjectID uuid.UUID, newName string) (model.Session, error) {
	if viewer == nil {
		return model.Session{}, ErrUnauthenticated
	}
	if viewer.UserID != subjectID {
		return model.Session{}, ErrNotSelf
	}

	name := strings.TrimSpace(newName)
	if name == "" {
		return model.Session{}, ErrEmptyDisplayName
	}

	if err := e.provider.UpdateDisplayName(ctx, viewer, name); err != nil {
		return model.Session{}, fmt.Errorf("update display name: %w", err)
	}

	fields := store.Record{
		FieldDisplayName: name,
		FieldPhotoURL:    nil,
	}
	if viewer.AvatarURL != "" {
		fields[FieldPhotoURL] = viewer.AvatarURL
	}
	if err := e.store.UpsertMerge(ctx, store.Users, viewer.UserID.String(), fields); err != nil {
		return model.Session{}, fmt.Errorf("update profile record: %w", err)
	}

	updated, err := e.provider.LoadSession(ctx, viewer.UserID)
	if err != nil {
		return model.Session{}, fmt.Errorf("reload session: %w", err)
	}

	slog.InfoContext(ctx, "display name updated",
		slog.String("user_id", viewer.UserID.String()))
	return *updated, nil
}
