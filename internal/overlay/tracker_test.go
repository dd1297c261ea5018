package overlay

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/johndosdos/huddle/internal/model"
)

func TestTracker(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	vp := Size{Width: 1280, Height: 800}
	anchor := Rect{Top: 400, Left: 100, Width: 40, Height: 40}

	tr := NewTracker()

	s := tr.Apply(me, Event{Trigger: Click, Subject: model.Profile{UserID: me, DisplayName: "alice"}, Anchor: anchor, Viewport: vp})
	assert.True(t, s.Open)
	assert.True(t, s.Editable)

	s = tr.Rename(me, me, "alicia")
	assert.Equal(t, "alicia", tr.Get(me).Subject.DisplayName)
	assert.Equal(t, "alicia", s.Subject.DisplayName)

	// Viewers are independent.
	assert.False(t, tr.Get(other).Open)

	tr.Apply(me, Event{Trigger: Close})
	assert.False(t, tr.Get(me).Open)
	assert.Empty(t, tr.states)

	s = tr.Rename(me, me, "ignored")
	assert.False(t, s.Open)
}
