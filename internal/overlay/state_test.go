package overlay

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/johndosdos/huddle/internal/model"
)

func TestApply(t *testing.T) {
	viewer := uuid.New()
	me := model.Profile{UserID: viewer, DisplayName: "Alice"}
	bob := model.Profile{UserID: uuid.New(), DisplayName: "Bob"}
	carol := model.Profile{UserID: uuid.New(), DisplayName: "Carol"}
	anchor := Rect{Top: 300, Left: 300, Width: 40, Height: 40}
	vp := Size{Width: 800, Height: 600}

	ev := func(tr Trigger, p model.Profile) Event {
		return Event{Trigger: tr, Subject: p, Anchor: anchor, Viewport: vp}
	}

	t.Run("click on own avatar opens editable card", func(t *testing.T) {
		s := Apply(State{}, viewer, ev(Click, me))
		assert.True(t, s.Open)
		assert.True(t, s.Editable)
		assert.Equal(t, me, s.Subject)
		assert.Equal(t, CardPosition(anchor, vp), s.Position)
	})

	t.Run("click on other avatar is ignored", func(t *testing.T) {
		s := Apply(State{}, viewer, ev(Click, bob))
		assert.False(t, s.Open)
	})

	t.Run("hover opens read-only card and exit closes it", func(t *testing.T) {
		s := Apply(State{}, viewer, ev(HoverEnter, bob))
		assert.True(t, s.Open)
		assert.False(t, s.Editable)

		s = Apply(s, viewer, Event{Trigger: HoverExit})
		assert.False(t, s.Open)
	})

	t.Run("hover on a different avatar replaces subject", func(t *testing.T) {
		s := Apply(State{}, viewer, ev(HoverEnter, bob))
		s = Apply(s, viewer, ev(HoverEnter, carol))
		assert.Equal(t, carol, s.Subject)
	})

	t.Run("hover exit keeps click-opened card", func(t *testing.T) {
		s := Apply(State{}, viewer, ev(Click, me))
		s = Apply(s, viewer, ev(HoverEnter, bob))
		assert.Equal(t, me, s.Subject)
		s = Apply(s, viewer, Event{Trigger: HoverExit})
		assert.True(t, s.Open)
	})

	for _, tr := range []Trigger{Close, OutsideClick} {
		t.Run(tr.String()+" closes", func(t *testing.T) {
			s := Apply(State{}, viewer, ev(Click, me))
			s = Apply(s, viewer, Event{Trigger: tr})
			assert.Equal(t, State{}, s)
		})
	}
}

func TestParseTrigger(t *testing.T) {
	tr, ok := ParseTrigger("hover-enter")
	assert.True(t, ok)
	assert.Equal(t, HoverEnter, tr)

	_, ok = ParseTrigger("drag")
	assert.False(t, ok)
}
