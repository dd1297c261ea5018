package overlay

import (
	"github.com/google/uuid"

	"github.com/johndosdos/huddle/internal/model"
)

// Trigger is a user interaction that drives the overlay.
type Trigger int

const (
	Click Trigger = iota
	HoverEnter
	HoverExit
	OutsideClick
	Close
)

func (t Trigger) String() string {
	switch t {
	case Click:
		return "click"
	case HoverEnter:
		return "hover-enter"
	case HoverExit:
		return "hover-exit"
	case OutsideClick:
		return "outside-click"
	case Close:
		return "close"
	}
	return "unknown"
}

// ParseTrigger maps the names used by the presentation layer to triggers.
func ParseTrigger(s string) (Trigger, bool) {
	for _, t := range []Trigger{Click, HoverEnter, HoverExit, OutsideClick, Close} {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// State is the overlay of one conversation view. The zero value is closed.
type State struct {
	Open     bool
	Subject  model.Profile
	Anchor   Rect
	Position Position
	OpenedBy Trigger
	Editable bool
}

// Event is a trigger together with the avatar it happened on. Subject and
// Anchor are ignored for HoverExit, OutsideClick and Close.
type Event struct {
	Trigger  Trigger
	Subject  model.Profile
	Anchor   Rect
	Viewport Size
}

// Apply returns the state that follows s after ev, seen by viewer.
//
// Clicks open the card only on the viewer's own avatar, and that card is
// editable. Hovering another user's avatar opens a read-only card that closes
// again on hover exit. Opening on a different avatar replaces the subject.
func Apply(s State, viewer uuid.UUID, ev Event) State {
	switch ev.Trigger {
	case Click:
		if ev.Subject.UserID != viewer {
			return s
		}
		return open(ev, Click, true)

	case HoverEnter:
		if ev.Subject.UserID == viewer {
			return s
		}
		// A click-opened card stays put while the pointer wanders.
		if s.Open && s.OpenedBy == Click {
			return s
		}
		return open(ev, HoverEnter, false)

	case HoverExit:
		if s.Open && s.OpenedBy == HoverEnter {
			return State{}
		}
		return s

	case OutsideClick, Close:
		return State{}
	}

	return s
}

func open(ev Event, by Trigger, editable bool) State {
	return State{
		Open:     true,
		Subject:  ev.Subject,
		Anchor:   ev.Anchor,
		Position: CardPosition(ev.Anchor, ev.Viewport),
		OpenedBy: by,
		Editable: editable,
	}
}
