package overlay

import (
	"sync"

	"github.com/google/uuid"
)

// Tracker holds the overlay state of every viewer. Closed overlays are not
// kept.
type Tracker struct {
	mu     sync.Mutex
	states map[uuid.UUID]State
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[uuid.UUID]State)}
}

// Apply moves viewer's overlay with ev and returns the new state.
func (t *Tracker) Apply(viewer uuid.UUID, ev Event) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Apply(t.states[viewer], viewer, ev)
	if s.Open {
		t.states[viewer] = s
	} else {
		delete(t.states, viewer)
	}
	return s
}

// Get returns viewer's current overlay.
func (t *Tracker) Get(viewer uuid.UUID) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[viewer]
}

// Rename updates the subject name of viewer's overlay if it shows subject.
func (t *Tracker) Rename(viewer, subject uuid.UUID, name string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.states[viewer]
	if ok && s.Subject.UserID == subject {
		s.Subject.DisplayName = name
		t.states[viewer] = s
	}
	return s
}
