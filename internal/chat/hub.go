package chat

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/johndosdos/huddle/internal/model"
)

// Registration asks the hub to track a view. Done is closed once it is.
type Registration struct {
	View *View
	Done chan struct{}
}

type pendingOp struct {
	userID        uuid.UUID
	msg           model.Message
	correlationID string
	discard       bool
	session       *model.Session
}

// Hub tracks the open conversation views of every user.
type Hub struct {
	views      map[uuid.UUID]map[*View]struct{}
	Register   chan Registration
	Unregister chan *View
	pending    chan pendingOp
	done       chan struct{}
}

// NewHub returns a new instance of Hub.
func NewHub() *Hub {
	return &Hub{
		views:      make(map[uuid.UUID]map[*View]struct{}),
		Register:   make(chan Registration),
		Unregister: make(chan *View),
		pending:    make(chan pendingOp, 64),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and pending-entry fan-out until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case reg := <-h.Register:
			v := reg.View
			if h.views[v.UserID] == nil {
				h.views[v.UserID] = make(map[*View]struct{})
			}
			h.views[v.UserID][v] = struct{}{}
			close(reg.Done)

		case v := <-h.Unregister:
			delete(h.views[v.UserID], v)
			if len(h.views[v.UserID]) == 0 {
				delete(h.views, v.UserID)
			}

		case op := <-h.pending:
			for v := range h.views[op.userID] {
				switch {
				case op.session != nil:
					v.setViewer(*op.session)
				case op.discard:
					v.sub.Discard(op.correlationID)
				default:
					v.sub.Track(op.msg)
				}
			}

		case <-ctx.Done():
			slog.Info("hub stopped", "reason", context.Cause(ctx))
			return
		}
	}
}

// Track shows msg as pending in every open view of userID.
func (h *Hub) Track(ctx context.Context, userID uuid.UUID, msg model.Message) {
	h.push(ctx, pendingOp{userID: userID, msg: msg})
}

// Discard removes the pending entry from every open view of userID.
func (h *Hub) Discard(ctx context.Context, userID uuid.UUID, correlationID string) {
	h.push(ctx, pendingOp{userID: userID, correlationID: correlationID, discard: true})
}

// Refresh hands the user's updated session to every open view of that user.
func (h *Hub) Refresh(ctx context.Context, session model.Session) {
	h.push(ctx, pendingOp{userID: session.UserID, session: &session})
}

func (h *Hub) push(ctx context.Context, op pendingOp) {
	select {
	case h.pending <- op:
	case <-h.done:
	case <-ctx.Done():
	}
}
