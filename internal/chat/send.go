package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/johndosdos/huddle/internal/feed"
	"github.com/johndosdos/huddle/internal/model"
	ratelimiter "github.com/johndosdos/huddle/internal/rate_limiter"
	"github.com/johndosdos/huddle/internal/store"
)

// PendingSink receives optimistic entries for a user's open views.
type PendingSink interface {
	Track(ctx context.Context, userID uuid.UUID, msg model.Message)
	Discard(ctx context.Context, userID uuid.UUID, correlationID string)
}

// Outcome describes an accepted message.
type Outcome struct {
	ID            string
	CorrelationID string
	Message       model.Message
}

// SenderOpts tune a Sender. A zero RatePerMinute disables throttling.
type SenderOpts struct {
	RatePerMinute int
}

// Sender is the send pipeline.
type Sender struct {
	store   store.Store
	sink    PendingSink
	limiter *ratelimiter.Limiter[uuid.UUID]
}

// NewSender returns a Sender appending to st. sink may be nil.
func NewSender(st store.Store, sink PendingSink, opts SenderOpts) *Sender {
	return &Sender{
		store: st,
		sink:  sink,
		limiter: ratelimiter.NewLimiter[uuid.UUID](opts.RatePerMinute, time.Minute, ratelimiter.CleanupOpts{
			TTL:      10 * time.Minute,
			Interval: time.Minute,
		}),
	}
}

// Close releases the sender's background resources.
func (s *Sender) Close() {
	s.limiter.Stop()
}

// Send validates body and appends it as a message authored by session. The
// body is stored trimmed and otherwise as typed; escaping happens at render.
// The author fields are copied from session as it is now. Validation failures
// never reach the store.
func (s *Sender) Send(ctx context.Context, session *model.Session, body string) (Outcome, error) {
	if session == nil {
		return Outcome{}, ErrUnauthenticated
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return Outcome{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return Outcome{}, ErrMessageTooLong
	}
	if !s.limiter.Allow(session.UserID) {
		return Outcome{}, ErrRateLimited
	}

	msg := model.Message{
		Body:          body,
		AuthorID:      session.UserID,
		AuthorName:    session.DisplayName,
		AuthorAvatar:  session.AvatarURL,
		AuthorEmail:   session.Email,
		CorrelationID: uuid.NewString(),
	}

	if s.sink != nil {
		s.sink.Track(ctx, session.UserID, msg)
	}

	id, err := s.store.Append(ctx, store.Messages, feed.EncodeMessage(msg))
	if err != nil {
		if s.sink != nil {
			s.sink.Discard(context.WithoutCancel(ctx), session.UserID, msg.CorrelationID)
		}
		slog.WarnContext(ctx, "message not sent",
			slog.String("user_id", session.UserID.String()),
			slog.String("correlation_id", msg.CorrelationID),
			slog.Any("error", err))
		return Outcome{}, fmt.Errorf("send message: %w", err)
	}

	msg.ID = id
	return Outcome{ID: id, CorrelationID: msg.CorrelationID, Message: msg}, nil
}
