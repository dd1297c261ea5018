// Package websocket streams a conversation view over a websocket as JSON
// frames and accepts messages sent over the same connection.
package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/johndosdos/huddle/internal/chat"
	"github.com/johndosdos/huddle/internal/model"
)

// Frame types.
const (
	TypeMessages = "messages"
	TypeSent     = "sent"
	TypeError    = "error"
)

// Outbound is a frame written to the client.
type Outbound struct {
	Type          string                 `json:"type"`
	View          *model.MessageListView `json:"view,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// Inbound is a frame read from the client. Content matches the composer's
// field name so htmx ws-send payloads decode as is.
type Inbound struct {
	Content string `json:"content"`
}

// Sender is the send pipeline.
type Sender interface {
	Send(ctx context.Context, session *model.Session, body string) (chat.Outcome, error)
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 50 * time.Second
)

// Client is one websocket connection bound to a conversation view.
type Client struct {
	session *model.Session
	conn    *websocket.Conn
	view    *chat.View
	sender  Sender
	replies chan Outbound
}

func NewClient(conn *websocket.Conn, view *chat.View, sender Sender, session *model.Session) *Client {
	return &Client{
		session: session,
		conn:    conn,
		view:    view,
		sender:  sender,
		replies: make(chan Outbound, 16),
	}
}

func (c *Client) write(ctx context.Context, f Outbound) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, c.conn, f)
}

// WriteMessage writes view updates, send replies and keepalive pings until
// ctx is done or a write fails.
func (c *Client) WriteMessage(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case list := <-c.view.Updates:
			err = c.write(ctx, Outbound{Type: TypeMessages, View: &list})

		case subErr := <-c.view.Errors:
			slog.WarnContext(ctx, "message subscription failed", "error", subErr)
			err = c.write(ctx, Outbound{Type: TypeError, Error: "connection problem: new messages may not show up"})

		case reply := <-c.replies:
			err = c.write(ctx, reply)

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.conn.Ping(pingCtx)
			cancel()

		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "context cancelled") //nolint:errcheck
			return
		}

		if err != nil {
			slog.DebugContext(ctx, "websocket write failed",
				"error", err,
				"user_id", c.session.UserID.String())
			c.conn.CloseNow() //nolint:errcheck
			return
		}
	}
}

func (c *Client) reply(ctx context.Context, f Outbound) {
	select {
	case c.replies <- f:
	case <-ctx.Done():
	}
}
