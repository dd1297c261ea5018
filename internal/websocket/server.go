package websocket

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/johndosdos/huddle/internal/chat"
)

// ReadMessage reads frames from the client and sends them through the send
// pipeline until the connection closes. Validation failures are answered with
// an error frame; the connection stays open.
func (c *Client) ReadMessage(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck

	for {
		var in Inbound
		if err := wsjson.Read(ctx, c.conn, &in); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway &&
				status != -1 {
				slog.WarnContext(ctx, "websocket read failed", "error", err)
			}
			return
		}

		out, err := c.sender.Send(ctx, c.session, in.Content)
		if err != nil {
			if errors.Is(err, chat.ErrUnauthenticated) {
				c.conn.Close(websocket.StatusPolicyViolation, "signed out") //nolint:errcheck
				return
			}
			c.reply(ctx, Outbound{Type: TypeError, Error: err.Error()})
			continue
		}

		c.reply(ctx, Outbound{Type: TypeSent, CorrelationID: out.CorrelationID})
	}
}

// Serve runs the client until either direction stops.
func (c *Client) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		c.ReadMessage(ctx)
		cancel()
	}()
	c.WriteMessage(ctx)
}
