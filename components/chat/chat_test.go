package chat

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/huddle/internal/model"
	"github.com/johndosdos/huddle/internal/overlay"
)

var (
	viewer = model.Session{
		UserID:      uuid.MustParse("4a3c2b1d-0e9f-4a8b-8c7d-6e5f4a3b2c1d"),
		DisplayName: "alice",
		AvatarURL:   "https://cdn.example.com/alice.png",
	}
	bobID = uuid.MustParse("9f8e7d6c-5b4a-4392-8a1b-0c9d8e7f6a5b")
)

func renderHTML(t *testing.T, render func(ctx context.Context, buf *bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, render(context.Background(), &buf))
	return buf.String()
}

func confirmed(id string, author uuid.UUID, name, body string) *model.Entry {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	return &model.Entry{State: model.Confirmed, Message: model.Message{
		ID: id, Body: body, AuthorID: author, AuthorName: name, CreatedAt: &ts,
	}}
}

func TestChatInputComponent(t *testing.T) {
	out := renderHTML(t, func(ctx context.Context, buf *bytes.Buffer) error { return ChatInput().Render(ctx, buf) })

	assert.Contains(t, out, "<form")
	assert.Contains(t, out, `hx-post="/messages"`)
	assert.Contains(t, out, `name="content"`)
	assert.Contains(t, out, `type="submit"`)
	assert.Contains(t, out, "Send")
}

func TestChatLayoutComponent(t *testing.T) {
	out := renderHTML(t, func(ctx context.Context, buf *bytes.Buffer) error { return ChatLayout(viewer).Render(ctx, buf) })

	assert.Contains(t, out, `sse-connect="/chat/stream"`)
	assert.Contains(t, out, `sse-swap="messages"`)
	assert.Contains(t, out, `id="`+ViewerName+`">alice<`)
	assert.Contains(t, out, `hx-post="/account/logout"`)
	assert.Contains(t, out, `id="`+OverlayID+`"`)
	assert.Contains(t, out, `name="content"`)
}

func TestReceiverBubbleComponent(t *testing.T) {
	e := confirmed("m1", bobID, "bob", "hello")

	out := renderHTML(t, func(ctx context.Context, buf *bytes.Buffer) error { return ReceiverBubble(e, false).Render(ctx, buf) })
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, `<span class="avatar">B</span>`)
	assert.Contains(t, out, `hx-trigger="mouseenter, mouseleave"`)

	e = confirmed("m2", bobID, "bob", "world")
	out = renderHTML(t, func(ctx context.Context, buf *bytes.Buffer) error { return ReceiverBubble(e, true).Render(ctx, buf) })
	assert.NotContains(t, out, "bob")
	assert.Contains(t, out, "world")
}

func TestSenderBubbleComponent(t *testing.T) {
	e := confirmed("m1", viewer.UserID, "old name", "hi <there>")

	out := renderHTML(t, func(ctx context.Context, buf *bytes.Buffer) error { return SenderBubble(e, viewer, false).Render(ctx, buf) })
	assert.Contains(t, out, "Me")
	assert.NotContains(t, out, "old name")
	assert.Contains(t, out, "hi &lt;there&gt;")
	assert.Contains(t, out, `src="https://cdn.example.com/alice.png"`)
	assert.Contains(t, out, `hx-trigger="click"`)
}

func TestMessageListComponent(t *testing.T) {
	pending := &model.Entry{State: model.Pending, Message: model.Message{
		Body: "on its way", AuthorID: viewer.UserID, CorrelationID: "c1",
	}}
	view := model.MessageListView{Entries: []*model.Entry{
		confirmed("m1", bobID, "bob", "first"),
		confirmed("m2", bobID, "bob", "second"),
		confirmed("m3", viewer.UserID, "alice", "third"),
		pending,
	}}

	out := renderHTML(t, func(ctx context.Context, buf *bytes.Buffer) error { return MessageList(view, viewer).Render(ctx, buf) })

	assert.Equal(t, 1, strings.Count(out, `<span class="author">bob</span>`), "grouped by author")
	assert.Equal(t, 1, strings.Count(out, `<span class="author">Me</span>`))
	assert.Contains(t, out, `id="msg-pending-c1"`)
	assert.Contains(t, out, "sending…")
	assert.Less(t, strings.Index(out, "first"), strings.Index(out, "on its way"))
}

func TestProfileCardComponent(t *testing.T) {
	vp := overlay.Size{Width: 1280, Height: 800}

	closed := renderHTML(t, func(ctx context.Context, buf *bytes.Buffer) error {
		return ProfileCard(overlay.State{}, "").Render(ctx, buf)
	})
	assert.Empty(t, closed)

	own := overlay.Apply(overlay.State{}, viewer.UserID, overlay.Event{
		Trigger:  overlay.Click,
		Subject:  model.Profile{UserID: viewer.UserID, DisplayName: "alice", Email: "alice@example.com"},
		Anchor:   overlay.Rect{Top: 15, Left: 15, Width: 40, Height: 40},
		Viewport: vp,
	})
	out := renderHTML(t, func(ctx context.Context, buf *bytes.Buffer) error { return ProfileCard(own, "name is empty").Render(ctx, buf) })
	assert.Contains(t, out, "top: 63px; left: 8px;")
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "Edit Name")
	assert.Contains(t, out, "name is empty")
	assert.Contains(t, out, "trigger=outside-click")

	other := overlay.Apply(overlay.State{}, viewer.UserID, overlay.Event{
		Trigger:  overlay.HoverEnter,
		Subject:  model.Profile{UserID: bobID, DisplayName: "bob"},
		Anchor:   overlay.Rect{Top: 400, Left: 300, Width: 40, Height: 40},
		Viewport: vp,
	})
	out = renderHTML(t, func(ctx context.Context, buf *bytes.Buffer) error { return ProfileCard(other, "").Render(ctx, buf) })
	assert.Contains(t, out, "bob")
	assert.NotContains(t, out, "Edit Name")
	assert.NotContains(t, out, "@")
}

func TestAvatarComponent(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		notWant string
	}{
		{"https picture", "https://cdn.example.com/bob.png", `src="https://cdn.example.com/bob.png"`, `<span class="avatar">`},
		{"no picture", "", `<span class="avatar">B</span>`, "<img"},
		{"script url", "javascript:alert(1)", `<span class="avatar">B</span>`, "javascript"},
		{"attribute breakout", `x" onerror="alert(1)`, `<span class="avatar">B</span>`, "onerror"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := model.Profile{UserID: bobID, DisplayName: "bob", AvatarURL: tt.url}
			out := renderHTML(t, func(ctx context.Context, buf *bytes.Buffer) error { return Avatar(p).Render(ctx, buf) })
			assert.Contains(t, out, tt.want)
			assert.NotContains(t, out, tt.notWant)
		})
	}
}
