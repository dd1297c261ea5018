package chat

import (
	"html"
	"strings"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"

	"github.com/johndosdos/huddle/internal/model"
)

// avatarPolicy keeps an avatar <img> and its src only when the src is an
// absolute http(s) URL.
var avatarPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.RequireParseableURLs(true)
	p.AllowURLSchemes("https", "http")
	p.AllowAttrs("src").OnElements("img")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("img")
	return p
}()

// avatarImage returns the markup for an avatar picture, or "" when rawURL is
// empty or does not survive avatarPolicy.
func avatarImage(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	img := avatarPolicy.Sanitize(`<img class="avatar" alt="" src="` + html.EscapeString(rawURL) + `">`)
	if !strings.Contains(img, " src=") {
		return ""
	}
	return img
}

func cardURL(p model.Profile) string {
	return "/profile/" + p.UserID.String() + "/card"
}

func timestamp(e *model.Entry) string {
	if e.State == model.Pending {
		return "sending…"
	}
	if e.Message.CreatedAt == nil {
		return ""
	}
	return e.Message.CreatedAt.Local().Format("15:04")
}

func bubbleClass(e *model.Entry, own bool) string {
	class := "bubble receiver"
	if own {
		class = "bubble sender"
	}
	if e.State == model.Pending {
		class += " pending"
	}
	return class
}

// continuesRun reports whether entries[i] has the same author as the entry
// before it.
func continuesRun(entries []*model.Entry, i int) bool {
	return i > 0 && entries[i-1].Message.AuthorID == entries[i].Message.AuthorID
}

// SenderBubble renders one of the viewer's own messages with the viewer's
// current avatar. Consecutive messages of the same author omit the header.
func SenderBubble(e *model.Entry, viewer model.Session, sameAuthor bool) templ.Component {
	return bubble(e, viewer.Profile(), "Me", true, sameAuthor)
}

// ReceiverBubble renders another author's message with the name and avatar
// it was sent with.
func ReceiverBubble(e *model.Entry, sameAuthor bool) templ.Component {
	p := e.Message.AuthorProfile()
	return bubble(e, p, p.DisplayName, false, sameAuthor)
}
