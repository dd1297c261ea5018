// Package chat renders the conversation view: the page, the live message
// list, the composer and the profile overlay card.
package chat

// Element ids targeted by htmx swaps.
const (
	MessagesID  = "messages"
	OverlayID   = "overlay"
	SendErrorID = "send-error"
	NoticeID    = "notice"
	ViewerName  = "viewer-name"
)
