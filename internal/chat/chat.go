// Package chat holds the conversation's write side: the send pipeline and the
// hub that tracks every open conversation view so that optimistic entries
// reach all of a sender's tabs.
package chat

import "errors"

var (
	ErrEmptyMessage    = errors.New("chat: message is empty")
	ErrMessageTooLong  = errors.New("chat: message is too long")
	ErrUnauthenticated = errors.New("chat: not signed in")
	ErrRateLimited     = errors.New("chat: sending too fast")
	ErrHubStopped      = errors.New("chat: hub stopped")
)

// MaxBodyLength is the longest accepted message, in runes.
const MaxBodyLength = 2000
