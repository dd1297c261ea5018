// Package model defines data structure.
package model

import (
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Message is a single chat message as accepted by the document store.
// Author fields are snapshots taken at send time and are never re-resolved.
type Message struct {
	ID            string     `json:"id"`
	Body          string     `json:"body"`
	AuthorID      uuid.UUID  `json:"author_id"`
	AuthorName    string     `json:"author_name"`
	AuthorAvatar  string     `json:"author_avatar,omitempty"`
	AuthorEmail   string     `json:"author_email,omitempty"`
	CreatedAt     *time.Time `json:"created_at"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

// Resolved reports whether the store has assigned the creation timestamp.
func (m Message) Resolved() bool {
	return m.CreatedAt != nil
}

// Initial returns the avatar fallback letter for a display name.
func Initial(name string) string {
	for _, r := range name {
		return string(unicode.ToUpper(r))
	}
	return "?"
}
