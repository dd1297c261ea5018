package model

import "github.com/google/uuid"

// Session is the authenticated principal as held by the identity provider.
type Session struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Email       string    `json:"email,omitempty"`
}

// Profile is the subject shown in the profile overlay. It is built either
// from a Session or from the author snapshot of a Message.
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Email       string    `json:"email,omitempty"`
}

// Profile returns the session's own profile.
func (s Session) Profile() Profile {
	return Profile{
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
		AvatarURL:   s.AvatarURL,
		Email:       s.Email,
	}
}

// AuthorProfile returns the profile snapshot stamped on a message.
func (m Message) AuthorProfile() Profile {
	return Profile{
		UserID:      m.AuthorID,
		DisplayName: m.AuthorName,
		AvatarURL:   m.AuthorAvatar,
		Email:       m.AuthorEmail,
	}
}
