package entity

import "time"

const (
	StatusMediaText  = "text"
	StatusMediaImage = "image"
	StatusMediaVideo = "video"
)

// StatusUpdate is a short-lived broadcast owned by its author.
type StatusUpdate struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	UserAvatar      string    `json:"user_avatar,omitempty"`
	Text            string    `json:"text,omitempty"`
	MediaURL        string    `json:"media_url,omitempty"`
	MediaType       string    `json:"media_type"`
	BackgroundColor string    `json:"background_color"`
	CreatedAt       time.Time `json:"created_at"`
	ViewedBy        []string  `json:"viewed_by"`
}

func (s *StatusUpdate) ViewedByUser(userID string) bool {
	return contains(s.ViewedBy, userID)
}
