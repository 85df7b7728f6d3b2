package entity

import "time"

const ConversationTypePersonal = "personal"

// Conversation is a two-party chat keyed by its sorted participant pair.
type Conversation struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Participants    []string       `json:"participants"`
	LastMessage     *string        `json:"last_message"`
	LastMessageTime *time.Time     `json:"last_message_time"`
	CreatedAt       time.Time      `json:"created_at"`
	UnreadCount     map[string]int `json:"unread_count"` // Map of userID to unread count
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

func (c *Conversation) UnreadFor(userID string) int {
	return c.UnreadCount[userID]
}
