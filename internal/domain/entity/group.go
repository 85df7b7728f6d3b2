package entity

import "time"

type Group struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Avatar          string         `json:"avatar,omitempty"`
	Description     string         `json:"description,omitempty"`
	Members         []string       `json:"members"`
	Admins          []string       `json:"admins"`
	CreatedBy       string         `json:"created_by"`
	LastMessage     *string        `json:"last_message"`
	LastMessageTime *time.Time     `json:"last_message_time"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	UnreadCount     map[string]int `json:"unread_count"`
}

func (g *Group) HasMember(userID string) bool {
	return contains(g.Members, userID)
}

func (g *Group) IsAdmin(userID string) bool {
	return contains(g.Admins, userID)
}

func (g *Group) UnreadFor(userID string) int {
	return g.UnreadCount[userID]
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

// GroupUpdate carries the fields a group edit may change. Nil fields are
// left as they are.
type GroupUpdate struct {
	Name        *string `json:"name,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (u GroupUpdate) IsEmpty() bool {
	return u.Name == nil && u.Avatar == nil && u.Description == nil
}
