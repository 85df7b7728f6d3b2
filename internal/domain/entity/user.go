package entity

import (
	"time"
)

const (
	UserStatusOnline  = "online"
	UserStatusOffline = "offline"
)

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`

	// Presence
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"last_seen,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsOnline() bool {
	return u.Status == UserStatusOnline
}
