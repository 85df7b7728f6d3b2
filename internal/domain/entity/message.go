package entity

import "time"

// DeletedMessageText replaces the text of a soft-deleted message.
const DeletedMessageText = "This message was deleted"

type MessageUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
	Type string `json:"type,omitempty"`
}

type ReplyUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ReplyTo struct {
	ID   string    `json:"id"`
	Text string    `json:"text"`
	User ReplyUser `json:"user"`
}

type ReadReceipt struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

type Message struct {
	// DocID is the store key; ID is generated by the sending client.
	DocID     string      `json:"doc_id"`
	ID        string      `json:"id"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"created_at"`
	User      MessageUser `json:"user"`

	Image    *string     `json:"image"`
	Video    *string     `json:"video"`
	Audio    *string     `json:"audio"`
	Document *Attachment `json:"document"`
	ReplyTo  *ReplyTo    `json:"reply_to,omitempty"`

	ReadBy    []ReadReceipt `json:"read_by"`
	Edited    bool          `json:"edited"`
	EditedAt  *time.Time    `json:"edited_at,omitempty"`
	Deleted   bool          `json:"deleted"`
	DeletedAt *time.Time    `json:"deleted_at,omitempty"`
}

func (m *Message) IsReadBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// Visible returns the message as it should be shown. Deleted messages lose
// their media and reply reference; everything else is returned unchanged.
func (m *Message) Visible() *Message {
	if !m.Deleted {
		return m
	}
	masked := *m
	masked.Image = nil
	masked.Video = nil
	masked.Audio = nil
	masked.Document = nil
	masked.ReplyTo = nil
	return &masked
}

// Parent addresses the conversation or group that owns a message log.
type Parent struct {
	ID      string `json:"id"`
	IsGroup bool   `json:"is_group"`
}

func ChatParent(id string) Parent {
	return Parent{ID: id}
}

func GroupParent(id string) Parent {
	return Parent{ID: id, IsGroup: true}
}

// Collection is the top-level collection the parent document lives in.
func (p Parent) Collection() string {
	if p.IsGroup {
		return "groups"
	}
	return "chats"
}

func (p Parent) Path() string {
	return p.Collection() + "/" + p.ID
}

func (p Parent) MessagesPath() string {
	return p.Path() + "/messages"
}

func (p Parent) MessagePath(docID string) string {
	return p.MessagesPath() + "/" + docID
}
