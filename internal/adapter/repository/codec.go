package repository

import (
	"fmt"
	"time"

	"snappin/internal/domain/entity"
	"snappin/internal/infrastructure/docstore"
	"snappin/pkg/errors"
)

// Stored documents are decoded field by field. A document missing one of
// its required fields is rejected with a VALIDATION_ERROR instead of
// surfacing half-filled entities.

func malformed(kind string, doc *docstore.Document, field string) error {
	return errors.Validation(fmt.Sprintf("malformed %s document %s: bad %q", kind, doc.Path, field))
}

func getStr(data map[string]any, key string) (string, bool) {
	v, ok := data[key].(string)
	return v, ok
}

func optStr(data map[string]any, key string) string {
	v, _ := data[key].(string)
	return v
}

func optStrPtr(data map[string]any, key string) *string {
	if v, ok := data[key].(string); ok {
		return &v
	}
	return nil
}

func optTime(data map[string]any, key string) time.Time {
	v, _ := data[key].(time.Time)
	return v
}

func optTimePtr(data map[string]any, key string) *time.Time {
	if v, ok := data[key].(time.Time); ok && !v.IsZero() {
		return &v
	}
	return nil
}

func optBool(data map[string]any, key string) bool {
	v, _ := data[key].(bool)
	return v
}

func getStrings(data map[string]any, key string) ([]string, bool) {
	raw, ok := data[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func getCounts(data map[string]any, key string) map[string]int {
	out := make(map[string]int)
	raw, _ := data[key].(map[string]any)
	for k, v := range raw {
		switch n := v.(type) {
		case int64:
			out[k] = int(n)
		case float64:
			out[k] = int(n)
		}
	}
	return out
}

func stringsToAny(list []string) []any {
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// ---- users ----

func decodeUser(doc *docstore.Document) (*entity.User, error) {
	data := doc.Data
	name, ok := getStr(data, "name")
	if !ok {
		return nil, malformed("user", doc, "name")
	}
	status, _ := getStr(data, "status")
	if status != entity.UserStatusOnline && status != entity.UserStatusOffline {
		return nil, malformed("user", doc, "status")
	}

	return &entity.User{
		ID:        doc.ID,
		Name:      name,
		Email:     optStr(data, "email"),
		Avatar:    optStr(data, "avatar"),
		Status:    status,
		LastSeen:  optTimePtr(data, "lastSeen"),
		CreatedAt: optTime(data, "createdAt"),
		UpdatedAt: optTime(data, "updatedAt"),
	}, nil
}

// ---- conversations ----

func decodeConversation(doc *docstore.Document) (*entity.Conversation, error) {
	data := doc.Data
	if t, _ := getStr(data, "type"); t != entity.ConversationTypePersonal {
		return nil, malformed("chat", doc, "type")
	}
	participants, ok := getStrings(data, "participants")
	if !ok || len(participants) != 2 {
		return nil, malformed("chat", doc, "participants")
	}

	return &entity.Conversation{
		ID:              doc.ID,
		Type:            entity.ConversationTypePersonal,
		Participants:    participants,
		LastMessage:     optStrPtr(data, "lastMessage"),
		LastMessageTime: optTimePtr(data, "lastMessageTime"),
		CreatedAt:       optTime(data, "createdAt"),
		UnreadCount:     getCounts(data, "unreadCount"),
	}, nil
}

func encodeNewConversation(c *entity.Conversation) map[string]any {
	unread := make(map[string]any, len(c.Participants))
	for _, p := range c.Participants {
		unread[p] = int64(0)
	}
	return map[string]any{
		"id":              c.ID,
		"type":            entity.ConversationTypePersonal,
		"participants":    stringsToAny(c.Participants),
		"lastMessage":     nil,
		"lastMessageTime": nil,
		"createdAt":       docstore.ServerTimestamp,
		"unreadCount":     unread,
	}
}

// ---- groups ----

func decodeGroup(doc *docstore.Document) (*entity.Group, error) {
	data := doc.Data
	name, ok := getStr(data, "name")
	if !ok {
		return nil, malformed("group", doc, "name")
	}
	members, ok := getStrings(data, "members")
	if !ok {
		return nil, malformed("group", doc, "members")
	}
	admins, ok := getStrings(data, "admins")
	if !ok {
		return nil, malformed("group", doc, "admins")
	}
	createdBy, ok := getStr(data, "createdBy")
	if !ok {
		return nil, malformed("group", doc, "createdBy")
	}

	return &entity.Group{
		ID:              doc.ID,
		Name:            name,
		Avatar:          optStr(data, "avatar"),
		Description:     optStr(data, "description"),
		Members:         members,
		Admins:          admins,
		CreatedBy:       createdBy,
		LastMessage:     optStrPtr(data, "lastMessage"),
		LastMessageTime: optTimePtr(data, "lastMessageTime"),
		CreatedAt:       optTime(data, "createdAt"),
		UpdatedAt:       optTime(data, "updatedAt"),
		UnreadCount:     getCounts(data, "unreadCount"),
	}, nil
}

func encodeNewGroup(g *entity.Group) map[string]any {
	unread := make(map[string]any, len(g.Members))
	for _, m := range g.Members {
		unread[m] = int64(0)
	}
	return map[string]any{
		"name":            g.Name,
		"avatar":          g.Avatar,
		"description":     g.Description,
		"members":         stringsToAny(g.Members),
		"admins":          stringsToAny(g.Admins),
		"createdBy":       g.CreatedBy,
		"lastMessage":     nil,
		"lastMessageTime": nil,
		"createdAt":       docstore.ServerTimestamp,
		"updatedAt":       docstore.ServerTimestamp,
		"unreadCount":     unread,
	}
}

// ---- messages ----

func decodeMessage(doc *docstore.Document) (*entity.Message, error) {
	data := doc.Data
	id, ok := getStr(data, "id")
	if !ok {
		return nil, malformed("message", doc, "id")
	}
	text, ok := getStr(data, "text")
	if !ok {
		return nil, malformed("message", doc, "text")
	}
	user, ok := data["user"].(map[string]any)
	if !ok {
		return nil, malformed("message", doc, "user")
	}
	userID, okID := getStr(user, "id")
	userName, okName := getStr(user, "name")
	if !okID || !okName {
		return nil, malformed("message", doc, "user")
	}
	rawReadBy, ok := data["readBy"].([]any)
	if !ok {
		return nil, malformed("message", doc, "readBy")
	}

	m := &entity.Message{
		DocID:     doc.ID,
		ID:        id,
		Text:      text,
		CreatedAt: optTime(data, "createdAt"),
		User: entity.MessageUser{
			ID:     userID,
			Name:   userName,
			Avatar: optStr(user, "avatar"),
		},
		Image:     optStrPtr(data, "image"),
		Video:     optStrPtr(data, "video"),
		Audio:     optStrPtr(data, "audio"),
		ReadBy:    make([]entity.ReadReceipt, 0, len(rawReadBy)),
		Edited:    optBool(data, "edited"),
		EditedAt:  optTimePtr(data, "editedAt"),
		Deleted:   optBool(data, "deleted"),
		DeletedAt: optTimePtr(data, "deletedAt"),
	}

	if d, ok := data["document"].(map[string]any); ok {
		att := &entity.Attachment{
			URL:  optStr(d, "url"),
			Name: optStr(d, "name"),
			Type: optStr(d, "type"),
		}
		if size, ok := d["size"].(int64); ok {
			att.Size = size
		}
		m.Document = att
	}

	if r, ok := data["replyTo"].(map[string]any); ok {
		reply := &entity.ReplyTo{
			ID:   optStr(r, "id"),
			Text: optStr(r, "text"),
		}
		if u, ok := r["user"].(map[string]any); ok {
			reply.User = entity.ReplyUser{ID: optStr(u, "id"), Name: optStr(u, "name")}
		}
		m.ReplyTo = reply
	}

	for _, e := range rawReadBy {
		receipt, ok := e.(map[string]any)
		if !ok {
			return nil, malformed("message", doc, "readBy")
		}
		uid, ok := getStr(receipt, "userId")
		if !ok {
			return nil, malformed("message", doc, "readBy")
		}
		m.ReadBy = append(m.ReadBy, entity.ReadReceipt{UserID: uid, Timestamp: optTime(receipt, "timestamp")})
	}

	return m, nil
}

func encodeReceipt(r entity.ReadReceipt) map[string]any {
	return map[string]any{"userId": r.UserID, "timestamp": r.Timestamp.UTC()}
}

// encodeNewMessage stores absent media as explicit nulls.
func encodeNewMessage(m *entity.Message) map[string]any {
	user := map[string]any{"id": m.User.ID, "name": m.User.Name}
	if m.User.Avatar != "" {
		user["avatar"] = m.User.Avatar
	}

	readBy := make([]any, len(m.ReadBy))
	for i, r := range m.ReadBy {
		readBy[i] = encodeReceipt(r)
	}

	var document any
	if m.Document != nil {
		document = map[string]any{
			"url":  m.Document.URL,
			"name": m.Document.Name,
			"size": m.Document.Size,
			"type": m.Document.Type,
		}
	}

	var replyTo any
	if m.ReplyTo != nil {
		replyTo = map[string]any{
			"id":   m.ReplyTo.ID,
			"text": m.ReplyTo.Text,
			"user": map[string]any{"id": m.ReplyTo.User.ID, "name": m.ReplyTo.User.Name},
		}
	}

	return map[string]any{
		"id":        m.ID,
		"text":      m.Text,
		"createdAt": docstore.ServerTimestamp,
		"user":      user,
		"image":     nullable(m.Image),
		"video":     nullable(m.Video),
		"audio":     nullable(m.Audio),
		"document":  document,
		"replyTo":   replyTo,
		"readBy":    readBy,
		"edited":    false,
		"deleted":   false,
	}
}

// ---- statuses ----

func decodeStatus(doc *docstore.Document) (*entity.StatusUpdate, error) {
	data := doc.Data
	userID, ok := getStr(data, "userId")
	if !ok {
		return nil, malformed("status", doc, "userId")
	}
	mediaType, _ := getStr(data, "mediaType")
	switch mediaType {
	case entity.StatusMediaText, entity.StatusMediaImage, entity.StatusMediaVideo:
	default:
		return nil, malformed("status", doc, "mediaType")
	}
	viewedBy, ok := getStrings(data, "viewedBy")
	if !ok {
		viewedBy = []string{}
	}

	return &entity.StatusUpdate{
		ID:              doc.ID,
		UserID:          userID,
		UserName:        optStr(data, "userName"),
		UserAvatar:      optStr(data, "userAvatar"),
		Text:            optStr(data, "text"),
		MediaURL:        optStr(data, "mediaUrl"),
		MediaType:       mediaType,
		BackgroundColor: optStr(data, "backgroundColor"),
		CreatedAt:       optTime(data, "createdAt"),
		ViewedBy:        viewedBy,
	}, nil
}

func encodeNewStatus(s *entity.StatusUpdate) map[string]any {
	return map[string]any{
		"userId":          s.UserID,
		"userName":        s.UserName,
		"userAvatar":      s.UserAvatar,
		"text":            s.Text,
		"mediaUrl":        s.MediaURL,
		"mediaType":       s.MediaType,
		"backgroundColor": s.BackgroundColor,
		"createdAt":       docstore.ServerTimestamp,
		"viewedBy":        []any{},
	}
}
