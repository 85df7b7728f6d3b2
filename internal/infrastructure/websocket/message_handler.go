package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/internal/usecase"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

// Client frames
const (
	MessageTypePing        = "ping"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypeMarkRead    = "mark_read"
)

// Server frames
const (
	MessageTypePong       = "pong"
	MessageTypeSubscribed = "subscribed"
	MessageTypeSnapshot   = "snapshot"
	MessageTypeError      = "error"
	MessageTypeAck        = "ack"
)

const (
	TopicMessages      = "messages"
	TopicConversations = "conversations"
	TopicGroups        = "groups"
	TopicUsers         = "users"
	TopicStatuses      = "statuses"
)

// ClientMessage is a frame sent by the client.
type ClientMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Topic     string `json:"topic,omitempty"`
	ChatID    string `json:"chat_id,omitempty"`
	IsGroup   bool   `json:"is_group,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// ServerMessage is a frame sent to the client.
type ServerMessage struct {
	Type      string      `json:"type"`
	ID        string      `json:"id,omitempty"`
	Topic     string      `json:"topic,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *FrameError `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type FrameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler turns client frames into subscriptions and read marks.
type Handler struct {
	sync     *usecase.SyncUseCase
	messages *usecase.MessageUseCase
	chats    *usecase.ChatUseCase
	groups   *usecase.GroupUseCase
	ctx      context.Context
}

// NewHandler builds a Handler whose subscriptions live until ctx ends or
// their connection closes.
func NewHandler(ctx context.Context, sync *usecase.SyncUseCase, messages *usecase.MessageUseCase, chats *usecase.ChatUseCase, groups *usecase.GroupUseCase) *Handler {
	return &Handler{
		sync:     sync,
		messages: messages,
		chats:    chats,
		groups:   groups,
		ctx:      ctx,
	}
}

func (c *Client) write(msg ServerMessage) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	frame, err := json.Marshal(msg)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s frame: %v", msg.Type, err)
		return
	}
	c.Send(frame)
}

func (c *Client) writeError(id string, err error) {
	frameErr := &FrameError{Code: errors.CodeInternal, Message: "An unexpected error occurred"}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		frameErr.Code, frameErr.Message = appErr.Code, appErr.Message
	}
	c.write(ServerMessage{Type: MessageTypeError, ID: id, Error: frameErr})
}

// HandleClientMessage processes one incoming frame.
func (h *Handler) HandleClientMessage(client *Client, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Warn("WebSocket: Failed to unmarshal message from client %s: %v", client.UserID, err)
		client.writeError("", errors.Validation("Invalid message format"))
		return
	}

	switch msg.Type {
	case MessageTypePing:
		client.write(ServerMessage{Type: MessageTypePong, ID: msg.ID})
	case MessageTypeSubscribe:
		h.handleSubscribe(client, msg)
	case MessageTypeUnsubscribe:
		if !client.Session.Subscriptions().Remove(msg.ID) {
			client.writeError(msg.ID, errors.NotFound("Subscription", nil))
			return
		}
		client.write(ServerMessage{Type: MessageTypeAck, ID: msg.ID})
	case MessageTypeMarkRead:
		h.handleMarkRead(client, msg)
	default:
		client.writeError(msg.ID, errors.Validation("Unknown message type: "+msg.Type))
	}
}

func (h *Handler) parent(client *Client, msg ClientMessage) (entity.Parent, error) {
	if msg.ChatID == "" {
		return entity.Parent{}, errors.Validation("chat_id is required")
	}
	if msg.IsGroup {
		if _, err := h.groups.GetGroup(h.ctx, client.UserID, msg.ChatID); err != nil {
			return entity.Parent{}, err
		}
		return entity.GroupParent(msg.ChatID), nil
	}
	if _, err := h.chats.GetConversation(h.ctx, client.UserID, msg.ChatID); err != nil {
		return entity.Parent{}, err
	}
	return entity.ChatParent(msg.ChatID), nil
}

func (h *Handler) handleSubscribe(client *Client, msg ClientMessage) {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}

	emit := func(data interface{}) {
		client.write(ServerMessage{Type: MessageTypeSnapshot, ID: id, Topic: msg.Topic, Data: data})
	}
	onError := func(err error) {
		client.writeError(id, err)
	}

	var start func() repository.Unsubscribe
	switch msg.Topic {
	case TopicMessages:
		parent, err := h.parent(client, msg)
		if err != nil {
			client.writeError(id, err)
			return
		}
		start = func() repository.Unsubscribe {
			return h.sync.SubscribeMessages(h.ctx, parent, func(v []*entity.Message) { emit(v) }, onError)
		}
	case TopicConversations:
		start = func() repository.Unsubscribe {
			return h.sync.SubscribeUserConversations(h.ctx, client.UserID, func(v []*usecase.ConversationView) { emit(v) }, onError)
		}
	case TopicGroups:
		start = func() repository.Unsubscribe {
			return h.sync.SubscribeUserGroups(h.ctx, client.UserID, func(v []*usecase.GroupView) { emit(v) }, onError)
		}
	case TopicUsers:
		start = func() repository.Unsubscribe {
			return h.sync.SubscribeAllUsers(h.ctx, client.UserID, func(v []*entity.User) { emit(v) }, onError)
		}
	case TopicStatuses:
		start = func() repository.Unsubscribe {
			return h.sync.SubscribeStatuses(h.ctx, client.UserID, func(v []*usecase.StatusView) { emit(v) }, onError)
		}
	default:
		client.writeError(id, errors.Validation("Unknown topic: "+msg.Topic))
		return
	}

	// acknowledged before the first snapshot can be queued
	client.write(ServerMessage{Type: MessageTypeSubscribed, ID: id, Topic: msg.Topic})
	client.Session.Subscriptions().Add(id, start())
}

// handleMarkRead marks one message, or the whole log when message_id is
// empty, as read by the connected user.
func (h *Handler) handleMarkRead(client *Client, msg ClientMessage) {
	parent, err := h.parent(client, msg)
	if err != nil {
		client.writeError(msg.ID, err)
		return
	}

	if msg.MessageID == "" {
		err = h.messages.MarkAllRead(h.ctx, parent, client.UserID)
	} else {
		err = h.messages.MarkRead(h.ctx, parent, msg.MessageID, client.UserID)
	}
	if err != nil {
		client.writeError(msg.ID, err)
		return
	}
	client.write(ServerMessage{Type: MessageTypeAck, ID: msg.ID})
}
