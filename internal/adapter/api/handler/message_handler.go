package handler

import (
	stderrors "errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"snappin/internal/domain/entity"
	"snappin/internal/usecase"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
	"snappin/pkg/response"
)

const defaultMessagePage = 50

// MessageHandler serves the message log of both chats and groups; the
// route prefix decides which.
type MessageHandler struct {
	messageUseCase *usecase.MessageUseCase
	userUseCase    *usecase.UserUseCase
	access         *accessChecker
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase, userUseCase *usecase.UserUseCase, access *accessChecker) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
		userUseCase:    userUseCase,
		access:         access,
	}
}

type attachmentRequest struct {
	URL  string `json:"url" validate:"required,url"`
	Name string `json:"name" validate:"required"`
	Size int64  `json:"size" validate:"gte=0"`
	Type string `json:"type"`
}

type replyToRequest struct {
	ID       string `json:"id" validate:"required"`
	Text     string `json:"text"`
	UserID   string `json:"user_id" validate:"required"`
	UserName string `json:"user_name"`
}

type sendMessageRequest struct {
	ID       string             `json:"id" validate:"omitempty,max=128"`
	Text     string             `json:"text" validate:"max=4096"`
	Image    string             `json:"image" validate:"omitempty,url"`
	Video    string             `json:"video" validate:"omitempty,url"`
	Audio    string             `json:"audio" validate:"omitempty,url"`
	Document *attachmentRequest `json:"document" validate:"omitempty"`
	ReplyTo  *replyToRequest    `json:"reply_to" validate:"omitempty"`
}

type editMessageRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

// sender builds the author block from the stored profile, falling back to
// the token claims when the profile cannot be read.
func (h *MessageHandler) sender(c echo.Context) entity.MessageUser {
	uid := currentUserID(c)
	if user, err := h.userUseCase.GetProfile(c.Request().Context(), uid); err == nil {
		return entity.MessageUser{ID: user.ID, Name: user.Name, Avatar: user.Avatar}
	}
	author := entity.MessageUser{ID: uid}
	if identity := currentIdentity(c); identity != nil {
		author.Name = identity.DisplayName
		author.Avatar = identity.AvatarURL
	}
	return author
}

func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	parent := parentFromRoute(c)
	if err := h.access.check(ctx, currentUserID(c), parent); err != nil {
		return response.Error(c, err)
	}

	input := usecase.SendMessageInput{
		ID:    req.ID,
		Text:  req.Text,
		User:  h.sender(c),
		Image: req.Image,
		Video: req.Video,
		Audio: req.Audio,
	}
	if req.Document != nil {
		input.Document = &entity.Attachment{
			URL:  req.Document.URL,
			Name: req.Document.Name,
			Size: req.Document.Size,
			Type: req.Document.Type,
		}
	}
	if req.ReplyTo != nil {
		input.ReplyTo = &entity.ReplyTo{
			ID:   req.ReplyTo.ID,
			Text: req.ReplyTo.Text,
			User: entity.ReplyUser{ID: req.ReplyTo.UserID, Name: req.ReplyTo.UserName},
		}
	}

	message, err := h.messageUseCase.Append(ctx, parent, input)
	if err != nil {
		var appErr *errors.AppError
		if message != nil && stderrors.As(err, &appErr) && appErr.Code == errors.CodePreviewStale {
			return response.Accepted(c, message, appErr)
		}
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *MessageHandler) GetMessages(c echo.Context) error {
	ctx := c.Request().Context()
	parent := parentFromRoute(c)
	if err := h.access.check(ctx, currentUserID(c), parent); err != nil {
		return response.Error(c, err)
	}

	limit := defaultMessagePage
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	messages, err := h.messageUseCase.ListMessages(ctx, parent, limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, messages)
}

func (h *MessageHandler) EditMessage(c echo.Context) error {
	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	userID := currentUserID(c)
	parent := parentFromRoute(c)
	if err := h.access.check(ctx, userID, parent); err != nil {
		return response.Error(c, err)
	}

	if err := h.messageUseCase.Edit(ctx, parent, c.Param("msgId"), userID, req.Text); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Message edited"})
}

func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)
	parent := parentFromRoute(c)
	if err := h.access.check(ctx, userID, parent); err != nil {
		return response.Error(c, err)
	}

	if err := h.messageUseCase.SoftDelete(ctx, parent, c.Param("msgId"), userID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Message deleted"})
}

func (h *MessageHandler) MarkMessageRead(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)
	parent := parentFromRoute(c)
	if err := h.access.check(ctx, userID, parent); err != nil {
		return response.Error(c, err)
	}

	if err := h.messageUseCase.MarkRead(ctx, parent, c.Param("msgId"), userID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Message marked as read"})
}

// MarkAllRead clears the caller's unread counter. Individual marks that
// failed are logged; the counter is reset regardless.
func (h *MessageHandler) MarkAllRead(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)
	parent := parentFromRoute(c)
	if err := h.access.check(ctx, userID, parent); err != nil {
		return response.Error(c, err)
	}

	if err := h.messageUseCase.MarkAllRead(ctx, parent, userID); err != nil {
		logger.Warn("MarkAllRead: partial failure in %s for %s: %v", parent.Path(), userID, err)
		return response.Error(c, errors.Transient("Some messages could not be marked as read", err))
	}
	return response.Success(c, map[string]string{"message": "Chat marked as read"})
}
