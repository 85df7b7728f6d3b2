package handler

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/usecase"
	"snappin/pkg/errors"
	"snappin/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createChatRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
}

// CreateChat opens (or reopens) the conversation with another user.
func (h *ChatHandler) CreateChat(c echo.Context) error {
	var req createChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := currentUserID(c)
	if req.RecipientID == userID {
		return response.Error(c, errors.Validation("Cannot start a chat with yourself"))
	}

	chat, err := h.chatUseCase.StartConversation(c.Request().Context(), userID, req.RecipientID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, chat)
}

func (h *ChatHandler) GetUserChats(c echo.Context) error {
	userID := currentUserID(c)

	chats, err := h.chatUseCase.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	views := make([]*usecase.ConversationView, len(chats))
	for i, chat := range chats {
		views[i] = &usecase.ConversationView{Conversation: chat, Unread: chat.UnreadFor(userID)}
	}
	return response.Success(c, views)
}

func (h *ChatHandler) GetChatByID(c echo.Context) error {
	chat, err := h.chatUseCase.GetConversation(c.Request().Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, chat)
}
