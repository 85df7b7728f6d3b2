package handler

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"snappin/internal/adapter/api/middleware"
	"snappin/internal/domain/entity"
	"snappin/internal/usecase"
	"snappin/pkg/errors"
)

var (
	authHandler    *AuthHandler
	userHandler    *UserHandler
	chatHandler    *ChatHandler
	groupHandler   *GroupHandler
	messageHandler *MessageHandler
	statusHandler  *StatusHandler
	mediaHandler   *MediaHandler
)

type UseCases struct {
	Auth    *usecase.AuthUseCase
	User    *usecase.UserUseCase
	Chat    *usecase.ChatUseCase
	Group   *usecase.GroupUseCase
	Message *usecase.MessageUseCase
	Status  *usecase.StatusUseCase
	Media   *usecase.MediaUseCase
}

func Setup(uc UseCases) {
	access := &accessChecker{chats: uc.Chat, groups: uc.Group}

	authHandler = NewAuthHandler(uc.Auth)
	userHandler = NewUserHandler(uc.User)
	chatHandler = NewChatHandler(uc.Chat)
	groupHandler = NewGroupHandler(uc.Group)
	messageHandler = NewMessageHandler(uc.Message, uc.User, access)
	statusHandler = NewStatusHandler(uc.Status, uc.User)
	mediaHandler = NewMediaHandler(uc.Media, access)
}

func GetAuthHandler() *AuthHandler {
	return authHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetGroupHandler() *GroupHandler {
	return groupHandler
}

func GetMessageHandler() *MessageHandler {
	return messageHandler
}

func GetStatusHandler() *StatusHandler {
	return statusHandler
}

func GetMediaHandler() *MediaHandler {
	return mediaHandler
}

func currentUserID(c echo.Context) string {
	uid, _ := c.Get(middleware.ContextUserID).(string)
	return uid
}

func currentIdentity(c echo.Context) *usecase.Identity {
	identity, _ := c.Get(middleware.ContextIdentity).(*usecase.Identity)
	return identity
}

// accessChecker resolves a chat or group and makes sure the acting user
// belongs to it.
type accessChecker struct {
	chats  *usecase.ChatUseCase
	groups *usecase.GroupUseCase
}

func (a *accessChecker) check(ctx context.Context, userID string, parent entity.Parent) error {
	if parent.ID == "" {
		return errors.Validation("Chat or group id is required")
	}
	if parent.IsGroup {
		_, err := a.groups.GetGroup(ctx, userID, parent.ID)
		return err
	}
	_, err := a.chats.GetConversation(ctx, userID, parent.ID)
	return err
}

// parentFromRoute reads the message log owner from /v1/chats/:id/... or
// /v1/groups/:id/... routes.
func parentFromRoute(c echo.Context) entity.Parent {
	if strings.HasPrefix(c.Path(), "/v1/groups/") {
		return entity.GroupParent(c.Param("id"))
	}
	return entity.ChatParent(c.Param("id"))
}
