package router

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/adapter/api/handler"
	"snappin/internal/adapter/api/middleware"
	"snappin/internal/infrastructure/ratelimit"
)

// SetupChatRouter sets up the one-to-one chat routes and their messages.
func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	chatHandler := handler.GetChatHandler()

	chats := protected(e, "/chats", authMiddleware, limiter)
	chats.POST("", chatHandler.CreateChat, middleware.RateLimit(limiter, ratelimit.ActionCreateChat))
	chats.GET("", chatHandler.GetUserChats)
	chats.GET("/:id", chatHandler.GetChatByID)

	setupMessageRoutes(chats, limiter)
}

// setupMessageRoutes mounts the message log under a chat or group group.
func setupMessageRoutes(g *echo.Group, limiter *ratelimit.RateLimiter) {
	messageHandler := handler.GetMessageHandler()

	g.GET("/:id/messages", messageHandler.GetMessages)
	g.POST("/:id/messages", messageHandler.SendMessage, middleware.RateLimit(limiter, ratelimit.ActionSendMessage))
	g.PATCH("/:id/messages/:msgId", messageHandler.EditMessage)
	g.DELETE("/:id/messages/:msgId", messageHandler.DeleteMessage)
	g.PUT("/:id/messages/:msgId/read", messageHandler.MarkMessageRead)
	g.PUT("/:id/read", messageHandler.MarkAllRead)
}
