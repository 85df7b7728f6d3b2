package router

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/adapter/api/handler"
	"snappin/internal/adapter/api/middleware"
	"snappin/internal/infrastructure/ratelimit"
)

func SetupGroupRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	groupHandler := handler.GetGroupHandler()

	groups := protected(e, "/groups", authMiddleware, limiter)
	groups.POST("", groupHandler.CreateGroup, middleware.RateLimit(limiter, ratelimit.ActionCreateChat))
	groups.GET("", groupHandler.GetUserGroups)
	groups.GET("/:id", groupHandler.GetGroupByID)
	groups.PATCH("/:id", groupHandler.UpdateGroup)       // admins only
	groups.POST("/:id/members", groupHandler.AddMember) // admins only

	setupMessageRoutes(groups, limiter)
}
