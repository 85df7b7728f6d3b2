package router

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/adapter/api/handler"
	"snappin/internal/adapter/api/middleware"
	"snappin/internal/infrastructure/ratelimit"
)

func SetupStatusRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	statusHandler := handler.GetStatusHandler()

	statuses := protected(e, "/statuses", authMiddleware, limiter)
	statuses.GET("", statusHandler.GetStatuses)
	statuses.POST("", statusHandler.PostStatus)
	statuses.POST("/:id/view", statusHandler.ViewStatus)
	statuses.DELETE("/:id", statusHandler.DeleteStatus)
}
