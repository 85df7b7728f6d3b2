package router

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/adapter/api/handler"
	"snappin/internal/adapter/api/middleware"
	"snappin/internal/infrastructure/ratelimit"
)

func SetupUserRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	userHandler := handler.GetUserHandler()

	users := protected(e, "/users", authMiddleware, limiter)
	users.GET("", userHandler.ListUsers)
	users.GET("/me", userHandler.GetProfile)
	users.GET("/:id", userHandler.GetUserByID)
}
