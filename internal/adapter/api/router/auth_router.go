package router

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/adapter/api/handler"
	"snappin/internal/adapter/api/middleware"
	"snappin/internal/infrastructure/ratelimit"
)

func SetupAuthRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	authHandler := handler.GetAuthHandler()

	// Public routes, limited per client IP
	public := e.Group("/v1/auth")
	public.Use(middleware.RateLimit(limiter, ratelimit.ActionRequest))
	public.POST("/register", authHandler.Register)
	public.POST("/login", authHandler.Login)
	public.POST("/anonymous", authHandler.Anonymous)

	// Protected routes
	e.POST("/v1/auth/logout", authHandler.Logout, authMiddleware.Authenticate)
}
