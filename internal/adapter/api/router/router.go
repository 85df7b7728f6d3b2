package router

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/adapter/api/handler"
	"snappin/internal/adapter/api/middleware"
	"snappin/internal/infrastructure/ratelimit"
)

// Setup mounts every /v1 route. handler.Setup must have run first.
func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter, healthHandler *handler.HealthHandler, wsHandler *handler.WebSocketHandler) {
	SetupHealthRouter(e, healthHandler)
	SetupAuthRouter(e, authMiddleware, limiter)
	SetupUserRouter(e, authMiddleware, limiter)
	SetupChatRouter(e, authMiddleware, limiter)
	SetupGroupRouter(e, authMiddleware, limiter)
	SetupStatusRouter(e, authMiddleware, limiter)
	SetupMediaRouter(e, authMiddleware, limiter)
	SetupWebSocketRouter(e, wsHandler)
}

// protected returns a /v1 group that requires a bearer token and spends a
// general request token per call.
func protected(e *echo.Echo, prefix string, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) *echo.Group {
	g := e.Group("/v1" + prefix)
	g.Use(authMiddleware.Authenticate)
	g.Use(middleware.RateLimit(limiter, ratelimit.ActionRequest))
	return g
}
