package router

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/adapter/api/handler"
	"snappin/internal/adapter/api/middleware"
	"snappin/internal/infrastructure/ratelimit"
)

func SetupMediaRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	mediaHandler := handler.GetMediaHandler()

	media := protected(e, "/media", authMiddleware, limiter)
	media.POST("", mediaHandler.UploadMedia)
	media.POST("/upload-url", mediaHandler.CreateUploadURL)
	media.DELETE("", mediaHandler.DeleteMedia)
}
