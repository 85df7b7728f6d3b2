package router

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/adapter/api/handler"
)

func SetupHealthRouter(e *echo.Echo, healthHandler *handler.HealthHandler) {
	e.GET("/health", healthHandler.CheckHealth)
	e.GET("/v1/health", healthHandler.CheckHealth)
}
