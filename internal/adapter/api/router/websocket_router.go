package router

import (
	"github.com/labstack/echo/v4"

	"snappin/internal/adapter/api/handler"
)

// SetupWebSocketRouter mounts /v1/ws. The handler authenticates the
// handshake itself from ?token=.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/v1/ws", wsHandler.HandleWebSocket)
}
