package handler

import (
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"snappin/internal/adapter/api/middleware"
	ws "snappin/internal/infrastructure/websocket"
	"snappin/internal/usecase"
	"snappin/pkg/logger"
	"snappin/pkg/response"
)

type WebSocketHandler struct {
	wsManager      *ws.Manager
	frames         *ws.Handler
	authMiddleware *middleware.AuthMiddleware
	authUseCase    *usecase.AuthUseCase
	upgrader       gorillaws.Upgrader
}

// NewWebSocketHandler accepts connections from allowedOrigins; an empty
// list or "*" accepts any origin.
func NewWebSocketHandler(wsManager *ws.Manager, frames *ws.Handler, authMiddleware *middleware.AuthMiddleware, authUseCase *usecase.AuthUseCase, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:      wsManager,
		frames:         frames,
		authMiddleware: authMiddleware,
		authUseCase:    authUseCase,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket authenticates with ?token= (browsers cannot set headers
// on a WebSocket handshake) and binds the connection to a new session.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
	}

	identity, err := h.authMiddleware.Verify(c, token)
	if err != nil {
		return response.Error(c, err)
	}

	session := h.authUseCase.NewSession()
	if _, err := session.Establish(c.Request().Context(), *identity); err != nil {
		return response.Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket: upgrade failed for %s: %v", identity.UserID, err)
		session.Clear(c.Request().Context())
		return nil
	}

	client := ws.NewClient(conn, session)
	if !h.wsManager.Add(client) {
		logger.Warn("WebSocket: shutting down, refusing %s", identity.UserID)
		session.Clear(c.Request().Context())
		conn.Close()
		return nil
	}

	go client.WritePump()
	go client.ReadPump(h.wsManager, h.frames)

	return nil
}
