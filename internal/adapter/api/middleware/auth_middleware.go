package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"snappin/internal/usecase"
	"snappin/pkg/errors"
	"snappin/pkg/response"
)

const (
	ContextUserID   = "uid"
	ContextIdentity = "identity"
)

type AuthMiddleware struct {
	verifier usecase.TokenVerifier
}

func NewAuthMiddleware(verifier usecase.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// Authenticate requires a bearer ID token and stores the verified user id
// under "uid" and the full identity under "identity".
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		identity, err := m.verifier.VerifyIDToken(c.Request().Context(), token)
		if err != nil {
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextIdentity, identity)
		return next(c)
	}
}

// Verify checks a token passed outside the Authorization header, such as
// the WebSocket query parameter.
func (m *AuthMiddleware) Verify(c echo.Context, token string) (*usecase.Identity, error) {
	if token == "" {
		return nil, errors.Unauthorized("Token is required", nil)
	}
	identity, err := m.verifier.VerifyIDToken(c.Request().Context(), token)
	if err != nil {
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}
	return identity, nil
}
