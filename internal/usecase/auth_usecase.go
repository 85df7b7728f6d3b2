package usecase

import (
	"context"
	"strings"

	"snappin/internal/domain/entity"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

// AuthUseCase serves the stateless HTTP edge: every call runs a short-lived
// Session so profile creation and presence follow the same rules as a
// long-lived WebSocket session.
type AuthUseCase struct {
	provider IdentityProvider
	presence *PresenceUseCase
	opts     []SessionOption
}

func NewAuthUseCase(provider IdentityProvider, presence *PresenceUseCase, opts ...SessionOption) *AuthUseCase {
	return &AuthUseCase{
		provider: provider,
		presence: presence,
		opts:     opts,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

type AuthResult struct {
	User         *entity.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresIn    int64        `json:"expires_in,omitempty"`
}

// NewSession starts a session sharing this use case's provider and presence
// tracker.
func (uc *AuthUseCase) NewSession() *Session {
	return NewSession(uc.provider, uc.presence, uc.opts...)
}

func result(creds *Credentials, user *entity.User) *AuthResult {
	return &AuthResult{
		User:         user,
		Token:        creds.IDToken,
		RefreshToken: creds.RefreshToken,
		ExpiresIn:    creds.ExpiresIn,
	}
}

func (uc *AuthUseCase) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		name = strings.Split(input.Email, "@")[0]
	}

	creds, user, err := uc.NewSession().SignUp(ctx, input.Email, input.Password, name)
	if err != nil {
		logger.Error("Register Error: %v", err)
		return nil, err
	}
	return result(creds, user), nil
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	creds, user, err := uc.NewSession().SignIn(ctx, email, password)
	if err != nil {
		logger.Error("Login Error: %v", err)
		return nil, err
	}
	return result(creds, user), nil
}

func (uc *AuthUseCase) Anonymous(ctx context.Context) (*AuthResult, error) {
	creds, user, err := uc.NewSession().SignInAnonymously(ctx)
	if err != nil {
		logger.Error("AnonymousLogin Error: %v", err)
		return nil, err
	}
	return result(creds, user), nil
}

// Logout marks the user offline and revokes their refresh tokens.
func (uc *AuthUseCase) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.Unauthorized("Not signed in", nil)
	}
	uc.presence.OnIdentityCleared(ctx, userID)
	if err := uc.provider.SignOut(ctx, userID); err != nil {
		logger.Error("Logout Error: %v", err)
		return errors.Internal("Failed to sign out", err)
	}
	return nil
}
