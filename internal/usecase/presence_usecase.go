package usecase

import (
	"context"
	"strings"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

// Identity is what the identity provider tells us about a signed-in user.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Anonymous   bool   `json:"anonymous"`
}

// PresenceUseCase keeps the online flag and lastSeen of users in step with
// their identity lifecycle. There is no heartbeat: a client that vanishes
// without signing out stays online.
type PresenceUseCase struct {
	userRepo repository.UserRepository
}

func NewPresenceUseCase(userRepo repository.UserRepository) *PresenceUseCase {
	return &PresenceUseCase{
		userRepo: userRepo,
	}
}

// OnIdentityEstablished creates the user profile on first sight, refreshes
// it otherwise, and marks the user online.
func (uc *PresenceUseCase) OnIdentityEstablished(ctx context.Context, identity Identity) (*entity.User, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return nil, errors.Validation("User id is required")
	}

	created, err := uc.userRepo.EnsureOnline(ctx, &entity.User{
		ID:     identity.UserID,
		Name:   identity.DisplayName,
		Email:  identity.Email,
		Avatar: identity.AvatarURL,
	})
	if err != nil {
		logger.Error("OnIdentityEstablished Error: Failed to mark %s online: %v", identity.UserID, err)
		return nil, err
	}
	if created {
		logger.Info("Created profile for user %s", identity.UserID)
	}

	return uc.userRepo.GetByID(ctx, identity.UserID)
}

// OnIdentityCleared marks the user offline. It is best effort: the client
// is going away, so failures are logged and dropped.
func (uc *PresenceUseCase) OnIdentityCleared(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if err := uc.userRepo.SetPresence(ctx, userID, entity.UserStatusOffline); err != nil {
		logger.Warn("OnIdentityCleared: failed to mark %s offline: %v", userID, err)
	}
}
