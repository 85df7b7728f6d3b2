package repository

import (
	"context"

	"snappin/internal/domain/entity"
)

type ChatRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	// Create fails with a CONFLICT error when the conversation exists.
	Create(ctx context.Context, chat *entity.Conversation) error
	ListByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error)
	ListenByUserID(ctx context.Context, userID string, onChange func([]*entity.Conversation), onError func(error)) Unsubscribe
}
