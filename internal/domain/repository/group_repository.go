package repository

import (
	"context"

	"snappin/internal/domain/entity"
)

type GroupRepository interface {
	Create(ctx context.Context, group *entity.Group) (string, error)
	GetByID(ctx context.Context, id string) (*entity.Group, error)
	AddMember(ctx context.Context, groupID, userID string) error
	Update(ctx context.Context, groupID string, update entity.GroupUpdate) error
	ListByUserID(ctx context.Context, userID string) ([]*entity.Group, error)
	ListenByUserID(ctx context.Context, userID string, onChange func([]*entity.Group), onError func(error)) Unsubscribe
}
