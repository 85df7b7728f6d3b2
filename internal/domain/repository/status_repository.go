package repository

import (
	"context"
	"time"

	"snappin/internal/domain/entity"
)

type StatusRepository interface {
	Create(ctx context.Context, status *entity.StatusUpdate) (string, error)
	GetByID(ctx context.Context, id string) (*entity.StatusUpdate, error)
	AddViewer(ctx context.Context, id, userID string) error
	Delete(ctx context.Context, id string) error
	ListSince(ctx context.Context, since time.Time) ([]*entity.StatusUpdate, error)
	ListenSince(ctx context.Context, since time.Time, onChange func([]*entity.StatusUpdate), onError func(error)) Unsubscribe
}
