package repository

import (
	"context"

	"snappin/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// EnsureOnline creates the profile on first sight, otherwise merges the
	// non-empty profile fields. Either way the user ends up online. It
	// reports whether the document was created.
	EnsureOnline(ctx context.Context, user *entity.User) (bool, error)
	SetPresence(ctx context.Context, id, status string) error
	// List pages through the directory ordered by name, starting after the
	// cursor returned by the previous page.
	List(ctx context.Context, limit int, cursor string) ([]*entity.User, string, error)
	ListenAll(ctx context.Context, onChange func([]*entity.User), onError func(error)) Unsubscribe
}
