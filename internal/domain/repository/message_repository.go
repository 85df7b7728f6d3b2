package repository

import (
	"context"
	"time"

	"snappin/internal/domain/entity"
)

type MessageRepository interface {
	// Create appends the message under parent with a server-assigned
	// createdAt and fills in DocID.
	Create(ctx context.Context, parent entity.Parent, message *entity.Message) error
	GetByID(ctx context.Context, parent entity.Parent, docID string) (*entity.Message, error)
	List(ctx context.Context, parent entity.Parent, limit int) ([]*entity.Message, error)
	ListNotFrom(ctx context.Context, parent entity.Parent, userID string) ([]*entity.Message, error)
	Listen(ctx context.Context, parent entity.Parent, onChange func([]*entity.Message), onError func(error)) Unsubscribe

	// SoftDelete and Edit run the author check and the write in one
	// transaction. A non-author gets a FORBIDDEN error.
	SoftDelete(ctx context.Context, parent entity.Parent, docID, actingUserID string) error
	Edit(ctx context.Context, parent entity.Parent, docID, actingUserID, text string) error
	// MarkRead appends a receipt and decrements the reader's unread counter
	// on the parent, floored at zero. It reports false when the user had
	// already read the message.
	MarkRead(ctx context.Context, parent entity.Parent, docID, userID string, at time.Time) (bool, error)
}

// ThreadRepository owns the preview and unread fields shared by
// conversations and groups.
type ThreadRepository interface {
	Participants(ctx context.Context, parent entity.Parent) ([]string, error)
	// RecordSend sets the preview and bumps the unread counter of every
	// recipient in a single update.
	RecordSend(ctx context.Context, parent entity.Parent, preview string, recipients []string) error
	ResetUnread(ctx context.Context, parent entity.Parent, userID string) error
}
