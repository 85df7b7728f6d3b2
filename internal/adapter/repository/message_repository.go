package repository

import (
	"context"
	stderrors "errors"
	"time"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/internal/infrastructure/docstore"
	"snappin/pkg/errors"
)

type messageRepository struct {
	store docstore.Store
}

func NewMessageRepository(store docstore.Store) repository.MessageRepository {
	return &messageRepository{
		store: store,
	}
}

func (r *messageRepository) Create(ctx context.Context, parent entity.Parent, message *entity.Message) error {
	docID, err := r.store.Add(ctx, parent.MessagesPath(), encodeNewMessage(message))
	if err != nil {
		return storeError("create message", err)
	}
	message.DocID = docID
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, parent entity.Parent, docID string) (*entity.Message, error) {
	doc, err := r.store.Get(ctx, parent.MessagePath(docID))
	if err != nil {
		if stderrors.Is(err, docstore.ErrNotFound) {
			return nil, errors.NotFound("Message", err)
		}
		return nil, storeError("get message", err)
	}
	return decodeMessage(doc)
}

func newestFirst(parent entity.Parent) docstore.Query {
	return docstore.Collection(parent.MessagesPath()).OrderBy("createdAt", docstore.Desc)
}

func (r *messageRepository) List(ctx context.Context, parent entity.Parent, limit int) ([]*entity.Message, error) {
	q := newestFirst(parent)
	if limit > 0 {
		q = q.Limit(limit)
	}
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, storeError("fetch messages", err)
	}
	return decodeList(docs, decodeMessage), nil
}

func (r *messageRepository) ListNotFrom(ctx context.Context, parent entity.Parent, userID string) ([]*entity.Message, error) {
	q := docstore.Collection(parent.MessagesPath()).Where("user.id", docstore.OpNotEqual, userID)
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, storeError("fetch messages", err)
	}
	return decodeList(docs, decodeMessage), nil
}

func (r *messageRepository) Listen(ctx context.Context, parent entity.Parent, onChange func([]*entity.Message), onError func(error)) repository.Unsubscribe {
	return listen(ctx, r.store, newestFirst(parent), decodeMessage, onChange, onError)
}

// authored loads the message inside tx and checks that actingUserID wrote it.
func authored(tx docstore.Tx, path, actingUserID string) (*entity.Message, error) {
	doc, err := tx.Get(path)
	if err != nil {
		if stderrors.Is(err, docstore.ErrNotFound) {
			return nil, errors.NotFound("Message", err)
		}
		return nil, err
	}
	message, err := decodeMessage(doc)
	if err != nil {
		return nil, err
	}
	if message.User.ID != actingUserID {
		return nil, errors.Forbidden("Only the author can change this message", nil)
	}
	return message, nil
}

func (r *messageRepository) SoftDelete(ctx context.Context, parent entity.Parent, docID, actingUserID string) error {
	path := parent.MessagePath(docID)
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		message, err := authored(tx, path, actingUserID)
		if err != nil {
			return err
		}
		if message.Deleted {
			return nil
		}
		return tx.Update(path, []docstore.Update{
			docstore.Set("deleted", true),
			docstore.Set("deletedAt", docstore.ServerTimestamp),
			docstore.Set("text", entity.DeletedMessageText),
		})
	})
	return storeError("delete message", err)
}

func (r *messageRepository) Edit(ctx context.Context, parent entity.Parent, docID, actingUserID, text string) error {
	path := parent.MessagePath(docID)
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		message, err := authored(tx, path, actingUserID)
		if err != nil {
			return err
		}
		if message.Deleted {
			return errors.Conflict("Deleted messages cannot be edited")
		}
		return tx.Update(path, []docstore.Update{
			docstore.Set("text", text),
			docstore.Set("edited", true),
			docstore.Set("editedAt", docstore.ServerTimestamp),
		})
	})
	return storeError("edit message", err)
}

func (r *messageRepository) MarkRead(ctx context.Context, parent entity.Parent, docID, userID string, at time.Time) (bool, error) {
	messagePath := parent.MessagePath(docID)
	parentPath := parent.Path()

	var changed bool
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		changed = false

		doc, err := tx.Get(messagePath)
		if err != nil {
			if stderrors.Is(err, docstore.ErrNotFound) {
				return errors.NotFound("Message", err)
			}
			return err
		}
		parentDoc, err := tx.Get(parentPath)
		if err != nil {
			if stderrors.Is(err, docstore.ErrNotFound) {
				return errors.NotFound(parentKind(parent), err)
			}
			return err
		}

		message, err := decodeMessage(doc)
		if err != nil {
			return err
		}
		if message.IsReadBy(userID) {
			return nil
		}

		unread := getCounts(parentDoc.Data, "unreadCount")[userID] - 1
		if unread < 0 {
			unread = 0
		}

		receipt := encodeReceipt(entity.ReadReceipt{UserID: userID, Timestamp: at})
		if err := tx.Update(messagePath, []docstore.Update{docstore.Set("readBy", docstore.ArrayUnion(receipt))}); err != nil {
			return err
		}
		if err := tx.Update(parentPath, []docstore.Update{{Path: docstore.Field("unreadCount", userID), Value: unread}}); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, storeError("mark message as read", err)
	}
	return changed, nil
}

func parentKind(parent entity.Parent) string {
	if parent.IsGroup {
		return "Group"
	}
	return "Chat"
}

type threadRepository struct {
	store docstore.Store
}

func NewThreadRepository(store docstore.Store) repository.ThreadRepository {
	return &threadRepository{
		store: store,
	}
}

func (r *threadRepository) Participants(ctx context.Context, parent entity.Parent) ([]string, error) {
	doc, err := r.store.Get(ctx, parent.Path())
	if err != nil {
		if stderrors.Is(err, docstore.ErrNotFound) {
			return nil, errors.NotFound(parentKind(parent), err)
		}
		return nil, storeError("read "+parent.Collection(), err)
	}

	if parent.IsGroup {
		group, err := decodeGroup(doc)
		if err != nil {
			return nil, err
		}
		return group.Members, nil
	}
	chat, err := decodeConversation(doc)
	if err != nil {
		return nil, err
	}
	return chat.Participants, nil
}

func (r *threadRepository) RecordSend(ctx context.Context, parent entity.Parent, preview string, recipients []string) error {
	updates := []docstore.Update{
		docstore.Set("lastMessage", preview),
		docstore.Set("lastMessageTime", docstore.ServerTimestamp),
	}
	for _, uid := range recipients {
		updates = append(updates, docstore.Update{Path: docstore.Field("unreadCount", uid), Value: docstore.Increment(1)})
	}
	return storeError("update "+parent.Collection()+" preview", r.store.Update(ctx, parent.Path(), updates))
}

func (r *threadRepository) ResetUnread(ctx context.Context, parent entity.Parent, userID string) error {
	err := r.store.Update(ctx, parent.Path(), []docstore.Update{{Path: docstore.Field("unreadCount", userID), Value: 0}})
	if stderrors.Is(err, docstore.ErrNotFound) {
		return errors.NotFound(parentKind(parent), err)
	}
	return storeError("reset unread count", err)
}
