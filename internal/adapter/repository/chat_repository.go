package repository

import (
	"context"
	stderrors "errors"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/internal/infrastructure/docstore"
	"snappin/pkg/errors"
)

const chatsCollection = "chats"

type chatRepository struct {
	store docstore.Store
}

func NewChatRepository(store docstore.Store) repository.ChatRepository {
	return &chatRepository{
		store: store,
	}
}

func (r *chatRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.store.Get(ctx, entity.ChatParent(id).Path())
	if err != nil {
		if stderrors.Is(err, docstore.ErrNotFound) {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, storeError("get chat", err)
	}
	return decodeConversation(doc)
}

func (r *chatRepository) Create(ctx context.Context, chat *entity.Conversation) error {
	err := r.store.Create(ctx, entity.ChatParent(chat.ID).Path(), encodeNewConversation(chat))
	if stderrors.Is(err, docstore.ErrAlreadyExists) {
		return errors.Conflict("Chat already exists")
	}
	return storeError("create chat", err)
}

func (r *chatRepository) byParticipant(userID string) docstore.Query {
	return docstore.Collection(chatsCollection).
		Where("participants", docstore.OpArrayContains, userID).
		OrderBy("lastMessageTime", docstore.Desc)
}

func (r *chatRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	docs, err := r.store.Query(ctx, r.byParticipant(userID))
	if err != nil {
		return nil, storeError("fetch chats", err)
	}
	return decodeList(docs, decodeConversation), nil
}

func (r *chatRepository) ListenByUserID(ctx context.Context, userID string, onChange func([]*entity.Conversation), onError func(error)) repository.Unsubscribe {
	return listen(ctx, r.store, r.byParticipant(userID), decodeConversation, onChange, onError)
}
