package usecase

import (
	"context"
	"sort"
	"strings"

	"snappin/internal/domain/entity"
	"snappin/internal/domain/repository"
	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

const conversationIDSeparator = "_"

type ChatUseCase struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
}

func NewChatUseCase(chatRepo repository.ChatRepository, userRepo repository.UserRepository) *ChatUseCase {
	return &ChatUseCase{
		chatRepo: chatRepo,
		userRepo: userRepo,
	}
}

// DeriveConversationID returns the id shared by the two users' personal
// chat, regardless of argument order.
func DeriveConversationID(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return strings.Join(ids, conversationIDSeparator)
}

// EnsureConversation creates the personal chat between two users unless it
// already exists, and returns its id. A concurrent first contact from the
// other side resolves to the same document.
func (uc *ChatUseCase) EnsureConversation(ctx context.Context, userA, userB string) (string, error) {
	userA, userB = strings.TrimSpace(userA), strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return "", errors.Validation("Both participants are required")
	}
	if userA == userB {
		return "", errors.Validation("You cannot create a chat with yourself")
	}

	id := DeriveConversationID(userA, userB)

	_, err := uc.chatRepo.GetByID(ctx, id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		logger.Error("EnsureConversation Error: Failed to read chat %s: %v", id, err)
		return "", err
	}

	err = uc.chatRepo.Create(ctx, &entity.Conversation{
		ID:           id,
		Type:         entity.ConversationTypePersonal,
		Participants: []string{userA, userB},
	})
	if err != nil && !errors.Is(err, errors.CodeConflict) {
		logger.Error("EnsureConversation Error: Failed to create chat %s: %v", id, err)
		return "", err
	}
	return id, nil
}

// StartConversation is the edge entry point for opening a chat with another
// user: it checks the recipient exists before creating anything.
func (uc *ChatUseCase) StartConversation(ctx context.Context, userID, recipientID string) (*ConversationView, error) {
	recipient, err := uc.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		logger.Error("StartConversation Error: Recipient %s not found: %v", recipientID, err)
		return nil, err
	}

	id, err := uc.EnsureConversation(ctx, userID, recipientID)
	if err != nil {
		return nil, err
	}

	chat, err := uc.chatRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ConversationView{
		Conversation: chat,
		OtherUser:    recipient,
		Unread:       chat.UnreadFor(userID),
	}, nil
}

func (uc *ChatUseCase) ListForUser(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	chats, err := uc.chatRepo.ListByUserID(ctx, userID)
	if err != nil {
		logger.Error("ListForUser Error: Failed to fetch chats for user %s: %v", userID, err)
		return nil, err
	}
	return chats, nil
}

// GetConversation returns the chat if userID takes part in it.
func (uc *ChatUseCase) GetConversation(ctx context.Context, userID, id string) (*entity.Conversation, error) {
	chat, err := uc.chatRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant in this chat", nil)
	}
	return chat, nil
}
