package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snappin/internal/domain/entity"
	"snappin/internal/infrastructure/docstore"
	"snappin/internal/infrastructure/docstore/memstore"
	"snappin/pkg/errors"
)

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	_, err := decodeConversation(&docstore.Document{ID: "a_b", Path: "chats/a_b", Data: map[string]any{
		"type":         "personal",
		"participants": []any{"a"},
	}})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = decodeMessage(&docstore.Document{ID: "m", Path: "chats/a_b/messages/m", Data: map[string]any{
		"id":     "c1",
		"text":   "hi",
		"user":   map[string]any{"id": "a"},
		"readBy": []any{},
	}})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = decodeUser(&docstore.Document{ID: "u", Path: "users/u", Data: map[string]any{"name": "Ann", "status": "away"}})
	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestChatRepositoryCreateConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewChatRepository(memstore.New())

	chat := &entity.Conversation{ID: "u1_u2", Participants: []string{"u1", "u2"}}
	require.NoError(t, repo.Create(ctx, chat))
	err := repo.Create(ctx, chat)
	assert.True(t, errors.Is(err, errors.CodeConflict))

	got, err := repo.GetByID(ctx, "u1_u2")
	require.NoError(t, err)
	assert.Nil(t, got.LastMessage)
	assert.Nil(t, got.LastMessageTime)
	assert.Equal(t, map[string]int{"u1": 0, "u2": 0}, got.UnreadCount)

	_, err = repo.GetByID(ctx, "nope")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestGroupRepositoryAddMemberKeepsExistingCount(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	groups := NewGroupRepository(store)
	threads := NewThreadRepository(store)

	id, err := groups.Create(ctx, &entity.Group{Name: "g", Members: []string{"u1", "u2"}, Admins: []string{"u1"}, CreatedBy: "u1"})
	require.NoError(t, err)

	parent := entity.GroupParent(id)
	require.NoError(t, threads.RecordSend(ctx, parent, "hi", []string{"u2"}))

	require.NoError(t, groups.AddMember(ctx, id, "u2"))
	require.NoError(t, groups.AddMember(ctx, id, "u3"))

	group, err := groups.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2", "u3"}, group.Members)
	assert.Equal(t, map[string]int{"u1": 0, "u2": 1, "u3": 0}, group.UnreadCount)

	err = groups.AddMember(ctx, "missing", "u1")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestMessageRepositoryMarkReadFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	chats := NewChatRepository(store)
	messages := NewMessageRepository(store)

	require.NoError(t, chats.Create(ctx, &entity.Conversation{ID: "u1_u2", Participants: []string{"u1", "u2"}}))
	parent := entity.ChatParent("u1_u2")

	msg := &entity.Message{ID: "c1", Text: "hi", User: entity.MessageUser{ID: "u1", Name: "Ann"},
		ReadBy: []entity.ReadReceipt{{UserID: "u1", Timestamp: time.Now()}}}
	require.NoError(t, messages.Create(ctx, parent, msg))
	require.NotEmpty(t, msg.DocID)

	changed, err := messages.MarkRead(ctx, parent, msg.DocID, "u2", time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = messages.MarkRead(ctx, parent, msg.DocID, "u2", time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	chat, err := chats.GetByID(ctx, "u1_u2")
	require.NoError(t, err)
	assert.Equal(t, 0, chat.UnreadCount["u2"])

	stored, err := messages.GetByID(ctx, parent, msg.DocID)
	require.NoError(t, err)
	require.Len(t, stored.ReadBy, 2)
	assert.Equal(t, "u2", stored.ReadBy[1].UserID)
}

func TestMessageRepositoryAuthorChecks(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	messages := NewMessageRepository(store)
	parent := entity.ChatParent("u1_u2")

	msg := &entity.Message{ID: "c1", Text: "hi", User: entity.MessageUser{ID: "u1", Name: "Ann"}}
	require.NoError(t, messages.Create(ctx, parent, msg))

	err := messages.SoftDelete(ctx, parent, msg.DocID, "u2")
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	require.NoError(t, messages.Edit(ctx, parent, msg.DocID, "u1", "hello"))
	require.NoError(t, messages.SoftDelete(ctx, parent, msg.DocID, "u1"))

	stored, err := messages.GetByID(ctx, parent, msg.DocID)
	require.NoError(t, err)
	assert.True(t, stored.Deleted)
	assert.True(t, stored.Edited)
	assert.Equal(t, entity.DeletedMessageText, stored.Text)
	assert.NotNil(t, stored.DeletedAt)

	err = messages.Edit(ctx, parent, msg.DocID, "u1", "again")
	assert.True(t, errors.Is(err, errors.CodeConflict))

	err = messages.SoftDelete(ctx, parent, "missing", "u1")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestUserRepositoryEnsureOnlineAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(memstore.New())

	created, err := repo.EnsureOnline(ctx, &entity.User{ID: "u1", Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.True(t, created)

	first, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, repo.SetPresence(ctx, "u1", entity.UserStatusOffline))
	created, err = repo.EnsureOnline(ctx, &entity.User{ID: "u1"})
	require.NoError(t, err)
	assert.False(t, created)

	again, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", again.Name)
	assert.Equal(t, "ann@example.com", again.Email)
	assert.Equal(t, entity.UserStatusOnline, again.Status)
	assert.Equal(t, first.CreatedAt, again.CreatedAt)

	for _, u := range []*entity.User{{ID: "u2", Name: "Bob"}, {ID: "u3", Name: "Cid"}} {
		_, err := repo.EnsureOnline(ctx, u)
		require.NoError(t, err)
	}

	page, cursor, err := repo.List(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "Ann", page[0].Name)
	require.NotEmpty(t, cursor)

	page, _, err = repo.List(ctx, 2, cursor)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Cid", page[0].Name)

	_, _, err = repo.List(ctx, 2, "!!")
	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestStatusRepositoryViewers(t *testing.T) {
	ctx := context.Background()
	repo := NewStatusRepository(memstore.New())

	id, err := repo.Create(ctx, &entity.StatusUpdate{UserID: "u1", UserName: "Ann", MediaType: entity.StatusMediaText, Text: "hey"})
	require.NoError(t, err)

	require.NoError(t, repo.AddViewer(ctx, id, "u2"))
	require.NoError(t, repo.AddViewer(ctx, id, "u2"))

	status, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, status.ViewedBy)

	list, err := repo.ListSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.GetByID(ctx, id)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}
