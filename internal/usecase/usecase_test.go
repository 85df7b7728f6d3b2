package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"snappin/internal/adapter/repository"
	"snappin/internal/domain/entity"
	"snappin/internal/infrastructure/docstore/memstore"
)

type testEnv struct {
	store    *memstore.Store
	chats    *ChatUseCase
	groups   *GroupUseCase
	messages *MessageUseCase
	sync     *SyncUseCase
	presence *PresenceUseCase
	statuses *StatusUseCase
	users    *UserUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memstore.New()
	t.Cleanup(func() { store.Close() })

	userRepo := repository.NewUserRepository(store)
	chatRepo := repository.NewChatRepository(store)
	groupRepo := repository.NewGroupRepository(store)
	messageRepo := repository.NewMessageRepository(store)
	threadRepo := repository.NewThreadRepository(store)
	statusRepo := repository.NewStatusRepository(store)

	return &testEnv{
		store:    store,
		chats:    NewChatUseCase(chatRepo, userRepo),
		groups:   NewGroupUseCase(groupRepo),
		messages: NewMessageUseCase(messageRepo, threadRepo, 4),
		sync:     NewSyncUseCase(messageRepo, chatRepo, groupRepo, userRepo, statusRepo, 24*time.Hour),
		presence: NewPresenceUseCase(userRepo),
		statuses: NewStatusUseCase(statusRepo, 24*time.Hour),
		users:    NewUserUseCase(userRepo),
	}
}

func (e *testEnv) signIn(t *testing.T, id, name string) *entity.User {
	t.Helper()
	user, err := e.presence.OnIdentityEstablished(context.Background(), Identity{UserID: id, DisplayName: name})
	require.NoError(t, err)
	return user
}

func (e *testEnv) send(t *testing.T, parent entity.Parent, from, text string) *entity.Message {
	t.Helper()
	msg, err := e.messages.Append(context.Background(), parent, SendMessageInput{
		Text: text,
		User: entity.MessageUser{ID: from, Name: from},
	})
	require.NoError(t, err)
	return msg
}

func (e *testEnv) chat(t *testing.T, id string) *entity.Conversation {
	t.Helper()
	chat, err := repository.NewChatRepository(e.store).GetByID(context.Background(), id)
	require.NoError(t, err)
	return chat
}

func (e *testEnv) group(t *testing.T, id string) *entity.Group {
	t.Helper()
	group, err := repository.NewGroupRepository(e.store).GetByID(context.Background(), id)
	require.NoError(t, err)
	return group
}

// recorder collects listener emissions.
type recorder[T any] struct {
	ch chan T
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{ch: make(chan T, 64)}
}

func (r *recorder[T]) record(v T) {
	r.ch <- v
}

// next waits for an emission matching ok and returns it.
func (r *recorder[T]) next(t *testing.T, ok func(T) bool) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-r.ch:
			if ok(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for emission")
		}
	}
}

func (r *recorder[T]) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case v := <-r.ch:
		t.Fatalf("unexpected emission: %v", v)
	case <-time.After(d):
	}
}
