package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snappin/internal/domain/entity"
	"snappin/pkg/errors"
)

func TestDeriveConversationID(t *testing.T) {
	assert.Equal(t, "u1_u2", DeriveConversationID("u1", "u2"))
	assert.Equal(t, "u1_u2", DeriveConversationID("u2", "u1"))
	assert.Equal(t, "alice_bob", DeriveConversationID("bob", "alice"))
}

func TestEnsureConversationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	id, err := env.chats.EnsureConversation(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1_u2", id)

	env.send(t, entity.ChatParent(id), "u1", "hi")

	again, err := env.chats.EnsureConversation(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	chat := env.chat(t, id)
	assert.ElementsMatch(t, []string{"u1", "u2"}, chat.Participants)
	assert.Equal(t, 1, chat.UnreadCount["u2"], "re-ensuring must not reset counters")
	require.NotNil(t, chat.LastMessage)
	assert.Equal(t, "hi", *chat.LastMessage)
}

func TestEnsureConversationConcurrentFirstContact(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				ids[i], errs[i] = env.chats.EnsureConversation(ctx, "u1", "u2")
			} else {
				ids[i], errs[i] = env.chats.EnsureConversation(ctx, "u2", "u1")
			}
		}()
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, "u1_u2", ids[i])
	}

	chats, err := env.chats.ListForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestEnsureConversationValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.chats.EnsureConversation(ctx, "u1", "u1")
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = env.chats.EnsureConversation(ctx, "", "u1")
	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestStartConversationRequiresRecipient(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.signIn(t, "u1", "Ann")

	_, err := env.chats.StartConversation(ctx, "u1", "ghost")
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	env.signIn(t, "u2", "Bob")
	view, err := env.chats.StartConversation(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "u1_u2", view.ID)
	assert.Equal(t, "Bob", view.OtherUser.Name)
	assert.Equal(t, 0, view.Unread)
}

func TestGetConversationChecksParticipant(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	id, err := env.chats.EnsureConversation(ctx, "u1", "u2")
	require.NoError(t, err)

	_, err = env.chats.GetConversation(ctx, "u3", id)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	chat, err := env.chats.GetConversation(ctx, "u2", id)
	require.NoError(t, err)
	assert.Equal(t, "u1", chat.OtherParticipant("u2"))
}
