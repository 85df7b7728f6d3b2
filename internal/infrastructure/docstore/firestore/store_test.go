package firestore

import (
	"context"
	"os"
	"testing"
	"time"

	fs "cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snappin/internal/infrastructure/docstore"
)

// These tests talk to the Firestore emulator and are skipped without it.
func newEmulatorStore(t *testing.T) (*Store, string) {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	s, err := NewFromProject(context.Background(), "snappin-test")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, "t" + uuid.NewString()[:8]
}

func TestRelativePath(t *testing.T) {
	assert.Equal(t, "chats/a_b/messages/m1", relativePath("projects/p/databases/(default)/documents/chats/a_b/messages/m1"))
	assert.Equal(t, "users/u1", relativePath("users/u1"))
}

func TestEncodeValueTranslatesSentinels(t *testing.T) {
	out := encodeMap(map[string]any{
		"nested": map[string]any{"n": 1, "at": docstore.ServerTimestamp},
		"list":   []string{"a"},
	})
	nested := out["nested"].(map[string]interface{})
	assert.Equal(t, int64(1), nested["n"])
	assert.Equal(t, fs.ServerTimestamp, nested["at"])
	assert.Equal(t, []interface{}{"a"}, out["list"])
}

func TestEmulatorCreateUpdateAndIncrement(t *testing.T) {
	s, prefix := newEmulatorStore(t)
	ctx := context.Background()
	path := prefix + "_chats/a_b"

	require.NoError(t, s.Create(ctx, path, map[string]any{"unreadCount": map[string]any{"a": 0, "b": 0}}))
	assert.ErrorIs(t, s.Create(ctx, path, map[string]any{}), docstore.ErrAlreadyExists)

	require.NoError(t, s.Update(ctx, path, []docstore.Update{
		{Path: docstore.Field("unreadCount", "b"), Value: docstore.Increment(2)},
		docstore.Set("lastMessageTime", docstore.ServerTimestamp),
	}))

	doc, err := s.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc.Data["unreadCount"].(map[string]any)["b"])
	assert.IsType(t, time.Time{}, doc.Data["lastMessageTime"])

	_, err = s.Get(ctx, prefix+"_chats/missing")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestEmulatorListen(t *testing.T) {
	s, prefix := newEmulatorStore(t)
	ctx := context.Background()
	col := prefix + "_messages"

	got := make(chan int, 8)
	unsubscribe := s.Listen(ctx, docstore.Collection(col).OrderBy("createdAt", docstore.Desc),
		func(docs []*docstore.Document) { got <- len(docs) },
		func(err error) { t.Errorf("listen: %v", err) })
	defer unsubscribe()

	select {
	case n := <-got:
		assert.Equal(t, 0, n)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot")
	}

	_, err := s.Add(ctx, col, map[string]any{"text": "hi", "createdAt": docstore.ServerTimestamp})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		select {
		case n := <-got:
			return n == 1
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond)

	unsubscribe()
	unsubscribe()
}
