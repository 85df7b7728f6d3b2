package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMemoryBackendDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("STATUS_TTL_HOURS", "6")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test, ,http://b.test")
	t.Setenv("MARK_ALL_READ_CONCURRENCY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.UsesMemoryStore())
	assert.Equal(t, 6*time.Hour, cfg.StatusTTL)
	assert.Equal(t, 8, cfg.MarkAllReadConcurrency)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestLoadFirestoreNeedsProject(t *testing.T) {
	t.Setenv("STORE_BACKEND", "firestore")
	t.Setenv("FIREBASE_PROJECT_ID", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("FIREBASE_PROJECT_ID", "demo")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.UsesMemoryStore())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	_, err := Load()
	assert.Error(t, err)
}
