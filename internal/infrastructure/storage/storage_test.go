package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snappin/pkg/errors"
)

func TestCloudStorageObjectName(t *testing.T) {
	c := &CloudStorageClient{bucketName: "snappin-media"}

	u := c.publicURL("chats/u1_u2/media/my photo.jpg")
	assert.Equal(t, "https://storage.googleapis.com/snappin-media/chats/u1_u2/media/my%20photo.jpg", u)

	name, err := c.objectName(u)
	require.NoError(t, err)
	assert.Equal(t, "chats/u1_u2/media/my photo.jpg", name)

	_, err = c.objectName("https://storage.googleapis.com/other-bucket/x.jpg")
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = c.objectName("https://example.com/x.jpg")
	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestMemoryObjectStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryObjectStore("test")

	u, err := m.Upload(ctx, strings.NewReader("png-bytes"), "groups/g1/media/image_1.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "mem://test/groups/g1/media/image_1.png", u)

	r, contentType, ok := m.Open("groups/g1/media/image_1.png")
	require.True(t, ok)
	data, _ := io.ReadAll(r)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", contentType)

	require.NoError(t, m.Delete(ctx, u))
	err = m.Delete(ctx, u)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}
