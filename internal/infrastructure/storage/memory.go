package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"snappin/pkg/errors"
)

const memoryScheme = "mem://"

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryObjectStore keeps objects in process memory. It backs the memory
// store mode and tests.
type MemoryObjectStore struct {
	bucket  string
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryObjectStore(bucket string) *MemoryObjectStore {
	if bucket == "" {
		bucket = "local"
	}
	return &MemoryObjectStore{
		bucket:  bucket,
		objects: make(map[string]memoryObject),
	}
}

func (m *MemoryObjectStore) url(objectPath string) string {
	return memoryScheme + m.bucket + "/" + objectPath
}

func (m *MemoryObjectStore) Upload(ctx context.Context, r io.Reader, objectPath, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[objectPath] = memoryObject{data: data, contentType: contentType}
	m.mu.Unlock()
	return m.url(objectPath), nil
}

func (m *MemoryObjectStore) Delete(ctx context.Context, fileURL string) error {
	prefix := memoryScheme + m.bucket + "/"
	if !strings.HasPrefix(fileURL, prefix) {
		return errors.Validation("Storage URL does not belong to this bucket")
	}
	objectPath := strings.TrimPrefix(fileURL, prefix)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[objectPath]; !ok {
		return errors.NotFound("Media", nil)
	}
	delete(m.objects, objectPath)
	return nil
}

func (m *MemoryObjectStore) SignedUploadURL(ctx context.Context, objectPath, contentType string, expires time.Duration) (string, error) {
	return fmt.Sprintf("%s?expires=%d", m.url(objectPath), time.Now().Add(expires).Unix()), nil
}

// Open returns the stored bytes of objectPath.
func (m *MemoryObjectStore) Open(objectPath string) (io.Reader, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[objectPath]
	if !ok {
		return nil, "", false
	}
	return bytes.NewReader(obj.data), obj.contentType, true
}

func (m *MemoryObjectStore) Close() error {
	return nil
}
