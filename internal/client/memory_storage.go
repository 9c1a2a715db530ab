package client

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ejanapp/api/internal/model"
)

// MemoryStorage implements StorageClient in process. It backs deployments
// without object storage credentials and doubles as the test store.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
		baseURL: "https://storage.local",
	}
}

func (m *MemoryStorage) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", &model.StorageError{Op: "upload", Key: key, Err: err}
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return m.GetPublicURL(key), nil
}

func (m *MemoryStorage) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, &model.StorageError{Op: "download", Key: key, Err: fmt.Errorf("object not found")}
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStorage) GetSignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return m.GetPublicURL(key), nil
}

func (m *MemoryStorage) GetPublicURL(key string) string {
	return fmt.Sprintf("%s/%s", m.baseURL, key)
}

func (m *MemoryStorage) IsConfigured() bool {
	return false
}

// ObjectCount reports how many objects are stored. Used by tests.
func (m *MemoryStorage) ObjectCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
