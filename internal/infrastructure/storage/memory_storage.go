package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"

	operationalapp "github.com/estudiomd/backoffice/internal/application/operational"
)

// MemoryDocumentStorage keeps documents in process memory. It backs local
// development when no object storage is configured, and tests.
type MemoryDocumentStorage struct {
	mu      sync.RWMutex
	objects map[string]storedObject
	baseURL string
}

type storedObject struct {
	data        []byte
	contentType string
}

// NewMemoryDocumentStorage creates an empty store whose download links start
// with baseURL
func NewMemoryDocumentStorage(baseURL string) *MemoryDocumentStorage {
	if baseURL == "" {
		baseURL = "memory://documents"
	}
	return &MemoryDocumentStorage{objects: make(map[string]storedObject), baseURL: baseURL}
}

func (m *MemoryDocumentStorage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if key == "" {
		return errEmptyKey
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = storedObject{data: buf.Bytes(), contentType: contentType}
	return nil
}

func (m *MemoryDocumentStorage) DownloadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}
	return m.baseURL + "/" + url.PathEscape(key), nil
}

func (m *MemoryDocumentStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Object returns the stored bytes and content type of key
func (m *MemoryDocumentStorage) Object(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o.data, o.contentType, ok
}

var _ operationalapp.DocumentStorage = (*MemoryDocumentStorage)(nil)
