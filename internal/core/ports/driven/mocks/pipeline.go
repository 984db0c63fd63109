package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// MockTextExtractor is a mock implementation of TextExtractor.
// It treats the input bytes as plain text and splits pages on form feeds.
type MockTextExtractor struct {
	ExtractErr error
}

// NewMockTextExtractor creates a new MockTextExtractor
func NewMockTextExtractor() *MockTextExtractor {
	return &MockTextExtractor{}
}

func (m *MockTextExtractor) Extract(data []byte) ([]domain.Page, error) {
	if m.ExtractErr != nil {
		return nil, m.ExtractErr
	}
	if len(data) == 0 {
		return nil, domain.ErrInvalidInput
	}
	parts := strings.Split(string(data), "\f")
	pages := make([]domain.Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, domain.Page{Number: i + 1, Text: part})
	}
	return pages, nil
}

// MockChunkSplitter is a mock implementation of ChunkSplitter.
// It splits on double newlines.
type MockChunkSplitter struct{}

// NewMockChunkSplitter creates a new MockChunkSplitter
func NewMockChunkSplitter() *MockChunkSplitter {
	return &MockChunkSplitter{}
}

func (m *MockChunkSplitter) Split(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// MockFileStore is an in-memory mock implementation of FileStore
type MockFileStore struct {
	mu    sync.RWMutex
	files map[string][]byte

	UploadErr   error
	DownloadErr error
}

// NewMockFileStore creates a new MockFileStore
func NewMockFileStore() *MockFileStore {
	return &MockFileStore{files: make(map[string][]byte)}
}

func (m *MockFileStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if m.UploadErr != nil {
		return m.UploadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.files[path] = cp
	return nil
}

func (m *MockFileStore) Download(ctx context.Context, path string) ([]byte, error) {
	if m.DownloadErr != nil {
		return nil, m.DownloadErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *MockFileStore) Remove(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *MockFileStore) CreateSignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return "mock://" + path, nil
}
