package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// MockProcessingLogStore is a mock implementation of ProcessingLogStore
type MockProcessingLogStore struct {
	mu      sync.RWMutex
	entries map[string][]*domain.ProcessingLogEntry // by document slug

	AppendErr error
}

// NewMockProcessingLogStore creates a new MockProcessingLogStore
func NewMockProcessingLogStore() *MockProcessingLogStore {
	return &MockProcessingLogStore{
		entries: make(map[string][]*domain.ProcessingLogEntry),
	}
}

func (m *MockProcessingLogStore) Append(ctx context.Context, entry *domain.ProcessingLogEntry) error {
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries[entry.DocumentSlug] = append(m.entries[entry.DocumentSlug], &cp)
	return nil
}

func (m *MockProcessingLogStore) ListBySlug(ctx context.Context, slug string) ([]*domain.ProcessingLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.ProcessingLogEntry, len(m.entries[slug]))
	copy(out, m.entries[slug])
	return out, nil
}

// EntriesFor returns entries matching stage and level (test helper)
func (m *MockProcessingLogStore) EntriesFor(slug string, stage domain.ProcessingStage, level domain.ProcessingLevel) []*domain.ProcessingLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.ProcessingLogEntry
	for _, e := range m.entries[slug] {
		if e.Stage == stage && e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
