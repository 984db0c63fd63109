package mocks

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// MockChunkStore is a mock implementation of ChunkStore for testing
type MockChunkStore struct {
	mu     sync.RWMutex
	bySlug map[string][]*domain.Chunk

	// Injected errors
	SaveBatchErr error
	DeleteErr    error

	// ResidueAfterDelete leaves this many phantom chunks behind on delete,
	// simulating a failed chunk replacement
	ResidueAfterDelete int
}

// NewMockChunkStore creates a new MockChunkStore
func NewMockChunkStore() *MockChunkStore {
	return &MockChunkStore{
		bySlug: make(map[string][]*domain.Chunk),
	}
}

func (m *MockChunkStore) SaveBatch(ctx context.Context, chunks []*domain.Chunk) error {
	if m.SaveBatchErr != nil {
		return m.SaveBatchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		cp := *chunk
		m.bySlug[chunk.DocumentSlug] = append(m.bySlug[chunk.DocumentSlug], &cp)
	}
	return nil
}

func (m *MockChunkStore) GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var chunks []*domain.Chunk
	for _, slugChunks := range m.bySlug {
		for _, chunk := range slugChunks {
			if chunk.DocumentID == documentID {
				chunks = append(chunks, chunk)
			}
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

func (m *MockChunkStore) CountBySlug(ctx context.Context, slug string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySlug[slug]), nil
}

func (m *MockChunkStore) SampleBySlug(ctx context.Context, slug string, n int) ([]*domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunks := m.bySlug[slug]
	if len(chunks) <= n {
		out := make([]*domain.Chunk, len(chunks))
		copy(out, chunks)
		return out, nil
	}
	perm := rand.Perm(len(chunks))
	out := make([]*domain.Chunk, 0, n)
	for _, i := range perm[:n] {
		out = append(out, chunks[i])
	}
	return out, nil
}

func (m *MockChunkStore) DeleteBySlug(ctx context.Context, slug string) (int, error) {
	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := len(m.bySlug[slug])
	if m.ResidueAfterDelete > 0 && deleted > m.ResidueAfterDelete {
		m.bySlug[slug] = m.bySlug[slug][:m.ResidueAfterDelete]
		return deleted - m.ResidueAfterDelete, nil
	}
	delete(m.bySlug, slug)
	return deleted, nil
}

// ChunksFor returns the stored chunks for a slug (test helper)
func (m *MockChunkStore) ChunksFor(slug string) []*domain.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunks := make([]*domain.Chunk, len(m.bySlug[slug]))
	copy(chunks, m.bySlug[slug])
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks
}
