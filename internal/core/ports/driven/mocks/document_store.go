package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Document
	bySlug map[string]*domain.Document

	// Injected errors
	SaveErr         error
	GetErr          error
	UpdateStatusErr error
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		byID:   make(map[string]*domain.Document),
		bySlug: make(map[string]*domain.Document),
	}
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.byID[doc.ID] = &cp
	m.bySlug[doc.Slug] = &cp
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MockDocumentStore) GetBySlug(ctx context.Context, slug string) (*domain.Document, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.bySlug[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MockDocumentStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []*domain.Document
	for _, doc := range m.bySlug {
		if doc.OwnerID == ownerID {
			cp := *doc
			docs = append(docs, &cp)
		}
	}
	return docs, nil
}

func (m *MockDocumentStore) UpdateStatus(ctx context.Context, slug string, status domain.DocumentStatus, errorMessage string) error {
	if m.UpdateStatusErr != nil {
		return m.UpdateStatusErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.bySlug[slug]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	doc.ErrorMessage = errorMessage
	return nil
}

func (m *MockDocumentStore) SetQuizGenerated(ctx context.Context, slug string, generated bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.bySlug[slug]
	if !ok {
		return domain.ErrNotFound
	}
	doc.QuizGenerated = generated
	return nil
}

func (m *MockDocumentStore) UpdateSourceFile(ctx context.Context, slug string, fileRef string, sizeBytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.bySlug[slug]
	if !ok {
		return domain.ErrNotFound
	}
	doc.SourceFileRef = fileRef
	doc.FileSizeBytes = sizeBytes
	return nil
}

func (m *MockDocumentStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySlug), nil
}
