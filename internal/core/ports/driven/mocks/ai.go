package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// MockEmbeddingService is a mock implementation of EmbeddingService.
// It returns deterministic vectors derived from text length.
type MockEmbeddingService struct {
	mu        sync.Mutex
	calls     int
	textsSeen []string

	Dim      int
	EmbedErr error
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{Dim: 4}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	m.calls++
	m.textsSeen = append(m.textsSeen, texts...)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.Dim)
		for j := range vec {
			vec[j] = float32(len(text)+i) / float32(j+1)
		}
		out[i] = vec
	}
	return out, nil
}

func (m *MockEmbeddingService) Dimensions() int { return m.Dim }

func (m *MockEmbeddingService) Model() string { return "mock-embedding" }

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error { return nil }

func (m *MockEmbeddingService) Close() error { return nil }

// Calls returns how many Embed calls were made
func (m *MockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// TextsSeen returns all texts passed to Embed
func (m *MockEmbeddingService) TextsSeen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.textsSeen))
	copy(out, m.textsSeen)
	return out
}

// MockQuestionGenerator is a mock implementation of QuestionGenerator
type MockQuestionGenerator struct {
	mu         sync.Mutex
	calls      int
	batchSizes []int

	GenerateErr error
	// ShortBy makes each call return this many fewer questions than asked
	ShortBy int
}

// NewMockQuestionGenerator creates a new MockQuestionGenerator
func NewMockQuestionGenerator() *MockQuestionGenerator {
	return &MockQuestionGenerator{}
}

func (m *MockQuestionGenerator) GenerateQuestions(ctx context.Context, chunks []string, count int) ([]*domain.GeneratedQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GenerateErr != nil {
		return nil, m.GenerateErr
	}
	m.calls++
	m.batchSizes = append(m.batchSizes, count)
	n := count - m.ShortBy
	if n < 0 {
		n = 0
	}
	out := make([]*domain.GeneratedQuestion, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &domain.GeneratedQuestion{
			Question:           fmt.Sprintf("question %d of batch %d", i, m.calls),
			Options:            []string{"a", "b", "c", "d"},
			CorrectAnswerIndex: i % 4,
		})
	}
	return out, nil
}

func (m *MockQuestionGenerator) Model() string { return "mock-llm" }

func (m *MockQuestionGenerator) Ping(ctx context.Context) error { return nil }

func (m *MockQuestionGenerator) Close() error { return nil }

// Calls returns how many generation calls were made
func (m *MockQuestionGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// BatchSizes returns the per-call question counts requested
func (m *MockQuestionGenerator) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.batchSizes))
	copy(out, m.batchSizes)
	return out
}
