package mocks

import (
	"context"
	"math/rand"
	"sync"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// MockQuizBankStore is a mock implementation of QuizBankStore for testing
type MockQuizBankStore struct {
	mu        sync.RWMutex
	banks     map[string]*domain.QuizBank       // by ID
	questions map[string][]*domain.QuizQuestion // by bank ID

	// Injected errors
	SaveErr          error
	SaveQuestionsErr error
}

// NewMockQuizBankStore creates a new MockQuizBankStore
func NewMockQuizBankStore() *MockQuizBankStore {
	return &MockQuizBankStore{
		banks:     make(map[string]*domain.QuizBank),
		questions: make(map[string][]*domain.QuizQuestion),
	}
}

func (m *MockQuizBankStore) Save(ctx context.Context, bank *domain.QuizBank) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *bank
	m.banks[bank.ID] = &cp
	return nil
}

func (m *MockQuizBankStore) GetLatestBySlug(ctx context.Context, slug string) (*domain.QuizBank, error) {
	return m.latest(slug, func(*domain.QuizBank) bool { return true })
}

func (m *MockQuizBankStore) GetLatestCompletedBySlug(ctx context.Context, slug string) (*domain.QuizBank, error) {
	return m.latest(slug, func(b *domain.QuizBank) bool {
		return b.Status == domain.QuizBankStatusCompleted
	})
}

func (m *MockQuizBankStore) latest(slug string, match func(*domain.QuizBank) bool) (*domain.QuizBank, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *domain.QuizBank
	for _, bank := range m.banks {
		if bank.DocumentSlug != slug || !match(bank) {
			continue
		}
		if latest == nil || bank.GeneratedAt.After(latest.GeneratedAt) {
			latest = bank
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MockQuizBankStore) SaveQuestions(ctx context.Context, bankID string, questions []*domain.QuizQuestion) error {
	if m.SaveQuestionsErr != nil {
		return m.SaveQuestionsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]*domain.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		cp := *q
		stored = append(stored, &cp)
	}
	m.questions[bankID] = stored
	return nil
}

func (m *MockQuizBankStore) GetQuestions(ctx context.Context, bankID string) ([]*domain.QuizQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.QuizQuestion, len(m.questions[bankID]))
	copy(out, m.questions[bankID])
	return out, nil
}

func (m *MockQuizBankStore) SampleQuestions(ctx context.Context, bankID string, n int) ([]*domain.QuizQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	questions := m.questions[bankID]
	if len(questions) <= n {
		out := make([]*domain.QuizQuestion, len(questions))
		copy(out, questions)
		return out, nil
	}
	perm := rand.Perm(len(questions))
	out := make([]*domain.QuizQuestion, 0, n)
	for _, i := range perm[:n] {
		out = append(out, questions[i])
	}
	return out, nil
}

// MockQuizAttemptStore is a mock implementation of QuizAttemptStore for testing
type MockQuizAttemptStore struct {
	mu       sync.RWMutex
	attempts map[string][]*domain.QuizAttempt // by document slug

	SaveErr error
}

// NewMockQuizAttemptStore creates a new MockQuizAttemptStore
func NewMockQuizAttemptStore() *MockQuizAttemptStore {
	return &MockQuizAttemptStore{
		attempts: make(map[string][]*domain.QuizAttempt),
	}
}

func (m *MockQuizAttemptStore) Save(ctx context.Context, attempt *domain.QuizAttempt) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *attempt
	m.attempts[attempt.DocumentSlug] = append(m.attempts[attempt.DocumentSlug], &cp)
	return nil
}

func (m *MockQuizAttemptStore) Aggregate(ctx context.Context, slug string) (*domain.AttemptAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	attempts := m.attempts[slug]
	agg := &domain.AttemptAggregate{TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		return agg, nil
	}
	var scoreSum, sizeSum int
	for _, a := range attempts {
		scoreSum += a.Score
		sizeSum += a.QuizSize
		if a.UserID == nil {
			agg.AnonymousCount++
		}
		if agg.LastAttemptAt == nil || a.CompletedAt.After(*agg.LastAttemptAt) {
			at := a.CompletedAt
			agg.LastAttemptAt = &at
		}
	}
	agg.AverageScore = float64(scoreSum) / float64(len(attempts))
	agg.AverageQuizSize = float64(sizeSum) / float64(len(attempts))
	return agg, nil
}
