package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// MockRemoteExecutor is a mock implementation of RemoteExecutor
type MockRemoteExecutor struct {
	mu      sync.Mutex
	invokes int

	EnabledFlag bool
	Threshold   int64
	Result      *driven.InvokeResult
	InvokeErr   error

	// OnInvoke, when set, runs inside Invoke so tests can simulate the
	// remote venue completing the document itself
	OnInvoke func(ctx context.Context, slug string, mode domain.ProcessMode)
}

// NewMockRemoteExecutor creates a disabled mock remote executor
func NewMockRemoteExecutor() *MockRemoteExecutor {
	return &MockRemoteExecutor{
		Threshold: 5 * 1024 * 1024,
		Result:    &driven.InvokeResult{Success: true},
	}
}

func (m *MockRemoteExecutor) Invoke(ctx context.Context, slug string, mode domain.ProcessMode) (*driven.InvokeResult, error) {
	m.mu.Lock()
	m.invokes++
	m.mu.Unlock()
	if m.OnInvoke != nil {
		m.OnInvoke(ctx, slug, mode)
	}
	if m.InvokeErr != nil {
		return nil, m.InvokeErr
	}
	return m.Result, nil
}

func (m *MockRemoteExecutor) Enabled() bool { return m.EnabledFlag }

func (m *MockRemoteExecutor) SizeThreshold() int64 { return m.Threshold }

// Invokes returns how many Invoke calls were made
func (m *MockRemoteExecutor) Invokes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invokes
}

// MockDistributedLock is an in-process mock implementation of DistributedLock
type MockDistributedLock struct {
	mu   sync.Mutex
	held map[string]bool

	AcquireErr error
}

// NewMockDistributedLock creates a new MockDistributedLock
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{held: make(map[string]bool)}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireErr != nil {
		return false, m.AcquireErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[name] {
		return false, nil
	}
	m.held[name] = true
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error { return nil }

// Held reports whether the named lock is currently held
func (m *MockDistributedLock) Held(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[name]
}
