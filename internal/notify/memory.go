package notify

import (
	"context"
	"sync"
)

// MemoryProvider records published completions for tests.
type MemoryProvider struct {
	mu        sync.Mutex
	published []Completion
	closed    bool
}

// NewMemoryProvider creates an in-memory recording provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

// Publish records the completion.
func (m *MemoryProvider) Publish(_ context.Context, c Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, c)
	return nil
}

// Close marks the provider closed.
func (m *MemoryProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Published returns the completions recorded so far.
func (m *MemoryProvider) Published() []Completion {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Completion, len(m.published))
	copy(out, m.published)
	return out
}

// Closed reports whether Close was called.
func (m *MemoryProvider) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
