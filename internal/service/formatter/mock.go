package formatter

import (
	"context"
	"sync"
)

// MockService implements Service for unit tests. It returns Err when set,
// otherwise Prefix + text.
type MockService struct {
	Prefix string
	Err    error

	mu    sync.Mutex
	calls []string
}

// Format records text and returns the configured result.
func (m *MockService) Format(_ context.Context, text string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	return m.Prefix + text, nil
}

// Calls returns the texts passed to Format in call order.
func (m *MockService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Compile-time interface check
var _ Service = (*MockService)(nil)
