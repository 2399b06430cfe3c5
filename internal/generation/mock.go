package generation

import (
	"context"
	"strings"
	"sync"
)

// MockGenerator answers deterministically from the prompt and records every prompt it
// receives. The answer is the first line of the context, or Reply when set.
type MockGenerator struct {
	Reply string
	Err   error

	mu      sync.Mutex
	prompts []Prompt
}

// NewMockGenerator returns a generator that needs no external service.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate records p and returns Err, Reply, or the first context line.
func (m *MockGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, p)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	body := strings.TrimPrefix(p.User, "Context:\n")
	if i := strings.Index(body, "\n\nQuestion:\n"); i >= 0 {
		body = body[:i]
	}
	line, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	return strings.TrimSpace(line), nil
}

// Calls returns how many prompts were received.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// LastPrompt returns the most recent prompt, if any.
func (m *MockGenerator) LastPrompt() (Prompt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return Prompt{}, false
	}
	return m.prompts[len(m.prompts)-1], true
}
