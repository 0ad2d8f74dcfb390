package llm

import (
	"context"
	"sync"
)

// --- Mock Backend for Testing ---

// MockBackend is a mock backend for testing. It is safe for concurrent use.
type MockBackend struct {
	mu           sync.Mutex
	text         string
	finishReason FinishReason
	noCandidates bool
	err          error
	lastPrompt   string
	lastConfig   GenerationConfig
	callCount    int
	closed       bool

	// GenerateFunc can be overridden for custom behavior. call is 1-based.
	GenerateFunc func(ctx context.Context, prompt string, call int) (*Response, error)
}

// NewMockBackend creates a new mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		finishReason: FinishStop,
	}
}

// SetResponse sets the text of the single returned candidate.
func (b *MockBackend) SetResponse(text string) {
	b.mu.Lock()
	b.text = text
	b.mu.Unlock()
}

// SetFinishReason sets the finish reason of the returned candidate.
func (b *MockBackend) SetFinishReason(r FinishReason) {
	b.mu.Lock()
	b.finishReason = r
	b.mu.Unlock()
}

// SetNoCandidates makes the backend answer with an empty candidate list.
func (b *MockBackend) SetNoCandidates(none bool) {
	b.mu.Lock()
	b.noCandidates = none
	b.mu.Unlock()
}

// SetError sets an error to return.
func (b *MockBackend) SetError(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

// LastPrompt returns the prompt of the most recent call.
func (b *MockBackend) LastPrompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastPrompt
}

// LastConfig returns the generation config of the most recent call.
func (b *MockBackend) LastConfig() GenerationConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastConfig
}

// CallCount returns the number of Generate calls made.
func (b *MockBackend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.callCount
}

// Closed reports whether Close was called.
func (b *MockBackend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close implements the Backend interface.
func (b *MockBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// Generate implements the Backend interface.
func (b *MockBackend) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (*Response, error) {
	b.mu.Lock()
	b.callCount++
	b.lastPrompt = prompt
	b.lastConfig = cfg
	call := b.callCount
	fn := b.GenerateFunc
	err := b.err
	resp := &Response{Model: "mock"}
	if !b.noCandidates {
		resp.Candidates = []Candidate{{FinishReason: b.finishReason, Text: b.text}}
	}
	b.mu.Unlock()

	// Use custom function if set
	if fn != nil {
		return fn(ctx, prompt, call)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Ensure MockBackend implements Backend.
var _ Backend = (*MockBackend)(nil)
