package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mcoot/teachkit/internal/dependencies/random"
)

// MockRandom hands out queued codes, then zeros, and numbered tokens
type MockRandom struct {
	mu     sync.Mutex
	codes  []string
	tokens int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// QueueCode adds codes to be returned by Code, in order
func (r *MockRandom) QueueCode(codes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, codes...)
}

// Code returns the next queued code, or n zeros once the queue is empty
func (r *MockRandom) Code(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.codes) == 0 {
		return strings.Repeat("0", n)
	}
	c := r.codes[0]
	r.codes = r.codes[1:]
	return c
}

// Token returns token-1, token-2, ...
func (r *MockRandom) Token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens++
	return fmt.Sprintf("token-%d", r.tokens)
}
