package testutil

import (
	"fmt"
	"sync"
)

// FixedGenerator returns predetermined marker tokens for testing.
//
// Tests provide a known sequence of tokens and can then assert on the exact
// marker subjects written by a batch.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
//
//	gen := NewFixedGenerator("m-1", "m-2")
//	gen.Generate() // "m-1"
//	gen.Generate() // "m-2"
//	gen.Generate() // panic: all tokens exhausted
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics once every token has been handed out, so a test that writes more
// lists than it planned for fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

// CountingGenerator returns "<prefix>-1", "<prefix>-2", ... without end.
// Golden scenarios use it so marker subjects are stable across runs.
//
// Thread-safety: safe for concurrent use via internal mutex.
type CountingGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewCountingGenerator creates a counting generator. An empty prefix
// becomes "token".
func NewCountingGenerator(prefix string) *CountingGenerator {
	if prefix == "" {
		prefix = "token"
	}
	return &CountingGenerator{prefix: prefix}
}

// Generate returns the next token.
func (g *CountingGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
