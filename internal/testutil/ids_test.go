package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedGenerator_InOrder(t *testing.T) {
	gen := NewFixedGenerator("m-1", "m-2")

	assert.Equal(t, "m-1", gen.Generate())
	assert.Equal(t, "m-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestCountingGenerator(t *testing.T) {
	gen := NewCountingGenerator("marker")
	assert.Equal(t, "marker-1", gen.Generate())
	assert.Equal(t, "marker-2", gen.Generate())

	assert.Equal(t, "token-1", NewCountingGenerator("").Generate())
}

func TestCountingGenerator_ThreadSafe(t *testing.T) {
	gen := NewCountingGenerator("c")

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				token := gen.Generate()
				mu.Lock()
				seen[token] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000, "every token should be unique")
}
