package testutil

import "sync/atomic"

// DeterministicClock is a resettable batch sequence for gateway tests.
//
// The gateway stamps every RunOperations call with the next sequence
// number. Tests inject this clock to assert on those numbers and Reset it
// between subtests.
//
// Thread-safety: all methods are safe for concurrent use.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock creates a clock at 0. The first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new value.
func (c *DeterministicClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out, or 0.
func (c *DeterministicClock) Current() int64 {
	return c.seq.Load()
}

// Reset rewinds the clock to 0.
func (c *DeterministicClock) Reset() {
	c.seq.Store(0)
}
