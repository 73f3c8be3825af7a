package gateway

import "sync/atomic"

// Clock stamps each RunOperations call with a sequence number that shows
// up in its log lines.
type Clock interface {
	Next() int64
}

// SequenceClock is a monotonic counter starting at 0.
//
// Thread-safety: safe for concurrent use (atomic operations).
type SequenceClock struct {
	seq atomic.Int64
}

// NewSequenceClock creates a clock whose first Next returns start+1.
func NewSequenceClock(start int64) *SequenceClock {
	c := &SequenceClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number. Each call returns a unique,
// increasing value.
func (c *SequenceClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last number handed out.
func (c *SequenceClock) Current() int64 {
	return c.seq.Load()
}
