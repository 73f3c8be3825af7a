package op

import (
	"fmt"
	"sync"
)

// Queue is the pending operation queue owned by the gateway.
//
// Operations move through three states: queued, claimed by a running batch,
// and removed once that batch has produced results. A claimed operation is
// invisible to other Claim calls, so two concurrent runs never consume the
// same operation.
//
// Thread-safety: safe for concurrent use via internal mutex.
type Queue struct {
	mu      sync.Mutex
	ops     []Operation
	claimed map[string]bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		ops:     make([]Operation, 0, 64),
		claimed: make(map[string]bool),
	}
}

// Enqueue appends operations in order. Ids must be unique among queued
// operations; a duplicate rejects the whole call.
func (q *Queue) Enqueue(ops ...Operation) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	seen := make(map[string]bool, len(q.ops)+len(ops))
	for _, o := range q.ops {
		seen[o.ID] = true
	}
	for _, o := range ops {
		if seen[o.ID] {
			return &ContractError{OpID: o.ID, Name: o.Name(), Message: fmt.Sprintf("duplicate operation id %q", o.ID)}
		}
		seen[o.ID] = true
	}
	q.ops = append(q.ops, ops...)
	return nil
}

// Claim marks and returns the unclaimed operations whose ids are listed,
// in queue order. With no ids every unclaimed operation is claimed.
// Unknown ids are ignored.
func (q *Queue) Claim(ids ...string) []Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var want map[string]bool
	if len(ids) > 0 {
		want = make(map[string]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
	}

	var out []Operation
	for _, o := range q.ops {
		if q.claimed[o.ID] || want != nil && !want[o.ID] {
			continue
		}
		q.claimed[o.ID] = true
		out = append(out, o)
	}
	return out
}

// Release returns claimed operations to the queue untouched.
func (q *Queue) Release(ops []Operation) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, o := range ops {
		delete(q.claimed, o.ID)
	}
}

// Complete removes claimed operations from the queue.
func (q *Queue) Complete(ops []Operation) {
	q.mu.Lock()
	defer q.mu.Unlock()

	done := make(map[string]bool, len(ops))
	for _, o := range ops {
		done[o.ID] = true
		delete(q.claimed, o.ID)
	}
	kept := q.ops[:0]
	for _, o := range q.ops {
		if !done[o.ID] {
			kept = append(kept, o)
		}
	}
	// Clear the tail so removed commands can be collected.
	for i := len(kept); i < len(q.ops); i++ {
		q.ops[i] = Operation{}
	}
	q.ops = kept
}

// Len returns the number of queued operations, claimed or not.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Pending returns a copy of the queued operations in order.
func (q *Queue) Pending() []Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Operation, len(q.ops))
	copy(out, q.ops)
	return out
}
