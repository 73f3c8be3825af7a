// Package testutil provides deterministic helpers for tests: marker token
// generators, a resettable batch clock and a backend wrapper that records
// and perturbs traffic.
package testutil

import (
	"context"
	"sync"

	"github.com/roach88/triplegate/internal/backend"
	"github.com/roach88/triplegate/internal/sparql"
)

// RecordingBackend wraps a backend.Backend and records every Ask and
// Update call. Setting UpdateErr or Unreported changes what Update
// returns after the wrapped backend has applied the statements.
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingBackend struct {
	backend.Backend

	mu         sync.Mutex
	asks       []sparql.Ask
	updates    [][]sparql.Update
	updateErr  error
	unreported bool
	beforeAsk  func()
}

// NewRecordingBackend wraps b.
func NewRecordingBackend(b backend.Backend) *RecordingBackend {
	return &RecordingBackend{Backend: b}
}

// FailUpdates makes every later Update return err without touching the
// wrapped backend. A nil err restores normal behavior.
func (r *RecordingBackend) FailUpdates(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateErr = err
}

// HideReports makes Update report unavailable mutation counts, the way an
// endpoint without count reporting does.
func (r *RecordingBackend) HideReports(hide bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unreported = hide
}

// BeforeAsk registers a hook run before every Ask reaches the wrapped
// backend. Tests use it to change the graph between a batch's reads and
// its guard check.
func (r *RecordingBackend) BeforeAsk(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeAsk = fn
}

// Ask implements backend.Backend.
func (r *RecordingBackend) Ask(ctx context.Context, q sparql.Ask) (bool, error) {
	r.mu.Lock()
	r.asks = append(r.asks, q)
	hook := r.beforeAsk
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return r.Backend.Ask(ctx, q)
}

// Update implements backend.Backend.
func (r *RecordingBackend) Update(ctx context.Context, us ...sparql.Update) (backend.Report, error) {
	r.mu.Lock()
	r.updates = append(r.updates, us)
	err, unreported := r.updateErr, r.unreported
	r.mu.Unlock()

	if err != nil {
		return backend.Report{}, err
	}
	report, err := r.Backend.Update(ctx, us...)
	if err != nil {
		return report, err
	}
	if unreported {
		return backend.Report{}, nil
	}
	return report, nil
}

// Asks returns the recorded ASK queries.
func (r *RecordingBackend) Asks() []sparql.Ask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sparql.Ask(nil), r.asks...)
}

// Updates returns the recorded Update calls, one slice of statements per
// call.
func (r *RecordingBackend) Updates() [][]sparql.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]sparql.Update(nil), r.updates...)
}

// Statements returns the number of update statements across all calls.
func (r *RecordingBackend) Statements() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, us := range r.updates {
		n += len(us)
	}
	return n
}

// Reset forgets recorded traffic. Perturbations stay in place.
func (r *RecordingBackend) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asks = nil
	r.updates = nil
}
