package graph

import (
	"context"
	"sort"

	"github.com/roach88/triplegate/internal/rdf"
)

// Storage holds the ground triples of one working graph.
//
// Terms passed to Match may be nil or a Variable, meaning "any". Triples
// passed to Apply are ground and already expanded: they never contain
// *rdf.List objects.
//
// Implementations need not be safe for concurrent use; Graph serializes
// every call.
type Storage interface {
	// Match returns the triples matching the pattern in a stable order.
	Match(ctx context.Context, s, p, o rdf.Term) ([]rdf.Triple, error)
	// Apply removes del then adds ins, returning how many triples were
	// actually removed and added.
	Apply(ctx context.Context, del, ins []rdf.Triple) (deleted, inserted int, err error)
	// All returns every triple.
	All(ctx context.Context) ([]rdf.Triple, error)
	// Clear removes every triple and returns how many were removed.
	Clear(ctx context.Context) (int, error)
	// Close releases resources.
	Close() error
}

// Memory is an in-memory Storage indexed by subject, predicate and object.
type Memory struct {
	triples map[string]rdf.Triple
	index   [3]map[string]map[string]struct{}
}

// NewMemory creates an empty in-memory storage.
func NewMemory() *Memory {
	m := &Memory{triples: make(map[string]rdf.Triple)}
	for i := range m.index {
		m.index[i] = make(map[string]map[string]struct{})
	}
	return m
}

// Match implements Storage.
func (m *Memory) Match(ctx context.Context, s, p, o rdf.Term) ([]rdf.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pattern := [3]rdf.Term{s, p, o}

	// Scan the smallest index bucket among the bound positions.
	var candidates map[string]struct{}
	scanAll := true
	for i, t := range pattern {
		if !bound(t) {
			continue
		}
		bucket := m.index[i][t.String()]
		if scanAll || len(bucket) < len(candidates) {
			candidates = bucket
			scanAll = false
		}
	}

	var keys []string
	if scanAll {
		keys = make([]string, 0, len(m.triples))
		for k := range m.triples {
			keys = append(keys, k)
		}
	} else {
		keys = make([]string, 0, len(candidates))
		for k := range candidates {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]rdf.Triple, 0, len(keys))
	for _, k := range keys {
		t := m.triples[k]
		if matches(pattern, t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Apply implements Storage.
func (m *Memory) Apply(ctx context.Context, del, ins []rdf.Triple) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	deleted, inserted := 0, 0
	for _, t := range del {
		k := t.String()
		if _, ok := m.triples[k]; !ok {
			continue
		}
		delete(m.triples, k)
		for i, term := range [3]rdf.Term{t.S, t.P, t.O} {
			bucket := m.index[i][term.String()]
			delete(bucket, k)
			if len(bucket) == 0 {
				delete(m.index[i], term.String())
			}
		}
		deleted++
	}
	for _, t := range ins {
		k := t.String()
		if _, ok := m.triples[k]; ok {
			continue
		}
		m.triples[k] = t
		for i, term := range [3]rdf.Term{t.S, t.P, t.O} {
			bucket := m.index[i][term.String()]
			if bucket == nil {
				bucket = make(map[string]struct{})
				m.index[i][term.String()] = bucket
			}
			bucket[k] = struct{}{}
		}
		inserted++
	}
	return deleted, inserted, nil
}

// All implements Storage.
func (m *Memory) All(ctx context.Context) ([]rdf.Triple, error) {
	return m.Match(ctx, nil, nil, nil)
}

// Clear implements Storage.
func (m *Memory) Clear(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := len(m.triples)
	m.triples = make(map[string]rdf.Triple)
	for i := range m.index {
		m.index[i] = make(map[string]map[string]struct{})
	}
	return n, nil
}

// Close implements Storage.
func (m *Memory) Close() error {
	return nil
}

// bound reports whether a pattern position constrains the match.
func bound(t rdf.Term) bool {
	if t == nil {
		return false
	}
	_, isVar := t.(rdf.Variable)
	return !isVar
}

func matches(pattern [3]rdf.Term, t rdf.Triple) bool {
	for i, term := range [3]rdf.Term{t.S, t.P, t.O} {
		if bound(pattern[i]) && pattern[i].String() != term.String() {
			return false
		}
	}
	return true
}
