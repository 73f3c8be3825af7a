// Package graph is the in-process triple store.
//
// Graph evaluates the sparql IR directly over a Storage, so the batcher
// drives it exactly as it drives a remote endpoint. Two storages exist:
//   - Memory: a map with subject/predicate/object indexes
//   - sqlitestore.Store: durable storage on SQLite
//
// Update semantics follow SPARQL 1.1: the WHERE clause is evaluated once
// against the state before the statement, every solution instantiates the
// DELETE and INSERT templates, then all deletions are applied followed by
// all insertions. Blank nodes in an INSERT template are fresh per solution.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/triplegate/internal/backend"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
)

// Graph implements backend.Backend over a Storage.
//
// Thread-safety: safe for concurrent use. Reads share a read lock; each
// Update call holds the write lock for all of its statements, so no reader
// observes the state between two statements of one call.
type Graph struct {
	mu     sync.RWMutex
	store  Storage
	blanks rdf.BlankNodeAllocator
	logger *slog.Logger
	closed bool
}

var _ backend.Backend = (*Graph)(nil)

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for query tracing at Debug level.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = l
	}
}

// WithBlankNodes sets the allocator that labels blank nodes created by
// INSERT templates.
//
// Default: UUIDBlankNodes, which never collides with stored labels.
// Use rdf.NewSequentialBlankNodes in tests for readable snapshots.
func WithBlankNodes(a rdf.BlankNodeAllocator) Option {
	return func(g *Graph) {
		g.blanks = a
	}
}

// New creates a Graph over store. A nil store means NewMemory().
func New(store Storage, opts ...Option) *Graph {
	if store == nil {
		store = NewMemory()
	}
	g := &Graph{
		store:  store,
		blanks: UUIDBlankNodes{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// UUIDBlankNodes labels blank nodes with UUIDv7 values.
type UUIDBlankNodes struct{}

// NewBlankNode implements rdf.BlankNodeAllocator.
func (UUIDBlankNodes) NewBlankNode() rdf.BlankNode {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return rdf.BlankNode("g" + strings.ReplaceAll(id.String(), "-", ""))
}

// Ask implements backend.Backend.
func (g *Graph) Ask(ctx context.Context, q sparql.Ask) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return false, backend.ErrClosed
	}
	g.trace(ctx, q)

	sols, err := g.eval(ctx, q.Where, []sparql.Solution{{}})
	if err != nil {
		return false, fmt.Errorf("evaluate ask: %w", err)
	}
	return len(sols) > 0, nil
}

// Select implements backend.Backend.
func (g *Graph) Select(ctx context.Context, q sparql.Select) ([]sparql.Solution, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, backend.ErrClosed
	}
	g.trace(ctx, q)
	return g.selectLocked(ctx, q)
}

// Query implements backend.Backend. Only the SELECT fragment accepted by
// sparql.ParseSelect is supported.
func (g *Graph) Query(ctx context.Context, text string) ([]sparql.Solution, error) {
	q, err := sparql.ParseSelect(text)
	if err != nil {
		return nil, err
	}
	return g.Select(ctx, q)
}

// Update implements backend.Backend.
func (g *Graph) Update(ctx context.Context, us ...sparql.Update) (backend.Report, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return backend.Report{}, backend.ErrClosed
	}

	report := backend.Report{Available: true}
	for i, u := range us {
		g.trace(ctx, u)
		del, ins, err := g.instantiate(ctx, u)
		if err != nil {
			return report, fmt.Errorf("evaluate update %d: %w", i+1, err)
		}
		deleted, inserted, err := g.store.Apply(ctx, del, ins)
		if err != nil {
			return report, fmt.Errorf("apply update %d: %w", i+1, err)
		}
		report.Deleted += deleted
		report.Inserted += inserted
	}
	return report, nil
}

// Snapshot implements backend.Backend.
func (g *Graph) Snapshot(ctx context.Context) ([]rdf.Triple, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, backend.ErrClosed
	}
	ts, err := g.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read triples: %w", err)
	}
	rdf.SortTriples(ts)
	return ts, nil
}

// Clear implements backend.Backend.
func (g *Graph) Clear(ctx context.Context) (backend.Report, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return backend.Report{}, backend.ErrClosed
	}
	n, err := g.store.Clear(ctx)
	if err != nil {
		return backend.Report{}, fmt.Errorf("clear triples: %w", err)
	}
	return backend.Report{Deleted: n, Available: true}, nil
}

// Close implements backend.Backend. It is idempotent.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	return g.store.Close()
}

func (g *Graph) trace(ctx context.Context, q sparql.Query) {
	if !g.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	text, err := sparql.Renderer{}.Render(q)
	if err != nil {
		text = fmt.Sprintf("<unrenderable: %v>", err)
	}
	g.logger.DebugContext(ctx, "graph query", "query", text)
}
