// Package gateway is the entry point callers use to run operations against
// a triple store.
//
// A Gateway owns one backend.Backend, the pending operation queue and the
// lock that serializes check-then-write sequences. Construction seeds the
// working graph with the bootstrap triple and probes the backend once, so
// a Gateway that was created successfully has a reachable, non-empty
// store.
//
// Thread-safety model:
//   - Enqueue, Pending, RunOperations, Execute: safe from any goroutine
//   - two RunOperations calls never claim the same queued operation
//   - Close must not race with other calls
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/triplegate/internal/backend"
	"github.com/roach88/triplegate/internal/batch"
	"github.com/roach88/triplegate/internal/metric"
	"github.com/roach88/triplegate/internal/op"
	"github.com/roach88/triplegate/internal/prefix"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
)

// Gateway runs operation batches against one backend.
type Gateway struct {
	backend  backend.Backend
	runner   *batch.Runner
	queue    *op.Queue
	clock    Clock
	resolver *prefix.Resolver
	metrics  *metric.Metrics
	logger   *slog.Logger

	lock      sync.Locker
	runnerOps []batch.Option
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLock sets the Locker guarding check-then-write sequences. Gateways
// sharing one store from the same process should share the Locker.
// Default: a Gateway-private mutex.
func WithLock(l sync.Locker) Option {
	return func(g *Gateway) {
		g.lock = l
	}
}

// WithoutLock disables locking, for stores that are never written
// concurrently.
func WithoutLock() Option {
	return func(g *Gateway) {
		g.lock = nil
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

// WithMetrics records batch, statement, run and queue metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithClock sets the run sequence clock. Default: a SequenceClock at 0.
func WithClock(c Clock) Option {
	return func(g *Gateway) {
		g.clock = c
	}
}

// WithTokens sets the marker token generator used for list writes.
func WithTokens(t batch.TokenGenerator) Option {
	return func(g *Gateway) {
		g.runnerOps = append(g.runnerOps, batch.WithTokens(t))
	}
}

// WithBlankNodes sets the allocator for list chain nodes.
func WithBlankNodes(a rdf.BlankNodeAllocator) Option {
	return func(g *Gateway) {
		g.runnerOps = append(g.runnerOps, batch.WithBlankNodes(a))
	}
}

// WithPrefixResolver sets the resolver used by Prefixes. Default: a
// resolver knowing only the common vocabularies.
func WithPrefixResolver(r *prefix.Resolver) Option {
	return func(g *Gateway) {
		g.resolver = r
	}
}

// New creates a Gateway over b, seeds the bootstrap triple and runs one
// existence probe. On failure b is left open for the caller to close.
func New(ctx context.Context, b backend.Backend, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		backend: b,
		queue:   op.NewQueue(),
		clock:   NewSequenceClock(0),
		logger:  slog.Default(),
		lock:    &sync.Mutex{},
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.resolver == nil {
		g.resolver = prefix.NewResolver()
	}

	runnerOps := []batch.Option{batch.WithLock(g.lock), batch.WithLogger(g.logger)}
	if g.metrics != nil {
		runnerOps = append(runnerOps, batch.WithObserver(g.metrics))
	}
	g.runner = batch.New(b, append(runnerOps, g.runnerOps...)...)

	if err := g.runner.Seed(ctx); err != nil {
		return nil, fmt.Errorf("seed working graph: %w", err)
	}
	if _, err := b.Ask(ctx, sparql.Ask{Where: []sparql.Element{sparql.AnyTriple()}}); err != nil {
		return nil, fmt.Errorf("probe working graph: %w", err)
	}
	g.logger.Debug("gateway ready", "locking", g.lock != nil)
	return g, nil
}

// Snapshot returns every triple of the working graph except the bootstrap
// triple.
func (g *Gateway) Snapshot(ctx context.Context) ([]rdf.Triple, error) {
	all, err := g.backend.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	out := make([]rdf.Triple, 0, len(all))
	for _, t := range all {
		if rdf.Equal(t.S, batch.Bootstrap.S) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Prefixes returns a prefix -> namespace map for the current snapshot.
func (g *Gateway) Prefixes(ctx context.Context) (map[string]string, error) {
	triples, err := g.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return g.resolver.Extract(ctx, triples), nil
}

// Resolver returns the prefix resolver.
func (g *Gateway) Resolver() *prefix.Resolver {
	return g.resolver
}

// Close closes the backend. Queued operations are dropped.
func (g *Gateway) Close() error {
	if n := g.queue.Len(); n > 0 {
		g.logger.Warn("closing gateway with queued operations", "pending", n)
	}
	return g.backend.Close()
}
