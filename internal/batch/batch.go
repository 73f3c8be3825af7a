// Package batch executes operation batches against a backend.Backend.
//
// # Batches
//
// Run classifies operations and executes them in this order:
//
//  1. saves: every save-category operation is merged into one guarded
//     write (one update statement, or two when lists are inserted)
//  2. destroys: id-scoped deletes as one batch sharing a single
//     referenced-by check, then full wipes
//  3. reads: existence checks and document reads, one query each
//  4. pass-through: raw SELECT queries
//
// Every operation of a save or destroy batch receives the same Result.
//
// # Locking
//
// Each check-then-write sequence (guard ASK and update, referenced-by check
// and delete, wipe and reseed) runs inside one critical section of the
// configured sync.Locker. Without a Locker no locking is done.
//
// # Errors
//
// Run returns an error only for contract violations, detected before the
// backend is touched. Backend failures become Results with
// op.CodeBackend.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/triplegate/internal/backend"
	"github.com/roach88/triplegate/internal/op"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/reconstruct"
	"github.com/roach88/triplegate/internal/sparql"
	"github.com/roach88/triplegate/internal/statement"
)

// Bootstrap is kept in the working graph at all times so that guard
// patterns with no positive triple pattern still have a solution.
var Bootstrap = rdf.T(
	rdf.IRI("https://example.com/dummy_s"),
	rdf.IRI("https://example.com/dummy_p"),
	rdf.IRI("https://example.com/dummy_o"),
)

// Marker vocabulary for two-phase writes.
const (
	MarkerPrefix    = op.ReservedNamespace + "lock:"
	MarkerPredicate = rdf.IRI(op.ReservedNamespace + "locked")
)

// Marker returns the marker triple for token.
func Marker(token string) rdf.Triple {
	return rdf.T(rdf.IRI(MarkerPrefix+token), MarkerPredicate, rdf.NewLiteral("true", rdf.XSDBoolean))
}

// TokenGenerator produces the unique part of marker subjects.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 tokens.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Kind names a batch for logging and metrics.
type Kind string

const (
	KindSave      Kind = "save"
	KindDestroy   Kind = "destroy"
	KindDeleteAll Kind = "delete_all"
	KindRead      Kind = "read"
	KindRaw       Kind = "raw"
)

// Observer receives batch outcomes.
type Observer interface {
	// ObserveBatch is called once per executed batch with the number of
	// operations it covered.
	ObserveBatch(kind Kind, ops int, res op.Result, elapsed time.Duration)
	// ObserveStatements is called with the number of update statements
	// sent in one backend call.
	ObserveStatements(kind Kind, n int)
}

type nopObserver struct{}

func (nopObserver) ObserveBatch(Kind, int, op.Result, time.Duration) {}
func (nopObserver) ObserveStatements(Kind, int)                       {}

// Runner executes batches.
//
// Thread-safety: safe for concurrent use. Concurrent writers must share a
// Locker unless the backend serializes check-then-write sequences itself.
type Runner struct {
	backend  backend.Backend
	lock     sync.Locker
	builder  *statement.Builder
	tokens   TokenGenerator
	reader   *reconstruct.Reconstructor
	observer Observer
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLock sets the Locker guarding check-then-write sequences.
func WithLock(l sync.Locker) Option {
	return func(r *Runner) {
		r.lock = l
	}
}

// WithTokens sets the marker token generator. Default: UUIDv7Generator.
func WithTokens(g TokenGenerator) Option {
	return func(r *Runner) {
		r.tokens = g
	}
}

// WithBlankNodes sets the allocator for list chain nodes of saved values.
func WithBlankNodes(a rdf.BlankNodeAllocator) Option {
	return func(r *Runner) {
		r.builder = statement.NewBuilder(a)
	}
}

// WithObserver sets the batch observer.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// New creates a Runner over b.
func New(b backend.Backend, opts ...Option) *Runner {
	r := &Runner{
		backend:  b,
		builder:  statement.NewBuilder(rdf.NewSequentialBlankNodes("b")),
		tokens:   UUIDv7Generator{},
		observer: nopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.reader = reconstruct.New(b, reconstruct.WithLogger(r.logger))
	return r
}

// Seed inserts the bootstrap triple. Inserting it again is a no-op.
func (r *Runner) Seed(ctx context.Context) error {
	_, err := r.backend.Update(ctx, sparql.Update{Insert: []rdf.Triple{Bootstrap}})
	return err
}

// Run executes ops and returns one Result per operation id.
//
// All operations are validated first; a contract violation is returned as
// an *op.ContractError and nothing is executed.
func (r *Runner) Run(ctx context.Context, ops []op.Operation) (map[string]op.Result, error) {
	var saves, destroys, wipes, reads, raws []op.Operation
	for _, o := range ops {
		if err := op.Validate(o); err != nil {
			return nil, err
		}
		switch o.Category() {
		case op.CategoryWrite:
			switch {
			case !op.IsDestroy(o.Command):
				saves = append(saves, o)
			case o.Name() == op.NameDeleteAll:
				wipes = append(wipes, o)
			default:
				destroys = append(destroys, o)
			}
		case op.CategoryRead:
			reads = append(reads, o)
		case op.CategoryPassThrough:
			raws = append(raws, o)
		}
	}
	var plan *savePlan
	if len(saves) > 0 {
		var err error
		if plan, err = r.prepareSaves(saves); err != nil {
			return nil, err
		}
	}

	results := make(map[string]op.Result, len(ops))
	assign := func(batch []op.Operation, res op.Result) {
		for _, o := range batch {
			results[o.ID] = res
		}
	}

	if len(saves) > 0 {
		assign(saves, r.timed(ctx, KindSave, len(saves), func() op.Result { return r.save(ctx, plan) }))
	}
	if len(destroys) > 0 {
		assign(destroys, r.timed(ctx, KindDestroy, len(destroys), func() op.Result { return r.destroy(ctx, destroys) }))
	}
	if len(wipes) > 0 {
		assign(wipes, r.timed(ctx, KindDeleteAll, len(wipes), func() op.Result { return r.deleteAll(ctx) }))
	}
	for _, o := range reads {
		results[o.ID] = r.timed(ctx, KindRead, 1, func() op.Result { return r.read(ctx, o) })
	}
	for _, o := range raws {
		results[o.ID] = r.timed(ctx, KindRaw, 1, func() op.Result { return r.raw(ctx, o.Command.(op.RunRawQuery)) })
	}
	return results, nil
}

func (r *Runner) timed(ctx context.Context, kind Kind, n int, fn func() op.Result) op.Result {
	start := time.Now()
	res := fn()
	elapsed := time.Since(start)
	r.observer.ObserveBatch(kind, n, res, elapsed)

	level := slog.LevelDebug
	if kind != KindRead && kind != KindRaw {
		level = slog.LevelInfo
	}
	if !res.Success {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "batch done",
		"kind", string(kind),
		"ops", n,
		"success", res.Success,
		"code", res.Code.String(),
		"message", res.Message,
		"elapsed", elapsed,
	)
	return res
}

// critical runs fn while holding the lock, if any.
func (r *Runner) critical(fn func() op.Result) op.Result {
	if r.lock != nil {
		r.lock.Lock()
		defer r.lock.Unlock()
	}
	return fn()
}

// update sends statements and records how many were sent.
func (r *Runner) update(ctx context.Context, kind Kind, us ...sparql.Update) (backend.Report, error) {
	r.observer.ObserveStatements(kind, len(us))
	return r.backend.Update(ctx, us...)
}

func backendFailure(err error) op.Result {
	return op.Fail(op.CodeBackend, err.Error())
}
