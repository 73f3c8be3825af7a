package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/triplegate/internal/backend"
	"github.com/roach88/triplegate/internal/gateway"
	"github.com/roach88/triplegate/internal/graph"
	"github.com/roach88/triplegate/internal/graph/sqlitestore"
	"github.com/roach88/triplegate/internal/jsonld"
	"github.com/roach88/triplegate/internal/op"
	"github.com/roach88/triplegate/internal/opfile"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
	"github.com/roach88/triplegate/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock, ids and blank nodes. The
// clock is shared with the gateway: each batch takes one tick when it runs
// and each trace event takes the next.
type Harness struct {
	gw     *gateway.Gateway
	rec    *testutil.RecordingBackend
	clock  *testutil.DeterministicClock
	ids    *testutil.CountingGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh graph.
//
// Execution flow:
// 1. Open the backend and the gateway
// 2. Insert the seed triples
// 3. Execute each run and check its expect clauses
// 4. Capture the final graph and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	b, err := openBackend(scenario.Backend, logger)
	if err != nil {
		return nil, err
	}
	rec := testutil.NewRecordingBackend(b)
	clock := testutil.NewDeterministicClock()

	gw, err := gateway.New(ctx, rec,
		gateway.WithLogger(logger),
		gateway.WithClock(clock),
		gateway.WithTokens(testutil.NewCountingGenerator("marker")),
		gateway.WithBlankNodes(rdf.NewSequentialBlankNodes("b")),
	)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to open gateway: %w", err)
	}
	defer gw.Close()

	h := &Harness{
		gw:     gw,
		rec:    rec,
		clock:  clock,
		ids:    testutil.NewCountingGenerator("op"),
		logger: logger,
	}

	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed graph: %w", err)
	}
	rec.Reset()

	result := NewResult()
	for i, run := range scenario.Runs {
		if err := h.executeRun(ctx, i, run, result); err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}
	}

	triples, err := gw.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final graph: %w", err)
	}
	rdf.SortTriples(triples)
	for _, t := range rdf.ExpandAll(triples) {
		result.Graph = append(result.Graph, t.String()+" .")
	}
	result.Statements = rec.Statements()

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

func openBackend(name string, logger *slog.Logger) (backend.Backend, error) {
	blanks := graph.WithBlankNodes(rdf.NewSequentialBlankNodes("g"))
	if name == BackendSQLite {
		st, err := sqlitestore.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		return graph.New(st, graph.WithLogger(logger), blanks), nil
	}
	return graph.New(nil, graph.WithLogger(logger), blanks), nil
}

func (h *Harness) seed(ctx context.Context, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	triples := make([]rdf.Triple, 0, len(lines))
	for i, line := range lines {
		t, err := rdf.ParseTriple(line)
		if err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		triples = append(triples, t)
	}
	_, err := h.rec.Update(ctx, sparql.Update{Insert: triples})
	return err
}

// executeRun decodes and executes one batch. Contract errors are expected
// only when the run is marked rejected; anything else is a harness error.
func (h *Harness) executeRun(ctx context.Context, index int, run RunStep, result *Result) error {
	ops, err := opfile.Operations(run.Operations, h.ids)
	var results map[string]op.Result
	if err == nil {
		results, err = h.gw.Execute(ctx, ops...)
	}

	if err != nil {
		if !op.IsContractError(err) {
			return err
		}
		result.AddTrace(TraceEvent{
			Run:     index,
			Seq:     h.clock.Next(),
			Name:    "rejected",
			Code:    "contract",
			Message: err.Error(),
		})
		if !run.Rejected {
			result.AddError(fmt.Sprintf("runs[%d]: unexpected contract error: %v", index, err))
		}
		return nil
	}
	if run.Rejected {
		result.AddError(fmt.Sprintf("runs[%d]: expected a contract error, batch ran", index))
	}

	for _, o := range ops {
		res := results[o.ID]
		event := TraceEvent{
			Run:     index,
			Seq:     h.clock.Next(),
			ID:      o.ID,
			Name:    o.Name(),
			Success: res.Success,
			Code:    res.Code.String(),
			Message: res.Message,
			Data:    plain(res.Data),
		}
		result.AddTrace(event)

		if want, ok := run.Expect[o.ID]; ok {
			for _, msg := range checkExpect(want, event) {
				result.AddError(fmt.Sprintf("runs[%d] %s: %s", index, o.ID, msg))
			}
		}
		h.logger.Debug("operation checked", "run", index, "id", o.ID, "code", event.Code)
	}
	for id := range run.Expect {
		if _, ok := results[id]; !ok {
			result.AddError(fmt.Sprintf("runs[%d]: expect names unknown operation %q", index, id))
		}
	}
	return nil
}

func checkExpect(want ExpectClause, got TraceEvent) []string {
	var errs []string
	if want.Succeeds() != got.Success {
		errs = append(errs, fmt.Sprintf("expected success=%t, got %t (%s: %s)", want.Succeeds(), got.Success, got.Code, got.Message))
	}
	if want.Code != "" && want.Code != got.Code {
		errs = append(errs, fmt.Sprintf("expected code %s, got %s", want.Code, got.Code))
	}
	if want.Data != nil {
		wantJSON, werr := jsonld.MarshalCanonical(want.Data)
		gotJSON, gerr := jsonld.MarshalCanonical(got.Data)
		switch {
		case werr != nil:
			errs = append(errs, fmt.Sprintf("expected data is not JSON: %v", werr))
		case gerr != nil:
			errs = append(errs, fmt.Sprintf("result data is not JSON: %v", gerr))
		case string(wantJSON) != string(gotJSON):
			errs = append(errs, fmt.Sprintf("expected data %s, got %s", wantJSON, gotJSON))
		}
	}
	return errs
}

// plain converts result data to JSON-shaped values.
func plain(data any) any {
	switch d := data.(type) {
	case op.Counts:
		return map[string]any{"deleted": d.Deleted, "inserted": d.Inserted}
	case op.DocumentResult:
		return map[string]any(d.Object)
	case []string:
		out := make([]any, len(d))
		for i, s := range d {
			out[i] = s
		}
		return out
	}
	return data
}
