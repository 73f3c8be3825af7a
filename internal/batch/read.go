package batch

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/triplegate/internal/op"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/reconstruct"
	"github.com/roach88/triplegate/internal/sparql"
)

func (r *Runner) read(ctx context.Context, o op.Operation) op.Result {
	switch c := o.Command.(type) {
	case op.AskIfReferenced:
		return r.ask(ctx, referencedBy(c.ID))
	case op.AskIfExists:
		return r.ask(ctx, []sparql.Element{
			sparql.Pattern(c.ID, rdf.Variable("p"), rdf.Variable("o")),
		})
	case op.GetDataForID:
		doc, err := r.reader.Fetch(ctx, c.ID, c.Context, c.Mode == op.Deep)
		if errors.Is(err, reconstruct.ErrNotFound) {
			return op.Fail(op.CodeNotFound, err.Error())
		}
		if err != nil {
			return backendFailure(err)
		}
		return op.OK(op.DocumentResult{Object: doc, Context: c.Context})
	}
	return op.Fail(op.CodeBackend, fmt.Sprintf("%s is not a read", o.Name()))
}

func (r *Runner) ask(ctx context.Context, where []sparql.Element) op.Result {
	ok, err := r.backend.Ask(ctx, sparql.Ask{Where: where})
	if err != nil {
		return backendFailure(err)
	}
	return op.OK(ok)
}

// raw runs a query text unchanged. find_records returns the distinct ?s
// bindings in result order; count_records returns ?count of the first row,
// or 0 when there is none.
func (r *Runner) raw(ctx context.Context, c op.RunRawQuery) op.Result {
	rows, err := r.backend.Query(ctx, c.Query)
	if err != nil {
		return backendFailure(err)
	}

	switch c.Kind {
	case op.FindRecords:
		ids := []string{}
		seen := make(map[string]bool)
		for _, row := range rows {
			t := row["s"]
			if t == nil {
				continue
			}
			if id := lexical(t); !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		return op.OK(ids)
	case op.CountRecords:
		if len(rows) == 0 || rows[0]["count"] == nil {
			return op.OK(0)
		}
		n, err := strconv.Atoi(lexical(rows[0]["count"]))
		if err != nil {
			return op.Fail(op.CodeBackend, fmt.Sprintf("count_records: ?count is not an integer: %v", err))
		}
		return op.OK(n)
	}
	return op.Fail(op.CodeBackend, fmt.Sprintf("unknown result kind %s", c.Kind))
}
