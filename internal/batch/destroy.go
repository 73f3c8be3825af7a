package batch

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/triplegate/internal/op"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
)

// referenceTerms returns the object forms under which an id counts as
// referenced: the IRI itself and an xsd:anyURI literal with the same text.
func referenceTerms(ids ...rdf.IRI) []rdf.Term {
	out := make([]rdf.Term, 0, 2*len(ids))
	for _, id := range ids {
		out = append(out, id, rdf.NewLiteral(string(id), rdf.XSDAnyURI))
	}
	return out
}

// referencedBy matches any triple whose object is one of ids.
func referencedBy(ids ...rdf.IRI) []sparql.Element {
	ref := rdf.Variable("ref")
	return []sparql.Element{
		sparql.ValuesOf(ref, referenceTerms(ids...)...),
		sparql.Pattern(rdf.Variable("s_ref"), rdf.Variable("p_ref"), ref),
	}
}

// referenced returns the ids that are still the object of some triple.
func (r *Runner) referenced(ctx context.Context, ids []rdf.IRI) ([]string, error) {
	rows, err := r.backend.Select(ctx, sparql.Select{
		Vars:     []rdf.Variable{"ref"},
		Distinct: true,
		Where:    referencedBy(ids...),
	})
	if err != nil {
		return nil, fmt.Errorf("check references: %w", err)
	}
	var out []string
	for _, row := range rows {
		if t := row["ref"]; t != nil {
			out = append(out, lexical(t))
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// deleteSubjects removes every triple of the given subjects together with
// the list chains they hold. Both statements repeat the referenced-by
// filter.
func deleteSubjects(ids []rdf.IRI) []sparql.Update {
	s, p, o := rdf.Variable("s"), rdf.Variable("p"), rdf.Variable("o")
	terms := make([]rdf.Term, len(ids))
	for i, id := range ids {
		terms[i] = id
	}
	values := sparql.ValuesOf(s, terms...)
	unreferenced := sparql.NotExists{Elements: []sparql.Element{
		sparql.Pattern(rdf.Variable("s_ref"), rdf.Variable("p_ref"), s),
	}}

	list, z := rdf.Variable("list"), rdf.Variable("z")
	head, tail := rdf.Variable("head"), rdf.Variable("tail")
	links := []rdf.Triple{
		rdf.T(z, rdf.RDFFirst, head),
		rdf.T(z, rdf.RDFRest, tail),
	}
	where := []sparql.Element{
		values,
		sparql.Pattern(s, rdf.Variable("lp"), list),
		sparql.PathPattern{S: list, Steps: sparql.ChainPath(), O: z},
	}
	where = append(where, sparql.Patterns(links)...)
	chains := sparql.Update{
		Delete: links,
		Where:  append(where, unreferenced),
	}
	subjects := sparql.Update{
		Delete: []rdf.Triple{rdf.T(s, p, o)},
		Where: []sparql.Element{
			values,
			sparql.Pattern(s, p, o),
			unreferenced,
		},
	}
	return []sparql.Update{chains, subjects}
}

func (r *Runner) destroy(ctx context.Context, ops []op.Operation) op.Result {
	var ids []rdf.IRI
	for _, o := range ops {
		if c, ok := o.Command.(op.DeleteAttributesForID); ok && !slices.Contains(ids, c.ID) {
			ids = append(ids, c.ID)
		}
	}

	return r.critical(func() op.Result {
		refs, err := r.referenced(ctx, ids)
		if err != nil {
			return backendFailure(err)
		}
		if len(refs) > 0 {
			return op.Fail(op.CodeReferenced, fmt.Sprintf("still referenced: %s", strings.Join(refs, ", ")))
		}

		report, err := r.update(ctx, KindDestroy, deleteSubjects(ids)...)
		if err != nil {
			return backendFailure(err)
		}
		if !report.Available {
			return op.Fail(op.CodeReportUnavailable, op.MessageReportUnavailable)
		}
		if report.Deleted == 0 {
			return op.Fail(op.CodeNotFound, fmt.Sprintf("nothing to delete for %s", joinIRIs(ids)))
		}
		return op.OK(op.Counts{Deleted: report.Deleted})
	})
}

// deleteAll wipes the working graph and reseeds the bootstrap triple. It
// succeeds whenever the backend does; the deleted count leaves out the
// bootstrap triple.
func (r *Runner) deleteAll(ctx context.Context) op.Result {
	return r.critical(func() op.Result {
		report, err := r.backend.Clear(ctx)
		if err != nil {
			return backendFailure(err)
		}
		if _, err := r.update(ctx, KindDeleteAll, sparql.Update{Insert: []rdf.Triple{Bootstrap}}); err != nil {
			return backendFailure(err)
		}
		return op.OK(op.Counts{Deleted: max(report.Deleted-1, 0)})
	})
}

func joinIRIs(ids []rdf.IRI) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

// lexical returns the plain text of a term: the IRI, the literal's lexical
// form or the blank node label.
func lexical(t rdf.Term) string {
	switch v := t.(type) {
	case rdf.IRI:
		return string(v)
	case rdf.Literal:
		return v.Lexical
	}
	return t.String()
}
