// Package reconstruct rebuilds nested documents from the working graph.
//
// A read walks the graph from a root subject with an explicit worklist and
// visited set. List chains are resolved into ordered values as they are
// met. In deep mode every referenced subject is walked as well, including
// references held inside lists; each subject is fetched at most once, so
// cyclic graphs terminate.
//
// The collected nodes are then framed into one document rooted at the
// requested id: keys and types are compacted against a context, literal
// values become native JSON values and referenced nodes are embedded where
// they are referenced.
package reconstruct

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
)

// ErrNotFound matches a *NotFoundError with errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError reports that no typed entity exists for ID.
type NotFoundError struct {
	ID rdf.IRI
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no entity with id '%s'", string(e.ID))
}

// Is makes errors.Is(err, ErrNotFound) true.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Selector runs SELECT queries against the working graph.
// backend.Backend satisfies it.
type Selector interface {
	Select(ctx context.Context, q sparql.Select) ([]sparql.Solution, error)
}

// Reconstructor reads documents through a Selector.
//
// Thread-safety: safe for concurrent use; it holds no mutable state.
type Reconstructor struct {
	src    Selector
	logger *slog.Logger
}

// Option configures a Reconstructor.
type Option func(*Reconstructor)

// WithLogger sets the logger for walk tracing.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconstructor) {
		r.logger = l
	}
}

// New creates a Reconstructor reading from src.
func New(src Selector, opts ...Option) *Reconstructor {
	r := &Reconstructor{src: src, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Node is one walked subject. Values hold resolved lists (*rdf.List) in
// place of chain heads; an rdf:nil object is an empty list.
type Node struct {
	ID     rdf.IRI
	Types  []rdf.IRI
	Values map[rdf.IRI][]rdf.Term
}

// Predicates returns the attribute predicates in sorted order. rdf:type is
// not an attribute.
func (n *Node) Predicates() []rdf.IRI {
	out := make([]rdf.IRI, 0, len(n.Values))
	for p := range n.Values {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// references returns the IRIs the node points at, list items included.
func (n *Node) references() []rdf.IRI {
	var out []rdf.IRI
	var collect func(t rdf.Term)
	collect = func(t rdf.Term) {
		switch v := t.(type) {
		case rdf.IRI:
			if v != rdf.RDFNil {
				out = append(out, v)
			}
		case *rdf.List:
			for _, item := range v.Items {
				collect(item)
			}
		}
	}
	for _, p := range n.Predicates() {
		for _, v := range n.Values[p] {
			collect(v)
		}
	}
	return out
}

// Subgraph is the result of a walk: every visited subject that has at
// least one triple, in visiting order.
type Subgraph struct {
	Root  rdf.IRI
	Nodes map[rdf.IRI]*Node
	Order []rdf.IRI
}

// Triples returns the subgraph as sorted triples, list chains expanded.
func (g *Subgraph) Triples() []rdf.Triple {
	var out []rdf.Triple
	for _, id := range g.Order {
		n := g.Nodes[id]
		for _, t := range n.Types {
			out = append(out, rdf.T(id, rdf.RDFType, t))
		}
		for _, p := range n.Predicates() {
			for _, v := range n.Values[p] {
				out = append(out, rdf.Expand(rdf.T(id, p, v))...)
			}
		}
	}
	out = rdf.Dedupe(out)
	rdf.SortTriples(out)
	return out
}

// Walk collects the subgraph reachable from root. Without deep only the
// root is fetched.
func (r *Reconstructor) Walk(ctx context.Context, root rdf.IRI, deep bool) (*Subgraph, error) {
	g := &Subgraph{Root: root, Nodes: make(map[rdf.IRI]*Node)}
	visited := map[rdf.IRI]bool{root: true}
	queue := []rdf.IRI{root}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		n, err := r.fetch(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", id, err)
		}
		if n == nil {
			continue
		}
		g.Nodes[id] = n
		g.Order = append(g.Order, id)

		if !deep {
			continue
		}
		for _, ref := range n.references() {
			if !visited[ref] {
				visited[ref] = true
				queue = append(queue, ref)
			}
		}
	}

	r.logger.DebugContext(ctx, "walked subgraph", "root", string(root), "deep", deep, "subjects", len(g.Order))
	return g, nil
}

// fetch reads the triples of one subject. It returns nil when the subject
// has none.
func (r *Reconstructor) fetch(ctx context.Context, id rdf.IRI) (*Node, error) {
	p, o := rdf.Variable("p"), rdf.Variable("o")
	rows, err := r.src.Select(ctx, sparql.Select{
		Vars:  []rdf.Variable{p, o},
		Where: []sparql.Element{sparql.Pattern(id, p, o)},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	n := &Node{ID: id, Values: make(map[rdf.IRI][]rdf.Term)}
	links := make(map[rdf.IRI]map[rdf.BlankNode][2]rdf.Term)
	for _, row := range rows {
		pred, ok := row["p"].(rdf.IRI)
		if !ok || row["o"] == nil {
			continue
		}
		obj := row["o"]

		if pred == rdf.RDFType {
			if t, isIRI := obj.(rdf.IRI); isIRI {
				n.Types = append(n.Types, t)
			}
			continue
		}

		table := links[pred]
		obj, table, err = r.resolve(ctx, id, pred, obj, table)
		if err != nil {
			return nil, err
		}
		links[pred] = table
		n.Values[pred] = append(n.Values[pred], obj)
	}

	slices.Sort(n.Types)
	for p := range n.Values {
		sortTerms(n.Values[p])
	}
	return n, nil
}

// Values returns the current values of (s, p) with list chains resolved,
// sorted by their N-Triples form.
func (r *Reconstructor) Values(ctx context.Context, s, p rdf.IRI) ([]rdf.Term, error) {
	o := rdf.Variable("o")
	rows, err := r.src.Select(ctx, sparql.Select{
		Vars:  []rdf.Variable{o},
		Where: []sparql.Element{sparql.Pattern(s, p, o)},
	})
	if err != nil {
		return nil, err
	}
	out := make([]rdf.Term, 0, len(rows))
	var table map[rdf.BlankNode][2]rdf.Term
	for _, row := range rows {
		if row["o"] == nil {
			continue
		}
		var obj rdf.Term
		obj, table, err = r.resolve(ctx, s, p, row["o"], table)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	sortTerms(out)
	return out, nil
}

// resolve turns a chain head into an *rdf.List and rdf:nil into an empty
// list. The link table of (s, p) is loaded on first use and returned for
// reuse. A broken chain leaves the blank node as is.
func (r *Reconstructor) resolve(ctx context.Context, s, p rdf.IRI, obj rdf.Term, table map[rdf.BlankNode][2]rdf.Term) (rdf.Term, map[rdf.BlankNode][2]rdf.Term, error) {
	switch v := obj.(type) {
	case rdf.BlankNode:
		if table == nil {
			rows, err := r.src.Select(ctx, sparql.ChainSelect(s, p))
			if err != nil {
				return nil, nil, fmt.Errorf("read lists of %s: %w", p, err)
			}
			table = sparql.LinkTable(rows)
		}
		if l, ok := rdf.ReadList(v, table); ok {
			return l, table, nil
		}
	case rdf.IRI:
		if v == rdf.RDFNil {
			return &rdf.List{}, table, nil
		}
	}
	return obj, table, nil
}

func sortTerms(ts []rdf.Term) {
	slices.SortFunc(ts, func(a, b rdf.Term) int {
		return strings.Compare(a.String(), b.String())
	})
}
