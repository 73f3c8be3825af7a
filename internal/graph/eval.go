package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
)

// eval extends every seed solution through the conjunction elems.
//
// Elements are joined in a greedy order: VALUES blocks first, then the
// pattern with the most bound positions given the variables bound so far,
// then NOT EXISTS filters once every outer variable is bound.
func (g *Graph) eval(ctx context.Context, elems []sparql.Element, seed []sparql.Solution) ([]sparql.Solution, error) {
	boundVars := make(map[string]bool)
	if len(seed) > 0 {
		for v := range seed[0] {
			boundVars[v] = true
		}
	}

	sols := seed
	for _, el := range order(elems, boundVars) {
		if len(sols) == 0 {
			return nil, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch e := el.(type) {
		case sparql.TriplePattern:
			sols, err = g.joinTriple(ctx, sols, e)
		case sparql.PathPattern:
			sols, err = g.joinPath(ctx, sols, e)
		case sparql.Values:
			sols = joinValues(sols, e)
		case sparql.NotExists:
			sols, err = g.filterNotExists(ctx, sols, e)
		default:
			err = fmt.Errorf("%w: element %T", sparql.ErrUnsupportedQuery, el)
		}
		if err != nil {
			return nil, err
		}
	}
	return sols, nil
}

func order(elems []sparql.Element, boundVars map[string]bool) []sparql.Element {
	bound := maps.Clone(boundVars)
	out := make([]sparql.Element, 0, len(elems))
	var patterns, filters []sparql.Element

	for _, el := range elems {
		switch e := el.(type) {
		case sparql.Values:
			out = append(out, e)
			for _, v := range e.Vars {
				bound[string(v)] = true
			}
		case sparql.NotExists:
			filters = append(filters, e)
		default:
			patterns = append(patterns, e)
		}
	}

	for len(patterns) > 0 {
		best, bestScore := 0, -2
		for i, el := range patterns {
			if s := score(el, bound); s > bestScore {
				best, bestScore = i, s
			}
		}
		el := patterns[best]
		patterns = append(patterns[:best], patterns[best+1:]...)
		out = append(out, el)
		for _, v := range sparql.Vars([]sparql.Element{el}) {
			bound[string(v)] = true
		}
	}
	return append(out, filters...)
}

// score counts the positions of a pattern that are fixed before it runs.
// A path with neither end fixed must enumerate every node and scores -1.
func score(el sparql.Element, bound map[string]bool) int {
	fixed := func(t rdf.Term) int {
		if v, isVar := t.(rdf.Variable); isVar && !bound[string(v)] {
			return 0
		}
		return 1
	}
	switch e := el.(type) {
	case sparql.TriplePattern:
		return fixed(e.S) + fixed(e.P) + fixed(e.O)
	case sparql.PathPattern:
		n := fixed(e.S) + fixed(e.O)
		if n == 0 {
			return -1
		}
		return n
	}
	return 0
}

func (g *Graph) joinTriple(ctx context.Context, sols []sparql.Solution, tp sparql.TriplePattern) ([]sparql.Solution, error) {
	var out []sparql.Solution
	for _, sol := range sols {
		s, p, o := subst(tp.S, sol), subst(tp.P, sol), subst(tp.O, sol)
		matched, err := g.store.Match(ctx, s, p, o)
		if err != nil {
			return nil, fmt.Errorf("match %s %s %s: %w", s, p, o, err)
		}
		for _, t := range matched {
			ext := maps.Clone(sol)
			if bindTerm(ext, s, t.S) && bindTerm(ext, p, t.P) && bindTerm(ext, o, t.O) {
				out = append(out, ext)
			}
		}
	}
	return out, nil
}

func (g *Graph) joinPath(ctx context.Context, sols []sparql.Solution, pp sparql.PathPattern) ([]sparql.Solution, error) {
	var out []sparql.Solution
	for _, sol := range sols {
		s, o := subst(pp.S, sol), subst(pp.O, sol)
		switch {
		case bound(s):
			ends, err := g.walk(ctx, []rdf.Term{s}, pp.Steps, true)
			if err != nil {
				return nil, err
			}
			for _, end := range ends {
				ext := maps.Clone(sol)
				if bindTerm(ext, o, end) {
					out = append(out, ext)
				}
			}
		case bound(o):
			starts, err := g.walk(ctx, []rdf.Term{o}, pp.Steps, false)
			if err != nil {
				return nil, err
			}
			for _, start := range starts {
				ext := maps.Clone(sol)
				if bindTerm(ext, s, start) {
					out = append(out, ext)
				}
			}
		default:
			nodes, err := g.nodes(ctx)
			if err != nil {
				return nil, err
			}
			for _, n := range nodes {
				ends, err := g.walk(ctx, []rdf.Term{n}, pp.Steps, true)
				if err != nil {
					return nil, err
				}
				for _, end := range ends {
					ext := maps.Clone(sol)
					if bindTerm(ext, s, n) && bindTerm(ext, o, end) {
						out = append(out, ext)
					}
				}
			}
		}
	}
	return out, nil
}

// walk follows steps from the given nodes, forwards (subject to object) or
// backwards, and returns the distinct nodes reached.
func (g *Graph) walk(ctx context.Context, from []rdf.Term, steps []sparql.PathStep, forward bool) ([]rdf.Term, error) {
	cur := from
	for i := range steps {
		step := steps[i]
		if !forward {
			step = steps[len(steps)-1-i]
		}
		var err error
		if step.Star {
			cur, err = g.closure(ctx, cur, step.Alternatives, forward)
		} else {
			cur, err = g.neighbours(ctx, cur, step.Alternatives, forward)
		}
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (g *Graph) neighbours(ctx context.Context, nodes []rdf.Term, preds []rdf.IRI, forward bool) ([]rdf.Term, error) {
	var out []rdf.Term
	seen := make(map[string]bool)
	for _, n := range nodes {
		for _, p := range preds {
			var matched []rdf.Triple
			var err error
			if forward {
				matched, err = g.store.Match(ctx, n, p, nil)
			} else {
				matched, err = g.store.Match(ctx, nil, p, n)
			}
			if err != nil {
				return nil, fmt.Errorf("follow %s: %w", p, err)
			}
			for _, t := range matched {
				next := t.O
				if !forward {
					next = t.S
				}
				if k := next.String(); !seen[k] {
					seen[k] = true
					out = append(out, next)
				}
			}
		}
	}
	return out, nil
}

// closure is the zero-or-more repetition of one step: every start node
// plus everything reachable from it.
func (g *Graph) closure(ctx context.Context, start []rdf.Term, preds []rdf.IRI, forward bool) ([]rdf.Term, error) {
	seen := make(map[string]bool, len(start))
	var out []rdf.Term
	frontier := make([]rdf.Term, 0, len(start))
	for _, n := range start {
		if k := n.String(); !seen[k] {
			seen[k] = true
			out = append(out, n)
			frontier = append(frontier, n)
		}
	}
	for len(frontier) > 0 {
		next, err := g.neighbours(ctx, frontier, preds, forward)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, n := range next {
			if k := n.String(); !seen[k] {
				seen[k] = true
				out = append(out, n)
				frontier = append(frontier, n)
			}
		}
	}
	return out, nil
}

// nodes returns every subject and object in the graph.
func (g *Graph) nodes(ctx context.Context) ([]rdf.Term, error) {
	all, err := g.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read triples: %w", err)
	}
	seen := make(map[string]bool)
	var out []rdf.Term
	for _, t := range all {
		for _, n := range []rdf.Term{t.S, t.O} {
			if k := n.String(); !seen[k] {
				seen[k] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func joinValues(sols []sparql.Solution, v sparql.Values) []sparql.Solution {
	var out []sparql.Solution
	for _, sol := range sols {
		for _, row := range v.Rows {
			ext := maps.Clone(sol)
			ok := true
			for i, name := range v.Vars {
				if i >= len(row) || row[i] == nil {
					continue
				}
				if !bindTerm(ext, name, row[i]) {
					ok = false
					break
				}
			}
			if ok {
				out = append(out, ext)
			}
		}
	}
	return out
}

func (g *Graph) filterNotExists(ctx context.Context, sols []sparql.Solution, ne sparql.NotExists) ([]sparql.Solution, error) {
	var out []sparql.Solution
	for _, sol := range sols {
		inner, err := g.eval(ctx, ne.Elements, []sparql.Solution{sol})
		if err != nil {
			return nil, err
		}
		if len(inner) == 0 {
			out = append(out, sol)
		}
	}
	return out, nil
}

func (g *Graph) selectLocked(ctx context.Context, q sparql.Select) ([]sparql.Solution, error) {
	sols, err := g.eval(ctx, q.Where, []sparql.Solution{{}})
	if err != nil {
		return nil, fmt.Errorf("evaluate select: %w", err)
	}

	if q.Count != nil {
		n := countSolutions(sols, q.Count)
		return []sparql.Solution{{
			string(q.Count.As): rdf.NewLiteral(strconv.Itoa(n), rdf.XSDInteger),
		}}, nil
	}

	vars := q.Vars
	if len(vars) == 0 {
		vars = sparql.Vars(q.Where)
	}
	out := make([]sparql.Solution, 0, len(sols))
	seen := make(map[string]bool)
	for _, sol := range sols {
		row := make(sparql.Solution, len(vars))
		for _, v := range vars {
			if t, ok := sol[string(v)]; ok {
				row[string(v)] = t
			}
		}
		if q.Distinct {
			k := rowKey(row, vars)
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		out = append(out, row)
	}

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []sparql.Solution{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func countSolutions(sols []sparql.Solution, c *sparql.Count) int {
	if c.Var == "" && !c.Distinct {
		return len(sols)
	}
	seen := make(map[string]bool)
	n := 0
	for _, sol := range sols {
		var k string
		if c.Var == "" {
			k = solutionKey(sol)
		} else {
			t, ok := sol[string(c.Var)]
			if !ok {
				continue
			}
			k = t.String()
		}
		if c.Distinct {
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		n++
	}
	return n
}

// instantiate evaluates an update's WHERE clause and returns the ground
// triples to delete and insert.
func (g *Graph) instantiate(ctx context.Context, u sparql.Update) (del, ins []rdf.Triple, err error) {
	insert := rdf.ExpandAll(u.Insert)
	if u.IsData() {
		fresh := make(map[rdf.BlankNode]rdf.BlankNode)
		for _, t := range insert {
			if it, ok := g.ground(t, nil, fresh); ok {
				ins = append(ins, it)
			}
		}
		return nil, rdf.Dedupe(ins), nil
	}

	sols, err := g.eval(ctx, u.Where, []sparql.Solution{{}})
	if err != nil {
		return nil, nil, err
	}
	for _, sol := range sols {
		for _, t := range u.Delete {
			if dt, ok := g.ground(t, sol, nil); ok {
				del = append(del, dt)
			}
		}
		fresh := make(map[rdf.BlankNode]rdf.BlankNode)
		for _, t := range insert {
			if it, ok := g.ground(t, sol, fresh); ok {
				ins = append(ins, it)
			}
		}
	}
	return rdf.Dedupe(del), rdf.Dedupe(ins), nil
}

// ground instantiates a template triple. Triples with an unbound variable
// or an ill-formed position are dropped. When fresh is non-nil, template
// blank nodes are relabelled through it.
func (g *Graph) ground(t rdf.Triple, sol sparql.Solution, fresh map[rdf.BlankNode]rdf.BlankNode) (rdf.Triple, bool) {
	var pos [3]rdf.Term
	for i, term := range [3]rdf.Term{t.S, t.P, t.O} {
		switch v := term.(type) {
		case rdf.Variable:
			val, ok := sol[string(v)]
			if !ok {
				return rdf.Triple{}, false
			}
			pos[i] = val
		case rdf.BlankNode:
			if fresh == nil {
				pos[i] = v
				continue
			}
			label, ok := fresh[v]
			if !ok {
				label = g.blanks.NewBlankNode()
				fresh[v] = label
			}
			pos[i] = label
		default:
			pos[i] = term
		}
	}
	if _, isLit := pos[0].(rdf.Literal); isLit {
		return rdf.Triple{}, false
	}
	if _, isIRI := pos[1].(rdf.IRI); !isIRI {
		return rdf.Triple{}, false
	}
	return rdf.T(pos[0], pos[1], pos[2]), true
}

// subst replaces a bound variable with its value. Unbound variables are
// returned unchanged and act as wildcards.
func subst(t rdf.Term, sol sparql.Solution) rdf.Term {
	if v, isVar := t.(rdf.Variable); isVar {
		if val, ok := sol[string(v)]; ok {
			return val
		}
	}
	return t
}

// bindTerm binds pattern to value in sol. A constant pattern must equal
// value; a variable must be unbound or already bound to value.
func bindTerm(sol sparql.Solution, pattern, value rdf.Term) bool {
	v, isVar := pattern.(rdf.Variable)
	if !isVar {
		return pattern.String() == value.String()
	}
	if cur, ok := sol[string(v)]; ok {
		return cur.String() == value.String()
	}
	sol[string(v)] = value
	return true
}

func rowKey(row sparql.Solution, vars []rdf.Variable) string {
	var b strings.Builder
	for _, v := range vars {
		if t, ok := row[string(v)]; ok {
			b.WriteString(t.String())
		}
		b.WriteByte(0)
	}
	return b.String()
}

func solutionKey(sol sparql.Solution) string {
	vars := make([]rdf.Variable, 0, len(sol))
	for k := range sol {
		vars = append(vars, rdf.Variable(k))
	}
	slices.Sort(vars)
	return rowKey(sol, vars)
}
