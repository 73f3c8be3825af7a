package rdf

import (
	"slices"
	"strings"
)

// Triple is a single (subject, predicate, object) fact or, when it contains
// variables, a triple pattern. Subject and predicate are never lists.
type Triple struct {
	S Term
	P Term
	O Term
}

// T is shorthand for constructing a Triple.
func T(s, p, o Term) Triple {
	return Triple{S: s, P: p, O: o}
}

// String returns the N-Triples statement form, terminated by " .".
func (t Triple) String() string {
	return t.S.String() + " " + t.P.String() + " " + t.O.String() + " ."
}

// IsGround reports whether the triple contains no variables.
func (t Triple) IsGround() bool {
	return IsGround(t.S) && IsGround(t.P) && IsGround(t.O)
}

// IsChain reports whether the triple is part of a list chain: its subject or
// object is an anonymous node, or its object is an unexpanded list.
func (t Triple) IsChain() bool {
	if _, ok := t.S.(BlankNode); ok {
		return true
	}
	switch t.O.(type) {
	case BlankNode, *List:
		return true
	}
	return false
}

// Expand returns the concrete triples for t. A triple whose object is a
// *List becomes the head triple followed by the chain; any other triple is
// returned unchanged.
func Expand(t Triple) []Triple {
	l, ok := t.O.(*List)
	if !ok {
		return []Triple{t}
	}
	out := []Triple{{S: t.S, P: t.P, O: l.Head()}}
	return append(out, l.Triples()...)
}

// ExpandAll expands every triple in ts.
func ExpandAll(ts []Triple) []Triple {
	var out []Triple
	for _, t := range ts {
		out = append(out, Expand(t)...)
	}
	return out
}

// SortTriples sorts triples by their N-Triples form for deterministic output.
func SortTriples(ts []Triple) {
	slices.SortFunc(ts, func(a, b Triple) int {
		return strings.Compare(a.String(), b.String())
	})
}

// Dedupe removes duplicate triples, keeping first occurrences in order.
func Dedupe(ts []Triple) []Triple {
	seen := make(map[string]struct{}, len(ts))
	out := ts[:0:0]
	for _, t := range ts {
		k := t.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}
