package sparql

import (
	"errors"

	"github.com/roach88/triplegate/internal/rdf"
)

// ErrUnsupportedQuery is returned for query text outside the supported
// fragment, and for IR that cannot be rendered or evaluated.
var ErrUnsupportedQuery = errors.New("unsupported query")

// Query is a sealed interface over Ask, Select and Update.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Element is one conjunct of a group graph pattern.
//
// Element types:
//   - TriplePattern: s p o
//   - PathPattern: s p1/p2* o
//   - NotExists: FILTER NOT EXISTS { ... }
//   - Values: VALUES (?a ?b) { (x y) ... }
type Element interface {
	elementNode() // Marker method - seals interface to this package
}

// TriplePattern matches a single triple. Any position may be a Variable.
type TriplePattern rdf.Triple

func (TriplePattern) elementNode() {}

// Pattern is shorthand for a TriplePattern.
func Pattern(s, p, o rdf.Term) TriplePattern {
	return TriplePattern{S: s, P: p, O: o}
}

// Patterns converts ground or templated triples to patterns.
func Patterns(ts []rdf.Triple) []Element {
	out := make([]Element, len(ts))
	for i, t := range ts {
		out[i] = TriplePattern(t)
	}
	return out
}

// PathPattern matches a sequence of steps between S and O.
//
// Example:
//
//	PathPattern{S: ?list, Steps: []PathStep{{Alternatives: {rdf:rest, rdf:first}, Star: true}}, O: ?z}
//
// renders as
//
//	?list (<rdf:rest>|<rdf:first>)* ?z .
type PathPattern struct {
	S     rdf.Term
	Steps []PathStep
	O     rdf.Term
}

func (PathPattern) elementNode() {}

// PathStep is one link in a sequence path. Alternatives holds one IRI for a
// plain predicate and several for an alternative path. Star allows zero or
// more repetitions.
type PathStep struct {
	Alternatives []rdf.IRI
	Star         bool
}

// NotExists filters out solutions for which Elements has a match.
type NotExists struct {
	Elements []Element
}

func (NotExists) elementNode() {}

// Values restricts solutions to the given rows. Each row has one term per
// variable in Vars.
type Values struct {
	Vars []rdf.Variable
	Rows [][]rdf.Term
}

func (Values) elementNode() {}

// ValuesOf is shorthand for a single-variable VALUES block.
func ValuesOf(v rdf.Variable, terms ...rdf.Term) Values {
	rows := make([][]rdf.Term, len(terms))
	for i, t := range terms {
		rows[i] = []rdf.Term{t}
	}
	return Values{Vars: []rdf.Variable{v}, Rows: rows}
}

// Ask is an existence check.
type Ask struct {
	Where []Element
}

func (Ask) queryNode() {}

// Select returns variable bindings.
//
// Vars lists the projected variables; nil projects every variable in
// Where (SELECT *). When Count is set the query returns a single row with
// the aggregate bound to Count.As and Vars is ignored.
type Select struct {
	Vars     []rdf.Variable
	Distinct bool
	Count    *Count
	Where    []Element
	Limit    int // 0 = no limit
	Offset   int
}

func (Select) queryNode() {}

// Count is a COUNT aggregate. An empty Var counts solutions (COUNT(*)).
type Count struct {
	Var      rdf.Variable
	Distinct bool
	As       rdf.Variable
}

// Update is a DELETE/INSERT/WHERE operation. An Update without Delete and
// Where renders as INSERT DATA.
//
// Insert may contain triples with *rdf.List objects; they are expanded to
// their chains. Delete must not contain blank nodes.
type Update struct {
	Delete []rdf.Triple
	Insert []rdf.Triple
	Where  []Element
}

func (Update) queryNode() {}

// IsData reports whether the update has neither a DELETE template nor a
// WHERE clause.
func (u Update) IsData() bool {
	return len(u.Delete) == 0 && len(u.Where) == 0
}

// Solution is one row of a Select result, keyed by variable name.
type Solution map[string]rdf.Term

// Vars returns the variables bound by elems, in order of first appearance.
// Variables that only occur inside NOT EXISTS are not bound and are left out.
func Vars(elems []Element) []rdf.Variable {
	var out []rdf.Variable
	seen := make(map[rdf.Variable]bool)
	add := func(ts ...rdf.Term) {
		for _, t := range ts {
			if v, ok := t.(rdf.Variable); ok && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	for _, e := range elems {
		switch el := e.(type) {
		case TriplePattern:
			add(el.S, el.P, el.O)
		case PathPattern:
			add(el.S, el.O)
		case Values:
			for _, v := range el.Vars {
				add(v)
			}
		}
	}
	return out
}
