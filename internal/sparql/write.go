package sparql

import "github.com/roach88/triplegate/internal/rdf"

// Write is one merged batch of staged changes guarded by a WHERE pattern.
// Delete may hold templates with variables bound by Where. Insert holds
// ground triples whose objects may be lists.
type Write struct {
	Delete []rdf.Triple
	Insert []rdf.Triple
	Where  []Element
}

// IsEmpty reports whether the write stages nothing.
func (w Write) IsEmpty() bool {
	return len(w.Delete) == 0 && len(w.Insert) == 0
}

// Guard returns the pre-check for the write.
func (w Write) Guard() Ask {
	return Ask{Where: w.Where}
}

// HasChains reports whether any insertion is part of a list chain.
func (w Write) HasChains() bool {
	_, chain := Partition(w.Insert)
	return len(chain) > 0
}

// Partition expands ts and splits the result into plain triples and list
// chain triples (a head triple pointing at a chain node counts as chain).
func Partition(ts []rdf.Triple) (plain, chain []rdf.Triple) {
	for _, t := range rdf.ExpandAll(ts) {
		if t.IsChain() {
			chain = append(chain, t)
		} else {
			plain = append(plain, t)
		}
	}
	return plain, chain
}

// Statements returns the update statements for the write.
//
// Without chain insertions this is a single DELETE/INSERT/WHERE. Otherwise
// it returns two statements:
//
//	DELETE { deletions } INSERT { plain + marker } WHERE { guard }
//	DELETE { marker } INSERT { chain } WHERE { marker }
//
// The chain is instantiated once because the second WHERE has exactly one
// solution, and only when the first statement's guard matched.
func (w Write) Statements(marker rdf.Triple) []Update {
	plain, chain := Partition(w.Insert)
	if len(chain) == 0 {
		return []Update{{Delete: w.Delete, Insert: plain, Where: w.Where}}
	}
	first := Update{
		Delete: w.Delete,
		Insert: append(plain, marker),
		Where:  w.Where,
	}
	locked := []rdf.Triple{marker}
	second := Update{
		Delete: locked,
		Insert: chain,
		Where:  Patterns(locked),
	}
	return []Update{first, second}
}

// AnyTriple is the pattern "?s ?p ?o". It anchors write guards that consist
// only of filters; the working graph therefore always holds at least one
// triple.
func AnyTriple() TriplePattern {
	return Pattern(rdf.Variable("s"), rdf.Variable("p"), rdf.Variable("o"))
}

// SubjectAbsent is the guard requiring that id is not the subject of any
// triple.
func SubjectAbsent(id rdf.IRI) NotExists {
	return NotExists{Elements: []Element{Pattern(id, rdf.Variable("b"), rdf.Variable("c"))}}
}

// ChainPath follows rdf:rest and rdf:first links from a list head, reaching
// every node of the list and of lists nested in it.
func ChainPath() []PathStep {
	return []PathStep{{Alternatives: []rdf.IRI{rdf.RDFRest, rdf.RDFFirst}, Star: true}}
}

// DeleteValue returns the deletion template and any extra WHERE elements
// needed to remove the current value o of (s, p). A list value removes the
// head triple and every chain node; suffix keeps its variables distinct
// from those of other list deletions in the same write.
func DeleteValue(s, p rdf.IRI, o rdf.Term, suffix string) ([]rdf.Triple, []Element) {
	l, isList := o.(*rdf.List)
	if !isList {
		return []rdf.Triple{rdf.T(s, p, o)}, nil
	}
	if l.Len() == 0 {
		return []rdf.Triple{rdf.T(s, p, rdf.RDFNil)}, nil
	}
	list := rdf.Variable("list_" + suffix)
	z := rdf.Variable("z_" + suffix)
	head := rdf.Variable("head_" + suffix)
	tail := rdf.Variable("tail_" + suffix)
	del := []rdf.Triple{
		rdf.T(z, rdf.RDFFirst, head),
		rdf.T(z, rdf.RDFRest, tail),
		rdf.T(s, p, list),
	}
	where := []Element{
		Pattern(s, p, list),
		PathPattern{S: list, Steps: ChainPath(), O: z},
	}
	return del, append(where, Patterns(del[:2])...)
}

// ChainSelect reads every list hanging off (s, p): one row per chain node
// with the list head, the node and its first/rest links.
func ChainSelect(s, p rdf.Term) Select {
	list, z, first, rest := rdf.Variable("list"), rdf.Variable("z"), rdf.Variable("first"), rdf.Variable("rest")
	return Select{
		Vars: []rdf.Variable{list, z, first, rest},
		Where: []Element{
			Pattern(s, p, list),
			PathPattern{S: list, Steps: ChainPath(), O: z},
			Pattern(z, rdf.RDFFirst, first),
			Pattern(z, rdf.RDFRest, rest),
		},
	}
}

// LinkTable collects the first/rest links of ChainSelect rows, keyed by
// chain node, for rdf.ReadList.
func LinkTable(rows []Solution) map[rdf.BlankNode][2]rdf.Term {
	links := make(map[rdf.BlankNode][2]rdf.Term, len(rows))
	for _, row := range rows {
		node, ok := row["z"].(rdf.BlankNode)
		if !ok || row["first"] == nil || row["rest"] == nil {
			continue
		}
		links[node] = [2]rdf.Term{row["first"], row["rest"]}
	}
	return links
}
