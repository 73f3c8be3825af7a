package reconstruct

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/triplegate/internal/jsonld"
	"github.com/roach88/triplegate/internal/rdf"
)

// Fetch returns the document rooted at id.
//
// The root must carry at least one rdf:type; otherwise the result is a
// *NotFoundError. In deep mode referenced subjects are embedded at every
// point of reference whether or not they are typed, except that a subject
// already being embedded on the current path is left as a {"@id"}
// reference. IRIs that are not the subject of any triple stay references.
// In shallow mode every reference is left as {"@id"}.
func (r *Reconstructor) Fetch(ctx context.Context, id rdf.IRI, c jsonld.Context, deep bool) (jsonld.Document, error) {
	g, err := r.Walk(ctx, id, deep)
	if err != nil {
		return nil, err
	}
	return Frame(g, c, deep)
}

// Frame builds the document for the root of g. Subjects in g that the root
// does not reach are left out.
func Frame(g *Subgraph, c jsonld.Context, deep bool) (jsonld.Document, error) {
	root, ok := g.Nodes[g.Root]
	if !ok || len(root.Types) == 0 {
		return nil, &NotFoundError{ID: g.Root}
	}
	f := framer{g: g, ctx: c, deep: deep, path: make(map[rdf.IRI]bool)}
	return f.node(root), nil
}

type framer struct {
	g    *Subgraph
	ctx  jsonld.Context
	deep bool
	path map[rdf.IRI]bool
}

func (f *framer) node(n *Node) jsonld.Document {
	f.path[n.ID] = true
	defer delete(f.path, n.ID)

	doc := jsonld.Document{jsonld.KeyID: string(n.ID)}
	switch len(n.Types) {
	case 0:
	case 1:
		doc[jsonld.KeyType] = f.ctx.CompactIRI(string(n.Types[0]))
	default:
		types := make([]any, len(n.Types))
		for i, t := range n.Types {
			types[i] = f.ctx.CompactIRI(string(t))
		}
		doc[jsonld.KeyType] = types
	}

	for _, p := range n.Predicates() {
		vals := n.Values[p]
		key := f.ctx.CompactIRI(string(p))
		if len(vals) == 1 {
			doc[key] = f.value(vals[0])
			continue
		}
		out := make([]any, len(vals))
		for i, v := range vals {
			out[i] = f.value(v)
		}
		doc[key] = out
	}
	return doc
}

func (f *framer) value(t rdf.Term) any {
	switch v := t.(type) {
	case rdf.IRI:
		if f.deep && !f.path[v] {
			if n, ok := f.g.Nodes[v]; ok {
				return f.node(n)
			}
		}
		return jsonld.Ref(string(v))
	case rdf.Literal:
		return Native(v)
	case *rdf.List:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = f.value(item)
		}
		return items
	case rdf.BlankNode:
		return jsonld.Ref(v.String())
	}
	return t.String()
}

var integerTypes = map[rdf.IRI]bool{
	rdf.XSDInteger:                          true,
	rdf.XSDInt:                              true,
	rdf.XSDLong:                             true,
	rdf.XSDShort:                            true,
	rdf.XSDByte:                             true,
	rdf.XSDNonNegativeInteger:               true,
	rdf.XSDPositiveInteger:                  true,
	rdf.XSDNegativeInteger:                  true,
	rdf.XSDUnsignedInt:                      true,
	rdf.XSDUnsignedLong:                     true,
	rdf.XSDNamespace + "nonPositiveInteger": true,
	rdf.XSDNamespace + "unsignedShort":      true,
	rdf.XSDNamespace + "unsignedByte":       true,
}

var floatTypes = map[rdf.IRI]bool{
	rdf.XSDFloat:  true,
	rdf.XSDDouble: true,
}

// Native converts a literal to its JSON value: integer datatypes to int64,
// xsd:boolean to bool, float and double to float64 and everything else to
// the lexical form. A lexical form that does not parse stays a string.
func Native(l rdf.Literal) any {
	lex := strings.TrimSpace(l.Lexical)
	switch {
	case integerTypes[l.Datatype]:
		if n, err := strconv.ParseInt(strings.TrimPrefix(lex, "+"), 10, 64); err == nil {
			return n
		}
	case l.Datatype == rdf.XSDBoolean:
		switch lex {
		case "true", "1":
			return true
		case "false", "0":
			return false
		}
	case floatTypes[l.Datatype]:
		if x, err := strconv.ParseFloat(lex, 64); err == nil && !math.IsInf(x, 0) && !math.IsNaN(x) {
			return x
		}
	}
	return l.Lexical
}
