package sparql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/triplegate/internal/rdf"
)

// Renderer renders IR to SPARQL 1.1 text. Terms are always written in full
// (no prefixes, no relative IRIs).
//
// When Graph is set, reads are wrapped in GRAPH <g> { ... } and updates are
// prefixed with WITH <g>, so that every operation targets the working graph.
type Renderer struct {
	Graph rdf.IRI
}

// Render converts a query to text.
func (r Renderer) Render(q Query) (string, error) {
	if q == nil {
		return "", fmt.Errorf("render: %w: nil query", ErrUnsupportedQuery)
	}
	var b strings.Builder
	var err error
	switch query := q.(type) {
	case Ask:
		b.WriteString("ASK ")
		err = r.where(&b, query.Where)
	case *Ask:
		return r.Render(*query)
	case Select:
		err = r.renderSelect(&b, query)
	case *Select:
		return r.Render(*query)
	case Update:
		err = r.renderUpdate(&b, query)
	case *Update:
		return r.Render(*query)
	default:
		return "", fmt.Errorf("render: %w: %T", ErrUnsupportedQuery, q)
	}
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return b.String(), nil
}

// RenderUpdates renders a sequence of updates as one request. Operations
// are separated by ';' and applied in order by the endpoint.
func (r Renderer) RenderUpdates(us []Update) (string, error) {
	parts := make([]string, len(us))
	for i, u := range us {
		text, err := r.Render(u)
		if err != nil {
			return "", err
		}
		parts[i] = text
	}
	return strings.Join(parts, " ;\n"), nil
}

func (r Renderer) renderSelect(b *strings.Builder, q Select) error {
	b.WriteString("SELECT ")
	switch {
	case q.Count != nil:
		b.WriteString("(COUNT(")
		if q.Count.Distinct {
			b.WriteString("DISTINCT ")
		}
		if q.Count.Var == "" {
			b.WriteString("*")
		} else {
			b.WriteString(q.Count.Var.String())
		}
		b.WriteString(") AS " + q.Count.As.String() + ")")
	case len(q.Vars) == 0:
		if q.Distinct {
			b.WriteString("DISTINCT ")
		}
		b.WriteString("*")
	default:
		if q.Distinct {
			b.WriteString("DISTINCT ")
		}
		for i, v := range q.Vars {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(v.String())
		}
	}
	b.WriteByte(' ')
	if err := r.where(b, q.Where); err != nil {
		return err
	}
	if q.Limit > 0 {
		b.WriteString("\nLIMIT " + strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		b.WriteString("\nOFFSET " + strconv.Itoa(q.Offset))
	}
	return nil
}

func (r Renderer) renderUpdate(b *strings.Builder, u Update) error {
	for _, t := range u.Delete {
		if hasBlank(t) {
			return fmt.Errorf("%w: blank node in DELETE template %s", ErrUnsupportedQuery, t)
		}
	}
	insert := rdf.ExpandAll(u.Insert)

	if u.IsData() {
		b.WriteString("INSERT DATA {\n")
		if r.Graph != "" {
			b.WriteString("  GRAPH " + r.Graph.String() + " {\n")
			writeTriples(b, insert, "    ")
			b.WriteString("  }\n")
		} else {
			writeTriples(b, insert, "  ")
		}
		b.WriteString("}")
		return nil
	}

	if r.Graph != "" {
		b.WriteString("WITH " + r.Graph.String() + "\n")
	}
	if len(u.Delete) > 0 {
		b.WriteString("DELETE {\n")
		writeTriples(b, u.Delete, "  ")
		b.WriteString("}\n")
	}
	if len(insert) > 0 {
		b.WriteString("INSERT {\n")
		writeTriples(b, insert, "  ")
		b.WriteString("}\n")
	}
	b.WriteString("WHERE {\n")
	if err := writeElements(b, u.Where, "  "); err != nil {
		return err
	}
	b.WriteString("}")
	return nil
}

// where writes "WHERE { ... }", wrapped in the working graph when set.
func (r Renderer) where(b *strings.Builder, elems []Element) error {
	b.WriteString("WHERE {\n")
	indent := "  "
	if r.Graph != "" {
		b.WriteString("  GRAPH " + r.Graph.String() + " {\n")
		indent = "    "
	}
	if err := writeElements(b, elems, indent); err != nil {
		return err
	}
	if r.Graph != "" {
		b.WriteString("  }\n")
	}
	b.WriteString("}")
	return nil
}

func writeTriples(b *strings.Builder, ts []rdf.Triple, indent string) {
	for _, t := range ts {
		b.WriteString(indent + t.String() + "\n")
	}
}

func writeElements(b *strings.Builder, elems []Element, indent string) error {
	for _, e := range elems {
		switch el := e.(type) {
		case TriplePattern:
			if _, isList := el.O.(*rdf.List); isList {
				return fmt.Errorf("%w: list object in pattern", ErrUnsupportedQuery)
			}
			b.WriteString(indent + rdf.Triple(el).String() + "\n")
		case PathPattern:
			path, err := renderPath(el.Steps)
			if err != nil {
				return err
			}
			b.WriteString(indent + el.S.String() + " " + path + " " + el.O.String() + " .\n")
		case NotExists:
			b.WriteString(indent + "FILTER NOT EXISTS {\n")
			if err := writeElements(b, el.Elements, indent+"  "); err != nil {
				return err
			}
			b.WriteString(indent + "}\n")
		case Values:
			if err := writeValues(b, el, indent); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: element %T", ErrUnsupportedQuery, e)
		}
	}
	return nil
}

func renderPath(steps []PathStep) (string, error) {
	if len(steps) == 0 {
		return "", fmt.Errorf("%w: empty path", ErrUnsupportedQuery)
	}
	parts := make([]string, len(steps))
	for i, s := range steps {
		if len(s.Alternatives) == 0 {
			return "", fmt.Errorf("%w: empty path step", ErrUnsupportedQuery)
		}
		alts := make([]string, len(s.Alternatives))
		for j, p := range s.Alternatives {
			alts[j] = p.String()
		}
		part := strings.Join(alts, "|")
		if len(alts) > 1 {
			part = "(" + part + ")"
		}
		if s.Star {
			part += "*"
		}
		parts[i] = part
	}
	return strings.Join(parts, "/"), nil
}

func writeValues(b *strings.Builder, v Values, indent string) error {
	if len(v.Vars) == 0 {
		return fmt.Errorf("%w: VALUES without variables", ErrUnsupportedQuery)
	}
	single := len(v.Vars) == 1
	b.WriteString(indent + "VALUES ")
	if single {
		b.WriteString(v.Vars[0].String())
	} else {
		names := make([]string, len(v.Vars))
		for i, name := range v.Vars {
			names[i] = name.String()
		}
		b.WriteString("(" + strings.Join(names, " ") + ")")
	}
	b.WriteString(" {")
	for _, row := range v.Rows {
		if len(row) != len(v.Vars) {
			return fmt.Errorf("%w: VALUES row has %d terms, want %d", ErrUnsupportedQuery, len(row), len(v.Vars))
		}
		terms := make([]string, len(row))
		for i, t := range row {
			terms[i] = t.String()
		}
		if single {
			b.WriteString(" " + terms[0])
		} else {
			b.WriteString(" (" + strings.Join(terms, " ") + ")")
		}
	}
	b.WriteString(" }\n")
	return nil
}

func hasBlank(t rdf.Triple) bool {
	for _, term := range []rdf.Term{t.S, t.P, t.O} {
		switch term.(type) {
		case rdf.BlankNode, *rdf.List:
			return true
		}
	}
	return false
}
