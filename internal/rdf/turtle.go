package rdf

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
)

// WriteTurtle writes triples as Turtle, using prefixes (prefix -> namespace)
// to abbreviate IRIs. Statements are grouped by subject in input order.
func WriteTurtle(w io.Writer, triples []Triple, prefixes map[string]string) error {
	bw := bufio.NewWriter(w)

	names := make([]string, 0, len(prefixes))
	for p := range prefixes {
		names = append(names, p)
	}
	slices.Sort(names)
	for _, p := range names {
		fmt.Fprintf(bw, "@prefix %s: <%s> .\n", p, prefixes[p])
	}
	if len(names) > 0 {
		bw.WriteString("\n")
	}

	var current Term
	for _, t := range ExpandAll(triples) {
		if current != nil && Equal(current, t.S) {
			fmt.Fprintf(bw, " ;\n    %s %s", turtleTerm(t.P, prefixes), turtleTerm(t.O, prefixes))
			continue
		}
		if current != nil {
			bw.WriteString(" .\n")
		}
		current = t.S
		fmt.Fprintf(bw, "%s %s %s", turtleTerm(t.S, prefixes), turtleTerm(t.P, prefixes), turtleTerm(t.O, prefixes))
	}
	if current != nil {
		bw.WriteString(" .\n")
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write turtle: %w", err)
	}
	return nil
}

func turtleTerm(t Term, prefixes map[string]string) string {
	switch v := t.(type) {
	case IRI:
		if v == RDFType {
			return "a"
		}
		return abbreviate(v, prefixes)
	case Literal:
		if v.Lang != "" || v.Datatype == XSDString || v.Datatype == "" {
			if v.Lang != "" {
				return v.String()
			}
			return `"` + EscapeString(v.Lexical) + `"`
		}
		return `"` + EscapeString(v.Lexical) + `"^^` + abbreviate(v.Datatype, prefixes)
	default:
		return t.String()
	}
}

// abbreviate returns prefix:local when a prefix covers the IRI and the local
// part is a plain name.
func abbreviate(iri IRI, prefixes map[string]string) string {
	best := ""
	for p, ns := range prefixes {
		if !strings.HasPrefix(string(iri), ns) {
			continue
		}
		local := string(iri)[len(ns):]
		if local == "" || nameLen(local) != len(local) {
			continue
		}
		if best == "" || len(ns) > len(prefixes[best]) || len(ns) == len(prefixes[best]) && p < best {
			best = p
		}
	}
	if best == "" {
		return iri.String()
	}
	return best + ":" + string(iri)[len(prefixes[best]):]
}
