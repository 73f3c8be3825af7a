package rdf

import (
	"errors"
	"strings"
)

// ErrMalformedTerm is returned when text cannot be read as a term.
var ErrMalformedTerm = errors.New("malformed term")

// Term is a sealed interface over the node kinds of a triple.
// Only IRI, Literal, BlankNode, Variable and *List implement it.
type Term interface {
	// String returns the N-Triples form of the term. For *List it returns a
	// structural key that ignores node labels.
	String() string
	term() // Sealed
}

// IRI is an absolute IRI reference. It is stored without angle brackets.
type IRI string

func (IRI) term() {}

// String returns the IRI wrapped in angle brackets.
func (i IRI) String() string {
	return "<" + string(i) + ">"
}

// Literal is a typed literal. Lang is only set for rdf:langString values.
type Literal struct {
	Lexical  string
	Datatype IRI
	Lang     string
}

func (Literal) term() {}

// String returns the N-Triples form, always carrying an explicit datatype
// unless the literal is language tagged.
func (l Literal) String() string {
	var b strings.Builder
	b.WriteByte('"')
	b.WriteString(EscapeString(l.Lexical))
	b.WriteByte('"')
	switch {
	case l.Lang != "":
		b.WriteByte('@')
		b.WriteString(l.Lang)
	case l.Datatype != "":
		b.WriteString("^^")
		b.WriteString(l.Datatype.String())
	default:
		b.WriteString("^^<" + string(XSDString) + ">")
	}
	return b.String()
}

// NewLiteral creates a literal with the given datatype.
// An empty datatype means xsd:string.
func NewLiteral(lexical string, datatype IRI) Literal {
	if datatype == "" {
		datatype = XSDString
	}
	return Literal{Lexical: lexical, Datatype: datatype}
}

// NewLangLiteral creates a language-tagged string.
func NewLangLiteral(lexical, lang string) Literal {
	return Literal{Lexical: lexical, Datatype: RDFLangString, Lang: lang}
}

// BlankNode is an anonymous node identified by a label local to one document
// or one update template.
type BlankNode string

func (BlankNode) term() {}

// String returns the "_:label" form.
func (b BlankNode) String() string {
	return "_:" + string(b)
}

// Variable is a query variable. It only appears inside query patterns.
type Variable string

func (Variable) term() {}

// String returns the "?name" form.
func (v Variable) String() string {
	return "?" + string(v)
}

// EscapeString escapes a lexical form for use between double quotes.
func EscapeString(s string) string {
	if !strings.ContainsAny(s, "\\\"\n\r\t") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsGround reports whether t contains no variables.
func IsGround(t Term) bool {
	_, isVar := t.(Variable)
	return !isVar
}

// Equal compares two terms structurally. Lists compare by items, not labels.
func Equal(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}
