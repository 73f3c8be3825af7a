package sparql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/triplegate/internal/rdf"
)

// ParseSelect parses the SELECT fragment accepted for raw record queries:
//
//	PREFIX p: <iri> ...
//	SELECT [DISTINCT] (?v ... | * | (COUNT([DISTINCT] ?v|*) AS ?c))
//	[WHERE] { group }
//	[LIMIT n] [OFFSET n]
//
// A group holds triple blocks (with ';' and ',' abbreviations and the
// keyword 'a'), FILTER NOT EXISTS { group } and VALUES blocks. Anything else
// is rejected with ErrUnsupportedQuery.
func ParseSelect(text string) (Select, error) {
	toks, err := tokenize(text)
	if err != nil {
		return Select{}, err
	}
	p := &parser{toks: toks, prefixes: map[string]string{}}
	q, err := p.query()
	if err != nil {
		return Select{}, err
	}
	return q, nil
}

type tokenKind int

const (
	tokWord tokenKind = iota + 1 // keywords, prefixed names, 'a', numbers
	tokIRI
	tokVar
	tokLiteral
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	term rdf.Term // set for tokIRI, tokVar, tokLiteral
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case unicode.IsSpace(rune(c)):
			i++
		case c == '#':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case strings.IndexByte("{}().;,*", c) >= 0:
			toks = append(toks, token{kind: tokPunct, text: string(c)})
			i++
		case c == '<':
			term, n, err := rdf.ReadTerm(s[i:])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnsupportedQuery, err)
			}
			toks = append(toks, token{kind: tokIRI, text: s[i : i+n], term: term})
			i += n
		case c == '?' || c == '$':
			term, n, err := rdf.ReadTerm(s[i:])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnsupportedQuery, err)
			}
			toks = append(toks, token{kind: tokVar, text: s[i : i+n], term: term})
			i += n
		case c == '"':
			term, n, err := readQueryLiteral(s[i:])
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokLiteral, text: s[i : i+n], term: term})
			i += n
		default:
			j := i
			for j < len(s) && !unicode.IsSpace(rune(s[j])) && strings.IndexByte("{}();,<\"", s[j]) < 0 {
				j++
			}
			word := s[i:j]
			// A trailing '.' ends a triple block rather than the name.
			for strings.HasSuffix(word, ".") && !isNumber(word) {
				word = word[:len(word)-1]
				j--
			}
			if word == "" {
				return nil, fmt.Errorf("%w: unexpected %q", ErrUnsupportedQuery, s[i:i+1])
			}
			toks = append(toks, token{kind: tokWord, text: word})
			i = j
		}
	}
	return toks, nil
}

// readQueryLiteral reads a literal whose datatype may be a prefixed name.
// Prefixed datatypes are resolved by the parser, so they are returned as a
// partial literal with the raw datatype text in Lang-free form.
func readQueryLiteral(s string) (rdf.Term, int, error) {
	if idx := closingQuote(s); idx > 0 && strings.HasPrefix(s[idx+1:], "^^") && !strings.HasPrefix(s[idx+1:], "^^<") {
		term, _, err := rdf.ReadTerm(s[:idx+1])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrUnsupportedQuery, err)
		}
		j := idx + 3
		for j < len(s) && !unicode.IsSpace(rune(s[j])) && strings.IndexByte("{}();,", s[j]) < 0 {
			j++
		}
		name := strings.TrimSuffix(s[idx+3:j], ".")
		lit := term.(rdf.Literal)
		lit.Datatype = rdf.IRI("pname:" + name)
		return lit, idx + 3 + len(name), nil
	}
	term, n, err := rdf.ReadTerm(s)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnsupportedQuery, err)
	}
	return term, n, nil
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

type parser struct {
	toks     []token
	pos      int
	prefixes map[string]string
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (token, error) {
	t, ok := p.peek()
	if !ok {
		return token{}, fmt.Errorf("%w: unexpected end of query", ErrUnsupportedQuery)
	}
	p.pos++
	return t, nil
}

func (p *parser) keyword(kw string) bool {
	t, ok := p.peek()
	if ok && t.kind == tokWord && strings.EqualFold(t.text, kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) punct(c string) bool {
	t, ok := p.peek()
	if ok && t.kind == tokPunct && t.text == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectPunct(c string) error {
	if !p.punct(c) {
		t, _ := p.peek()
		return fmt.Errorf("%w: expected %q, got %q", ErrUnsupportedQuery, c, t.text)
	}
	return nil
}

func (p *parser) expectKeyword(kw string) error {
	if !p.keyword(kw) {
		t, _ := p.peek()
		return fmt.Errorf("%w: expected %s, got %q", ErrUnsupportedQuery, kw, t.text)
	}
	return nil
}

func (p *parser) variable() (rdf.Variable, error) {
	t, err := p.next()
	if err != nil {
		return "", err
	}
	if t.kind != tokVar {
		return "", fmt.Errorf("%w: expected variable, got %q", ErrUnsupportedQuery, t.text)
	}
	return t.term.(rdf.Variable), nil
}

func (p *parser) query() (Select, error) {
	for p.keyword("PREFIX") {
		name, err := p.next()
		if err != nil {
			return Select{}, err
		}
		if name.kind != tokWord || !strings.HasSuffix(name.text, ":") {
			return Select{}, fmt.Errorf("%w: bad prefix declaration %q", ErrUnsupportedQuery, name.text)
		}
		iri, err := p.next()
		if err != nil {
			return Select{}, err
		}
		if iri.kind != tokIRI {
			return Select{}, fmt.Errorf("%w: bad prefix IRI %q", ErrUnsupportedQuery, iri.text)
		}
		p.prefixes[strings.TrimSuffix(name.text, ":")] = string(iri.term.(rdf.IRI))
	}

	if err := p.expectKeyword("SELECT"); err != nil {
		return Select{}, err
	}
	var q Select
	q.Distinct = p.keyword("DISTINCT")
	switch {
	case p.punct("*"):
	case p.punct("("):
		c, err := p.count()
		if err != nil {
			return Select{}, err
		}
		q.Count = c
	default:
		for {
			t, ok := p.peek()
			if !ok || t.kind != tokVar {
				break
			}
			p.pos++
			q.Vars = append(q.Vars, t.term.(rdf.Variable))
		}
		if len(q.Vars) == 0 {
			return Select{}, fmt.Errorf("%w: empty projection", ErrUnsupportedQuery)
		}
	}

	p.keyword("WHERE")
	where, err := p.group()
	if err != nil {
		return Select{}, err
	}
	q.Where = where

	for {
		switch {
		case p.keyword("LIMIT"):
			n, err := p.integer()
			if err != nil {
				return Select{}, err
			}
			q.Limit = n
		case p.keyword("OFFSET"):
			n, err := p.integer()
			if err != nil {
				return Select{}, err
			}
			q.Offset = n
		default:
			if t, ok := p.peek(); ok {
				return Select{}, fmt.Errorf("%w: unexpected %q", ErrUnsupportedQuery, t.text)
			}
			return q, nil
		}
	}
}

// count parses "COUNT([DISTINCT] ?v|*) AS ?c)" after the opening paren.
func (p *parser) count() (*Count, error) {
	if err := p.expectKeyword("COUNT"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	c := &Count{Distinct: p.keyword("DISTINCT")}
	if !p.punct("*") {
		v, err := p.variable()
		if err != nil {
			return nil, err
		}
		c.Var = v
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	as, err := p.variable()
	if err != nil {
		return nil, err
	}
	c.As = as
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *parser) integer() (int, error) {
	t, err := p.next()
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(t.text)
	if t.kind != tokWord || convErr != nil || n < 0 {
		return 0, fmt.Errorf("%w: expected integer, got %q", ErrUnsupportedQuery, t.text)
	}
	return n, nil
}

func (p *parser) group() ([]Element, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var elems []Element
	for {
		if p.punct("}") {
			return elems, nil
		}
		if p.punct(".") {
			continue
		}
		switch {
		case p.keyword("FILTER"):
			if err := p.expectKeyword("NOT"); err != nil {
				return nil, err
			}
			if err := p.expectKeyword("EXISTS"); err != nil {
				return nil, err
			}
			inner, err := p.group()
			if err != nil {
				return nil, err
			}
			elems = append(elems, NotExists{Elements: inner})
		case p.keyword("VALUES"):
			v, err := p.values()
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		default:
			block, err := p.triples()
			if err != nil {
				return nil, err
			}
			elems = append(elems, block...)
		}
	}
}

func (p *parser) values() (Values, error) {
	var v Values
	multi := p.punct("(")
	if multi {
		for !p.punct(")") {
			name, err := p.variable()
			if err != nil {
				return Values{}, err
			}
			v.Vars = append(v.Vars, name)
		}
	} else {
		name, err := p.variable()
		if err != nil {
			return Values{}, err
		}
		v.Vars = []rdf.Variable{name}
	}
	if err := p.expectPunct("{"); err != nil {
		return Values{}, err
	}
	for !p.punct("}") {
		if multi {
			if err := p.expectPunct("("); err != nil {
				return Values{}, err
			}
			var row []rdf.Term
			for !p.punct(")") {
				t, err := p.term(false)
				if err != nil {
					return Values{}, err
				}
				row = append(row, t)
			}
			v.Rows = append(v.Rows, row)
			continue
		}
		t, err := p.term(false)
		if err != nil {
			return Values{}, err
		}
		v.Rows = append(v.Rows, []rdf.Term{t})
	}
	return v, nil
}

// triples parses "s p o (, o)* (; p o (, o)*)*".
func (p *parser) triples() ([]Element, error) {
	s, err := p.term(true)
	if err != nil {
		return nil, err
	}
	var out []Element
	for {
		pred, err := p.verb()
		if err != nil {
			return nil, err
		}
		for {
			o, err := p.term(true)
			if err != nil {
				return nil, err
			}
			out = append(out, Pattern(s, pred, o))
			if !p.punct(",") {
				break
			}
		}
		if !p.punct(";") {
			return out, nil
		}
		if t, ok := p.peek(); ok && t.kind == tokPunct && (t.text == "." || t.text == "}") {
			return out, nil
		}
	}
}

func (p *parser) verb() (rdf.Term, error) {
	if p.keyword("a") {
		return rdf.RDFType, nil
	}
	t, err := p.term(true)
	if err != nil {
		return nil, err
	}
	switch t.(type) {
	case rdf.IRI, rdf.Variable:
		return t, nil
	}
	return nil, fmt.Errorf("%w: predicate %s", ErrUnsupportedQuery, t)
}

// term parses one RDF term. Variables are only allowed when vars is set.
func (p *parser) term(vars bool) (rdf.Term, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	switch t.kind {
	case tokIRI:
		return t.term, nil
	case tokVar:
		if !vars {
			return nil, fmt.Errorf("%w: variable %s not allowed here", ErrUnsupportedQuery, t.text)
		}
		return t.term, nil
	case tokLiteral:
		lit := t.term.(rdf.Literal)
		if name, ok := strings.CutPrefix(string(lit.Datatype), "pname:"); ok {
			iri, err := p.expand(name)
			if err != nil {
				return nil, err
			}
			lit.Datatype = iri
		}
		return lit, nil
	case tokWord:
		switch {
		case t.text == "true" || t.text == "false":
			return rdf.NewLiteral(t.text, rdf.XSDBoolean), nil
		case isInteger(t.text):
			return rdf.NewLiteral(t.text, rdf.XSDInteger), nil
		case isNumber(t.text) && strings.ContainsAny(t.text, "eE"):
			return rdf.NewLiteral(t.text, rdf.XSDDouble), nil
		case isNumber(t.text):
			return rdf.NewLiteral(t.text, rdf.XSDDecimal), nil
		case strings.HasPrefix(t.text, "_:"):
			return nil, fmt.Errorf("%w: blank node %s in query", ErrUnsupportedQuery, t.text)
		}
		return p.expand(t.text)
	}
	return nil, fmt.Errorf("%w: unexpected %q", ErrUnsupportedQuery, t.text)
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// expand resolves a prefixed name against the declared prefixes.
func (p *parser) expand(name string) (rdf.IRI, error) {
	prefix, local, ok := strings.Cut(name, ":")
	if !ok {
		return "", fmt.Errorf("%w: unexpected %q", ErrUnsupportedQuery, name)
	}
	ns, known := p.prefixes[prefix]
	if !known {
		return "", fmt.Errorf("%w: undeclared prefix %q", ErrUnsupportedQuery, prefix)
	}
	return rdf.IRI(ns + local), nil
}
