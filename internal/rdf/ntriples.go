package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// WriteNTriples writes triples in N-Triples syntax, one per line, in the
// given order. Triples with list objects are expanded first.
func WriteNTriples(w io.Writer, triples []Triple) error {
	bw := bufio.NewWriter(w)
	for _, t := range ExpandAll(triples) {
		if _, err := bw.WriteString(t.String() + "\n"); err != nil {
			return fmt.Errorf("write ntriples: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write ntriples: %w", err)
	}
	return nil
}

// ParseNTriples reads an N-Triples document. Blank lines and '#' comments
// are skipped.
func ParseNTriples(r io.Reader) ([]Triple, error) {
	var out []Triple
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		t, err := ParseTriple(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ntriples: %w", err)
	}
	return out, nil
}

// ParseTriple parses one N-Triples statement, with or without the final '.'.
func ParseTriple(text string) (Triple, error) {
	var terms [3]Term
	rest := strings.TrimSpace(text)
	for i := range terms {
		term, n, err := ReadTerm(rest)
		if err != nil {
			return Triple{}, err
		}
		terms[i] = term
		rest = strings.TrimSpace(rest[n:])
	}
	if rest != "" && rest != "." {
		return Triple{}, fmt.Errorf("%w: trailing %q", ErrMalformedTerm, rest)
	}
	return T(terms[0], terms[1], terms[2]), nil
}

// ParseTerm parses a single term in N-Triples syntax (or "?var").
func ParseTerm(text string) (Term, error) {
	text = strings.TrimSpace(text)
	t, n, err := ReadTerm(text)
	if err != nil {
		return nil, err
	}
	if n != len(text) {
		return nil, fmt.Errorf("%w: trailing %q", ErrMalformedTerm, text[n:])
	}
	return t, nil
}

// ReadTerm reads one term from the start of s and returns it together with
// the number of bytes consumed. Supported forms: <iri>, _:label,
// "lexical"(^^<datatype>|@lang)? and ?variable.
func ReadTerm(s string) (Term, int, error) {
	if s == "" {
		return nil, 0, fmt.Errorf("%w: empty input", ErrMalformedTerm)
	}
	switch s[0] {
	case '<':
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return nil, 0, fmt.Errorf("%w: unterminated IRI", ErrMalformedTerm)
		}
		return IRI(s[1:end]), end + 1, nil
	case '_':
		if !strings.HasPrefix(s, "_:") {
			return nil, 0, fmt.Errorf("%w: %q", ErrMalformedTerm, s)
		}
		n := 2 + nameLen(s[2:])
		if n == 2 {
			return nil, 0, fmt.Errorf("%w: empty blank node label", ErrMalformedTerm)
		}
		return BlankNode(s[2:n]), n, nil
	case '?', '$':
		n := 1 + nameLen(s[1:])
		if n == 1 {
			return nil, 0, fmt.Errorf("%w: empty variable name", ErrMalformedTerm)
		}
		return Variable(s[1:n]), n, nil
	case '"':
		return readLiteral(s)
	}
	return nil, 0, fmt.Errorf("%w: %q", ErrMalformedTerm, s)
}

func readLiteral(s string) (Term, int, error) {
	var b strings.Builder
	i := 1
	for {
		if i >= len(s) {
			return nil, 0, fmt.Errorf("%w: unterminated literal", ErrMalformedTerm)
		}
		c := s[i]
		if c == '"' {
			i++
			break
		}
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteRune(r)
			i += size
			continue
		}
		if i+1 >= len(s) {
			return nil, 0, fmt.Errorf("%w: dangling escape", ErrMalformedTerm)
		}
		switch esc := s[i+1]; esc {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '"', '\\', '\'':
			b.WriteByte(esc)
		case 'u', 'U':
			width := 4
			if esc == 'U' {
				width = 8
			}
			if i+2+width > len(s) {
				return nil, 0, fmt.Errorf("%w: short unicode escape", ErrMalformedTerm)
			}
			code, err := strconv.ParseUint(s[i+2:i+2+width], 16, 32)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: bad unicode escape", ErrMalformedTerm)
			}
			b.WriteRune(rune(code))
			i += width
		default:
			return nil, 0, fmt.Errorf("%w: unknown escape \\%c", ErrMalformedTerm, esc)
		}
		i += 2
	}
	lit := Literal{Lexical: b.String(), Datatype: XSDString}
	switch {
	case strings.HasPrefix(s[i:], "^^<"):
		end := strings.IndexByte(s[i+3:], '>')
		if end < 0 {
			return nil, 0, fmt.Errorf("%w: unterminated datatype", ErrMalformedTerm)
		}
		lit.Datatype = IRI(s[i+3 : i+3+end])
		i += 3 + end + 1
	case strings.HasPrefix(s[i:], "@"):
		n := 1 + langLen(s[i+1:])
		lit.Lang = s[i+1 : i+n]
		lit.Datatype = RDFLangString
		i += n
	}
	return lit, i, nil
}

func nameLen(s string) int {
	for i, r := range s {
		if !(r == '_' || r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return i
		}
	}
	return len(s)
}

func langLen(s string) int {
	for i, r := range s {
		if !(r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return i
		}
	}
	return len(s)
}
