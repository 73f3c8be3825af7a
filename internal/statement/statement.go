// Package statement turns attribute-level values into triples.
//
// A save operation carries (id, attribute, value, type tag). The tag decides
// the shape of the object:
//
//   - "URI": the value is an IRI reference
//   - "list": the value is a sequence of (value, tag) entries, built into a
//     list chain; entries may themselves be lists
//   - anything else: a typed literal whose datatype is the tag, resolved
//     against the well-known vocabulary first and used verbatim otherwise
//
// Construction is pure apart from blank node allocation, which is injected.
package statement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/triplegate/internal/rdf"
)

// Type tags with structural meaning.
const (
	TagURI  = "URI"
	TagList = "list"
)

// ErrMalformedValue is returned when a value does not fit its tag.
var ErrMalformedValue = errors.New("malformed value")

// Value is an untyped attribute value. Lexical holds scalar values; Items
// holds the entries of a "list" value.
type Value struct {
	Lexical string  `json:"value,omitempty" yaml:"value,omitempty"`
	Items   []Entry `json:"items,omitempty" yaml:"items,omitempty"`
}

// Entry is one element of a list value.
type Entry struct {
	Value Value  `json:"value" yaml:"value"`
	Tag   string `json:"type" yaml:"type"`
}

// Scalar wraps a lexical form.
func Scalar(lexical string) Value {
	return Value{Lexical: lexical}
}

// ListOf builds a list value from entries.
func ListOf(entries ...Entry) Value {
	if entries == nil {
		entries = []Entry{}
	}
	return Value{Items: entries}
}

// Item is shorthand for a scalar list entry.
func Item(lexical, tag string) Entry {
	return Entry{Value: Scalar(lexical), Tag: tag}
}

// Builder constructs triples. Blank nodes for list chains come from the
// allocator, so every list built by one Builder has its own nodes.
type Builder struct {
	alloc rdf.BlankNodeAllocator
}

// NewBuilder creates a Builder. A nil allocator gets a sequential one.
func NewBuilder(alloc rdf.BlankNodeAllocator) *Builder {
	if alloc == nil {
		alloc = rdf.NewSequentialBlankNodes("")
	}
	return &Builder{alloc: alloc}
}

// Build returns the triple (id, attr, object). For list values the object
// is an *rdf.List; rdf.Expand yields the head triple and the chain.
func (b *Builder) Build(id, attr rdf.IRI, v Value, tag string) (rdf.Triple, error) {
	obj, err := b.Object(v, tag)
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("build %s %s: %w", id, attr, err)
	}
	return rdf.T(id, attr, obj), nil
}

// Object returns the object term for a value and tag.
func (b *Builder) Object(v Value, tag string) (rdf.Term, error) {
	switch tag {
	case TagURI:
		if len(v.Items) > 0 {
			return nil, fmt.Errorf("%w: URI value with list items", ErrMalformedValue)
		}
		if !IsAbsoluteIRI(v.Lexical) {
			return nil, fmt.Errorf("%w: %q is not an absolute IRI", ErrMalformedValue, v.Lexical)
		}
		return rdf.IRI(v.Lexical), nil
	case TagList:
		if v.Lexical != "" {
			return nil, fmt.Errorf("%w: list value with lexical form %q", ErrMalformedValue, v.Lexical)
		}
		items := make([]rdf.Term, len(v.Items))
		for i, e := range v.Items {
			if e.Tag == "" {
				return nil, fmt.Errorf("%w: list entry %d has no type", ErrMalformedValue, i)
			}
			item, err := b.Object(e.Value, e.Tag)
			if err != nil {
				return nil, fmt.Errorf("list entry %d: %w", i, err)
			}
			items[i] = item
		}
		return rdf.NewList(b.alloc, items...), nil
	}

	if len(v.Items) > 0 {
		return nil, fmt.Errorf("%w: %s value with list items", ErrMalformedValue, tag)
	}
	dt, err := Datatype(tag)
	if err != nil {
		return nil, err
	}
	return rdf.NewLiteral(v.Lexical, dt), nil
}

// Datatype resolves a literal type tag. An empty tag means xsd:string.
func Datatype(tag string) (rdf.IRI, error) {
	if tag == "" {
		return rdf.XSDString, nil
	}
	if dt, ok := rdf.LookupDatatype(tag); ok {
		return dt, nil
	}
	if !IsAbsoluteIRI(tag) {
		return "", fmt.Errorf("%w: unknown datatype %q", ErrMalformedValue, tag)
	}
	return rdf.IRI(tag), nil
}

// IsAbsoluteIRI reports whether s has a scheme and no characters that are
// illegal inside an IRI reference.
func IsAbsoluteIRI(s string) bool {
	scheme, rest, ok := strings.Cut(s, ":")
	if !ok || scheme == "" || rest == "" {
		return false
	}
	for i, r := range scheme {
		alpha := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
		if i == 0 && !alpha || !alpha && !(r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return !strings.ContainsAny(s, " <>\"{}|\\^`\n\t")
}
