// Package jsonld holds the linked-document conventions used for reads: an
// "@id" identity key, an "@type" key and one key per attribute, with keys
// compacted against a context.
//
// Only the subset the reconstructor needs is implemented: term and prefix
// definitions, "@vocab" compaction and canonical JSON output.
package jsonld

import (
	"fmt"
	"slices"
	"strings"
)

// Keywords.
const (
	KeyID      = "@id"
	KeyType    = "@type"
	KeyContext = "@context"
	KeyVocab   = "@vocab"
	KeyGraph   = "@graph"
)

// Context maps terms and prefixes to IRIs. Vocab is the default vocabulary
// that bare keys are resolved against.
type Context struct {
	Vocab string
	Terms map[string]string
}

// ParseContext reads a context from decoded JSON or YAML. It accepts the
// context object itself or a document wrapping it under "@context". Term
// definitions may be strings or objects with an "@id".
func ParseContext(v any) (Context, error) {
	if v == nil {
		return Context{}, nil
	}
	m, ok := toStringMap(v)
	if !ok {
		return Context{}, fmt.Errorf("parse context: expected object, got %T", v)
	}
	if inner, wrapped := m[KeyContext]; wrapped {
		return ParseContext(inner)
	}
	c := Context{Terms: make(map[string]string)}
	for k, raw := range m {
		switch {
		case k == KeyVocab:
			s, isString := raw.(string)
			if !isString {
				return Context{}, fmt.Errorf("parse context: @vocab must be a string")
			}
			c.Vocab = s
		case strings.HasPrefix(k, "@"):
			// @base, @language and other keywords do not affect compaction here.
		default:
			iri, err := termIRI(raw)
			if err != nil {
				return Context{}, fmt.Errorf("parse context: term %q: %w", k, err)
			}
			c.Terms[k] = iri
		}
	}
	return c, nil
}

func termIRI(raw any) (string, error) {
	switch def := raw.(type) {
	case string:
		return def, nil
	default:
		m, ok := toStringMap(raw)
		if !ok {
			return "", fmt.Errorf("unsupported definition %T", raw)
		}
		id, isString := m[KeyID].(string)
		if !isString {
			return "", fmt.Errorf("definition without @id")
		}
		return id, nil
	}
}

// toStringMap accepts both JSON-decoded and YAML-decoded objects.
func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

// IsZero reports whether the context defines nothing.
func (c Context) IsZero() bool {
	return c.Vocab == "" && len(c.Terms) == 0
}

// Map returns the context in document form.
func (c Context) Map() map[string]any {
	m := make(map[string]any, len(c.Terms)+1)
	for k, v := range c.Terms {
		m[k] = v
	}
	if c.Vocab != "" {
		m[KeyVocab] = c.Vocab
	}
	return m
}

// CompactIRI shortens an IRI for use as a key or type name. It prefers an
// exact term, then a name relative to the vocabulary, then prefix:local,
// and returns the IRI unchanged when nothing applies.
func (c Context) CompactIRI(iri string) string {
	var exact []string
	for term, v := range c.Terms {
		if v == iri {
			exact = append(exact, term)
		}
	}
	if len(exact) > 0 {
		slices.SortFunc(exact, func(a, b string) int {
			if len(a) != len(b) {
				return len(a) - len(b)
			}
			return strings.Compare(a, b)
		})
		return exact[0]
	}

	if c.Vocab != "" && strings.HasPrefix(iri, c.Vocab) {
		local := iri[len(c.Vocab):]
		if _, taken := c.Terms[local]; local != "" && !taken && !strings.ContainsAny(local, ":/#") {
			return local
		}
	}

	best := ""
	for term, ns := range c.Terms {
		if !strings.HasSuffix(ns, "/") && !strings.HasSuffix(ns, "#") {
			continue
		}
		if !strings.HasPrefix(iri, ns) || len(iri) == len(ns) {
			continue
		}
		if best == "" || len(ns) > len(c.Terms[best]) || len(ns) == len(c.Terms[best]) && term < best {
			best = term
		}
	}
	if best != "" {
		return best + ":" + iri[len(c.Terms[best]):]
	}
	return iri
}

// ExpandIRI is the inverse of CompactIRI for terms, vocabulary-relative
// names and prefixed names.
func (c Context) ExpandIRI(s string) string {
	if iri, ok := c.Terms[s]; ok {
		return iri
	}
	if prefix, local, ok := strings.Cut(s, ":"); ok {
		if ns, known := c.Terms[prefix]; known && !strings.HasPrefix(local, "//") {
			return ns + local
		}
		return s
	}
	if c.Vocab != "" {
		return c.Vocab + s
	}
	return s
}
