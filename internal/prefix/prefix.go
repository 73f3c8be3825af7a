// Package prefix assigns short prefixes to the namespaces found in a graph.
//
// A Resolver tries its Sources in order and falls back to a name derived
// from the namespace host. Resolved prefixes are cached per Resolver until
// Reset is called; there is no process-wide cache.
package prefix

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/triplegate/internal/rdf"
)

// Anonymous is the prefix given to namespaces with no host to derive a
// name from. Extract numbers them ns0, ns1, ...
const Anonymous = "ns"

// Source looks up the conventional prefix of a namespace.
type Source interface {
	Lookup(ctx context.Context, namespace string) (string, bool)
}

// Vocabulary is a fixed namespace -> prefix table.
type Vocabulary map[string]string

// Lookup implements Source.
func (v Vocabulary) Lookup(_ context.Context, namespace string) (string, bool) {
	p, ok := v[namespace]
	return p, ok
}

// Common lists the vocabularies every Resolver knows without configuration.
var Common = Vocabulary{
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#": "rdf",
	"http://xmlns.com/foaf/0.1/":                  "foaf",
	"http://purl.org/NET/c4dm/event.owl#":         "event",
	"http://datashapes.org/dash#":                 "dash",
	"http://www.w3.org/2004/02/skos/core#":        "skos",
	"http://purl.org/dc/terms/":                   "dc",
	"http://www.w3.org/2000/01/rdf-schema#":       "rdfs",
	"http://www.w3.org/2001/XMLSchema#":           "xsd",
}

// Resolver maps namespaces to prefixes.
//
// Thread-safety: safe for concurrent use via internal mutex.
type Resolver struct {
	sources []Source

	mu    sync.Mutex
	cache map[string]string
}

// NewResolver creates a Resolver consulting Common and then sources.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{
		sources: append([]Source{Common}, sources...),
		cache:   make(map[string]string),
	}
}

// Resolve returns the prefix for namespace.
func (r *Resolver) Resolve(ctx context.Context, namespace string) string {
	r.mu.Lock()
	if p, ok := r.cache[namespace]; ok {
		r.mu.Unlock()
		return p
	}
	r.mu.Unlock()

	p := ""
	for _, s := range r.sources {
		if found, ok := s.Lookup(ctx, namespace); ok && found != "" {
			p = found
			break
		}
	}
	if p == "" {
		p = Fallback(namespace)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[namespace]; ok {
		return cached
	}
	r.cache[namespace] = p
	return p
}

// Reset forgets every resolved prefix.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.cache)
}

// Cached returns the number of cached namespaces.
func (r *Resolver) Cached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

// Extract returns a prefix -> namespace map covering every IRI in triples
// that has a local name. Namespaces are resolved in order of first
// appearance; anonymous ones are numbered and a later namespace resolving
// to a taken prefix gets a numeric suffix.
func (r *Resolver) Extract(ctx context.Context, triples []rdf.Triple) map[string]string {
	var namespaces []string
	seen := make(map[string]bool)
	note := func(t rdf.Term) {
		iri, ok := t.(rdf.IRI)
		if !ok {
			return
		}
		if ns, _, ok := rdf.SplitNamespace(iri); ok && !seen[ns] {
			seen[ns] = true
			namespaces = append(namespaces, ns)
		}
	}
	for _, t := range rdf.ExpandAll(triples) {
		note(t.S)
		note(t.P)
		note(t.O)
		if l, ok := t.O.(rdf.Literal); ok && l.Lang == "" {
			note(l.Datatype)
		}
	}

	out := make(map[string]string, len(namespaces))
	anonymous := 0
	for _, ns := range namespaces {
		p := r.Resolve(ctx, ns)
		if p == Anonymous {
			p = Anonymous + strconv.Itoa(anonymous)
			anonymous++
		}
		if _, taken := out[p]; taken {
			base := p
			for i := 1; ; i++ {
				p = base + strconv.Itoa(i)
				if _, taken := out[p]; !taken {
					break
				}
			}
		}
		out[p] = ns
	}
	return out
}

// Fallback derives a prefix from the first host label and the path of
// namespace, with slashes turned into underscores and a trailing one
// dropped: http://example.com/people/ becomes example_people. Namespaces
// without a host yield Anonymous.
func Fallback(namespace string) string {
	u, err := url.Parse(namespace)
	if err != nil || u.Hostname() == "" {
		return Anonymous
	}
	label, _, _ := strings.Cut(u.Hostname(), ".")
	name := sanitize(label + strings.TrimSuffix(strings.ReplaceAll(u.Path, "/", "_"), "_"))
	if first, _ := utf8.DecodeRuneInString(name); !unicode.IsLetter(first) {
		return Anonymous
	}
	return name
}

// sanitize replaces characters a Turtle prefix name cannot hold.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, s)
}
