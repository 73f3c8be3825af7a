package prefix

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplegate/internal/rdf"
)

func TestFallback(t *testing.T) {
	tests := []struct {
		namespace string
		want      string
	}{
		{"http://example.com/people/", "example_people"},
		{"http://example.com/", "example"},
		{"https://data.example.org/a/b/", "data_a_b"},
		{"http://example.com/ns#", "example_ns"},
		{"http://example.com/v1.2/", "example_v1_2"},
		{"urn:isbn:", Anonymous},
		{"http://123.example.com/", Anonymous},
		{"::not a uri", Anonymous},
	}
	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			assert.Equal(t, tt.want, Fallback(tt.namespace))
		})
	}
}

type countingSource struct {
	mu    sync.Mutex
	table map[string]string
	calls int
}

func (c *countingSource) Lookup(_ context.Context, ns string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	p, ok := c.table[ns]
	return p, ok
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{table: map[string]string{"http://schema.org/": "schema"}}
	r := NewResolver(src)

	assert.Equal(t, "foaf", r.Resolve(ctx, "http://xmlns.com/foaf/0.1/"))
	assert.Equal(t, "schema", r.Resolve(ctx, "http://schema.org/"))
	assert.Equal(t, "example_people", r.Resolve(ctx, "http://example.com/people/"))
	assert.Equal(t, 2, src.calls, "common vocabulary answers before other sources")

	r.Resolve(ctx, "http://schema.org/")
	assert.Equal(t, 2, src.calls, "second resolve is served from the cache")
	assert.Equal(t, 3, r.Cached())

	r.Reset()
	assert.Zero(t, r.Cached())
	r.Resolve(ctx, "http://schema.org/")
	assert.Equal(t, 3, src.calls)
}

func TestResolversDoNotShareState(t *testing.T) {
	ctx := context.Background()
	a := NewResolver()
	b := NewResolver()

	a.Resolve(ctx, "http://example.com/")
	assert.Equal(t, 1, a.Cached())
	assert.Zero(t, b.Cached())
}

func TestExtract(t *testing.T) {
	alice := rdf.IRI("http://example.com/people/alice")
	triples := []rdf.Triple{
		rdf.T(alice, rdf.RDFType, rdf.IRI("http://xmlns.com/foaf/0.1/Person")),
		rdf.T(alice, rdf.IRI("http://xmlns.com/foaf/0.1/age"), rdf.NewLiteral("42", rdf.XSDInteger)),
		rdf.T(alice, rdf.IRI("urn:x:knows"), rdf.IRI("urn:y:bob")),
		rdf.T(alice, rdf.IRI("http://example.com/people#nick"), rdf.NewLangLiteral("ali", "en")),
		rdf.T(alice, rdf.IRI("http://example.com/people"), rdf.IRI("http://example.com/")),
	}

	got := NewResolver().Extract(context.Background(), triples)

	want := map[string]string{
		"example_people":  "http://example.com/people/",
		"rdf":             rdf.RDFNamespace,
		"foaf":            "http://xmlns.com/foaf/0.1/",
		"xsd":             rdf.XSDNamespace,
		"example_people1": "http://example.com/people#",
		"example":         "http://example.com/",
	}
	assert.Equal(t, want, got)
}

func TestExtractNumbersAnonymousNamespaces(t *testing.T) {
	triples := []rdf.Triple{
		rdf.T(rdf.IRI("tag:a/s"), rdf.IRI("tag:b#p"), rdf.IRI("tag:a/o")),
	}

	got := NewResolver().Extract(context.Background(), triples)

	require.Len(t, got, 2)
	assert.Equal(t, "tag:a/", got["ns0"])
	assert.Equal(t, "tag:b#", got["ns1"])
}

func TestExtractEmpty(t *testing.T) {
	assert.Empty(t, NewResolver().Extract(context.Background(), nil))
}
