package reconstruct

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplegate/internal/graph"
	"github.com/roach88/triplegate/internal/jsonld"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
)

const ex = "https://example.com/"

var (
	alice  = rdf.IRI(ex + "alice")
	bob    = rdf.IRI(ex + "bob")
	carol  = rdf.IRI(ex + "carol")
	person = rdf.IRI(ex + "Person")
	name   = rdf.IRI(ex + "name")
	age    = rdf.IRI(ex + "age")
	knows  = rdf.IRI(ex + "knows")
	tags   = rdf.IRI(ex + "tags")
	vocab  = jsonld.Context{Vocab: ex}
)

func str(s string) rdf.Literal { return rdf.NewLiteral(s, rdf.XSDString) }

// countingSelector counts the queries sent to the wrapped graph.
type countingSelector struct {
	Selector
	n atomic.Int32
}

func (c *countingSelector) Select(ctx context.Context, q sparql.Select) ([]sparql.Solution, error) {
	c.n.Add(1)
	return c.Selector.Select(ctx, q)
}

func seeded(t *testing.T, ts ...rdf.Triple) *graph.Graph {
	t.Helper()
	g := graph.New(nil, graph.WithBlankNodes(rdf.NewSequentialBlankNodes("n")))
	_, err := g.Update(context.Background(), sparql.Update{Insert: ts})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func chain() []rdf.Triple {
	return []rdf.Triple{
		rdf.T(alice, rdf.RDFType, person),
		rdf.T(alice, name, str("Alice")),
		rdf.T(alice, age, rdf.NewLiteral("42", rdf.XSDInteger)),
		rdf.T(alice, knows, bob),
		rdf.T(bob, rdf.RDFType, person),
		rdf.T(bob, name, str("Bob")),
		rdf.T(bob, knows, carol),
		rdf.T(carol, rdf.RDFType, person),
		rdf.T(carol, name, str("Carol")),
	}
}

func TestFetch_Shallow(t *testing.T) {
	r := New(seeded(t, chain()...))

	got, err := r.Fetch(context.Background(), alice, vocab, false)
	require.NoError(t, err)

	want := jsonld.Document{
		"@id":   string(alice),
		"@type": "Person",
		"name":  "Alice",
		"age":   int64(42),
		"knows": jsonld.Ref(string(bob)),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetch_DeepEmbedsChain(t *testing.T) {
	r := New(seeded(t, chain()...))

	got, err := r.Fetch(context.Background(), alice, vocab, true)
	require.NoError(t, err)

	want := jsonld.Document{
		"@id":   string(alice),
		"@type": "Person",
		"name":  "Alice",
		"age":   int64(42),
		"knows": jsonld.Document{
			"@id":   string(bob),
			"@type": "Person",
			"name":  "Bob",
			"knows": jsonld.Document{
				"@id":   string(carol),
				"@type": "Person",
				"name":  "Carol",
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetch_CycleTerminates(t *testing.T) {
	r := New(seeded(t,
		rdf.T(alice, rdf.RDFType, person),
		rdf.T(alice, knows, bob),
		rdf.T(bob, rdf.RDFType, person),
		rdf.T(bob, knows, alice),
	))

	got, err := r.Fetch(context.Background(), alice, vocab, true)
	require.NoError(t, err)

	want := jsonld.Document{
		"@id":   string(alice),
		"@type": "Person",
		"knows": jsonld.Document{
			"@id":   string(bob),
			"@type": "Person",
			"knows": jsonld.Ref(string(alice)),
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetch_DeepEmbedsUntypedSubjects(t *testing.T) {
	dave := rdf.IRI(ex + "dave")
	likes := rdf.IRI(ex + "likes")
	r := New(seeded(t,
		rdf.T(alice, rdf.RDFType, person),
		rdf.T(alice, knows, bob),
		rdf.T(alice, likes, dave),
		rdf.T(bob, name, str("Bob")),
	))

	got, err := r.Fetch(context.Background(), alice, vocab, true)
	require.NoError(t, err)

	want := jsonld.Document{
		"@id":   string(alice),
		"@type": "Person",
		"knows": jsonld.Document{
			"@id":  string(bob),
			"name": "Bob",
		},
		"likes": jsonld.Ref(string(dave)),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
}

func TestWalk_VisitsEachSubjectOnce(t *testing.T) {
	g := seeded(t,
		rdf.T(alice, rdf.RDFType, person),
		rdf.T(alice, knows, bob),
		rdf.T(alice, knows, carol),
		rdf.T(bob, knows, carol),
		rdf.T(carol, knows, alice),
		rdf.T(carol, name, str("Carol")),
	)
	sel := &countingSelector{Selector: g}
	r := New(sel)

	sub, err := r.Walk(context.Background(), alice, true)
	require.NoError(t, err)
	assert.Equal(t, []rdf.IRI{alice, bob, carol}, sub.Order)
	assert.Equal(t, int32(3), sel.n.Load())
}

func TestFetch_NotFound(t *testing.T) {
	r := New(seeded(t, rdf.T(bob, name, str("untyped"))))

	tests := []struct {
		name string
		id   rdf.IRI
	}{
		{"no triples", alice},
		{"no type", bob},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Fetch(context.Background(), tc.id, vocab, true)
			require.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, "no entity with id '"+string(tc.id)+"'", err.Error())
		})
	}
}

func TestFetch_Lists(t *testing.T) {
	alloc := rdf.NewSequentialBlankNodes("l")
	r := New(seeded(t,
		rdf.T(alice, rdf.RDFType, person),
		rdf.T(alice, tags, rdf.NewList(alloc, str("x"), str("y"), str("z"))),
		rdf.T(alice, knows, rdf.NewList(alloc, bob, rdf.NewList(alloc, rdf.NewLiteral("1", rdf.XSDInt)))),
		rdf.T(alice, rdf.IRI(ex+"empty"), rdf.RDFNil),
		rdf.T(bob, rdf.RDFType, person),
		rdf.T(bob, name, str("Bob")),
	))

	got, err := r.Fetch(context.Background(), alice, vocab, true)
	require.NoError(t, err)

	want := jsonld.Document{
		"@id":   string(alice),
		"@type": "Person",
		"tags":  []any{"x", "y", "z"},
		"knows": []any{
			jsonld.Document{"@id": string(bob), "@type": "Person", "name": "Bob"},
			[]any{int64(1)},
		},
		"empty": []any{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetch_MultipleValuesAndTypes(t *testing.T) {
	r := New(seeded(t,
		rdf.T(alice, rdf.RDFType, person),
		rdf.T(alice, rdf.RDFType, rdf.IRI("http://xmlns.com/foaf/0.1/Agent")),
		rdf.T(alice, name, str("Alice")),
		rdf.T(alice, name, str("Ali")),
	))
	c := jsonld.Context{Vocab: ex, Terms: map[string]string{"foaf": "http://xmlns.com/foaf/0.1/"}}

	got, err := r.Fetch(context.Background(), alice, c, false)
	require.NoError(t, err)

	assert.Equal(t, []any{"foaf:Agent", "Person"}, got["@type"])
	assert.Equal(t, []any{"Ali", "Alice"}, got["name"])
}

func TestSubgraph_TriplesIncludeChains(t *testing.T) {
	alloc := rdf.NewSequentialBlankNodes("l")
	r := New(seeded(t,
		rdf.T(alice, rdf.RDFType, person),
		rdf.T(alice, tags, rdf.NewList(alloc, str("x"), str("y"))),
	))

	sub, err := r.Walk(context.Background(), alice, false)
	require.NoError(t, err)
	ts := sub.Triples()
	assert.Len(t, ts, 6)
}

func TestNative(t *testing.T) {
	tests := []struct {
		lit  rdf.Literal
		want any
	}{
		{rdf.NewLiteral("42", rdf.XSDInteger), int64(42)},
		{rdf.NewLiteral("-7", rdf.XSDInt), int64(-7)},
		{rdf.NewLiteral("+3", rdf.XSDLong), int64(3)},
		{rdf.NewLiteral("true", rdf.XSDBoolean), true},
		{rdf.NewLiteral("0", rdf.XSDBoolean), false},
		{rdf.NewLiteral("1.5", rdf.XSDDouble), 1.5},
		{rdf.NewLiteral("2.25", rdf.XSDFloat), 2.25},
		{rdf.NewLiteral("INF", rdf.XSDDouble), "INF"},
		{rdf.NewLiteral("1.10", rdf.XSDDecimal), "1.10"},
		{rdf.NewLiteral("abc", rdf.XSDInteger), "abc"},
		{rdf.NewLiteral("2024-01-01", rdf.XSDDate), "2024-01-01"},
		{rdf.NewLangLiteral("hallo", "de"), "hallo"},
	}
	for _, tc := range tests {
		t.Run(tc.lit.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, Native(tc.lit))
		})
	}
}
