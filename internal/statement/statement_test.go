package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplegate/internal/rdf"
)

const (
	car   = rdf.IRI("https://example.com/cars/1")
	seats = rdf.IRI("https://example.com/seats")
)

func TestBuild_Scalars(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		tag  string
		want rdf.Term
	}{
		{"uri", Scalar("https://example.com/owner/1"), TagURI, rdf.IRI("https://example.com/owner/1")},
		{"well-known local name", Scalar("4"), "integer", rdf.NewLiteral("4", rdf.XSDInteger)},
		{"curie", Scalar("true"), "xsd:boolean", rdf.NewLiteral("true", rdf.XSDBoolean)},
		{"verbatim datatype", Scalar("x"), "https://example.com/dt", rdf.NewLiteral("x", "https://example.com/dt")},
		{"no tag", Scalar("plain"), "", rdf.NewLiteral("plain", rdf.XSDString)},
	}
	b := NewBuilder(nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := b.Build(car, seats, tc.val, tc.tag)
			require.NoError(t, err)
			assert.Equal(t, car, tr.S)
			assert.Equal(t, seats, tr.P)
			assert.Equal(t, tc.want, tr.O)
		})
	}
}

func TestBuild_List(t *testing.T) {
	b := NewBuilder(rdf.NewSequentialBlankNodes("n"))
	tr, err := b.Build(car, seats, ListOf(Item("x", "string"), Item("y", "string"), Item("z", "string")), TagList)
	require.NoError(t, err)

	list, ok := tr.O.(*rdf.List)
	require.True(t, ok)
	assert.Equal(t, 3, list.Len())
	assert.Equal(t, rdf.BlankNode("n1"), list.Head())

	expanded := rdf.Expand(tr)
	assert.Len(t, expanded, 7)
	assert.Equal(t, rdf.T(car, seats, rdf.BlankNode("n1")), expanded[0])
}

func TestBuild_NestedList(t *testing.T) {
	b := NewBuilder(rdf.NewSequentialBlankNodes("n"))
	inner := Entry{Value: ListOf(Item("1", "integer"), Item("2", "integer")), Tag: TagList}
	tr, err := b.Build(car, seats, ListOf(inner, Item("https://example.com/o", TagURI)), TagList)
	require.NoError(t, err)

	outer := tr.O.(*rdf.List)
	require.Equal(t, 2, outer.Len())
	nested, ok := outer.Items[0].(*rdf.List)
	require.True(t, ok)
	assert.Equal(t, 2, nested.Len())
	assert.Equal(t, rdf.IRI("https://example.com/o"), outer.Items[1])
	// 1 head triple + 2 outer links*2 + 2 inner links*2
	assert.Len(t, rdf.Expand(tr), 9)
}

func TestBuild_EmptyList(t *testing.T) {
	tr, err := NewBuilder(nil).Build(car, seats, ListOf(), TagList)
	require.NoError(t, err)
	assert.Equal(t, []rdf.Triple{rdf.T(car, seats, rdf.RDFNil)}, rdf.Expand(tr))
}

func TestBuild_ListsDoNotShareNodes(t *testing.T) {
	b := NewBuilder(nil)
	a, err := b.Build(car, seats, ListOf(Item("x", "string")), TagList)
	require.NoError(t, err)
	c, err := b.Build(car, seats, ListOf(Item("x", "string")), TagList)
	require.NoError(t, err)
	assert.NotEqual(t, a.O.(*rdf.List).Head(), c.O.(*rdf.List).Head())
}

func TestBuild_Malformed(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		tag  string
	}{
		{"relative uri", Scalar("cars/1"), TagURI},
		{"empty uri", Scalar(""), TagURI},
		{"list with lexical", Value{Lexical: "x"}, TagList},
		{"entry without tag", ListOf(Entry{Value: Scalar("x")}), TagList},
		{"nested malformed entry", ListOf(Entry{Value: ListOf(Item("nope", TagURI)), Tag: TagList}), TagList},
		{"literal with items", ListOf(Item("x", "string")), "integer"},
		{"unknown bare datatype", Scalar("x"), "whatever"},
	}
	b := NewBuilder(nil)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Build(car, seats, tc.val, tc.tag)
			assert.ErrorIs(t, err, ErrMalformedValue)
		})
	}
}

func TestIsAbsoluteIRI(t *testing.T) {
	assert.True(t, IsAbsoluteIRI("https://example.com/a#b"))
	assert.True(t, IsAbsoluteIRI("urn:isbn:123"))
	assert.False(t, IsAbsoluteIRI("example"))
	assert.False(t, IsAbsoluteIRI("1http://x"))
	assert.False(t, IsAbsoluteIRI("https://example.com/a b"))
	assert.False(t, IsAbsoluteIRI(":nothing"))
}
