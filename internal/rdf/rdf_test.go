package rdf

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerm_String(t *testing.T) {
	tests := []struct {
		name string
		term Term
		want string
	}{
		{"iri", IRI("https://example.com/a"), "<https://example.com/a>"},
		{"blank", BlankNode("b1"), "_:b1"},
		{"variable", Variable("s"), "?s"},
		{"typed literal", NewLiteral("3", XSDInteger), `"3"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"string literal", NewLiteral("hi", ""), `"hi"^^<http://www.w3.org/2001/XMLSchema#string>`},
		{"literal without datatype", Literal{Lexical: "hi"}, `"hi"^^<http://www.w3.org/2001/XMLSchema#string>`},
		{"lang literal", NewLangLiteral("hallo", "de"), `"hallo"@de`},
		{"escaped literal", NewLiteral("a \"q\"\nb", ""), `"a \"q\"\nb"^^<http://www.w3.org/2001/XMLSchema#string>`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.term.String())
		})
	}
}

func TestEqual_LiteralWithoutDatatypeIsString(t *testing.T) {
	assert.True(t, Equal(Literal{Lexical: "x"}, NewLiteral("x", XSDString)))
	assert.False(t, Equal(NewLiteral("1", XSDInteger), NewLiteral("1", XSDString)))
}

func TestParseTriple_RoundTrip(t *testing.T) {
	triples := []Triple{
		T(IRI("https://example.com/s"), IRI("https://example.com/p"), IRI("https://example.com/o")),
		T(IRI("https://example.com/s"), IRI("https://example.com/p"), NewLiteral("tab\tquote\"", "")),
		T(BlankNode("n1"), RDFFirst, NewLiteral("42", XSDInteger)),
		T(BlankNode("n1"), RDFRest, RDFNil),
		T(IRI("https://example.com/s"), IRI("https://example.com/label"), NewLangLiteral("naam", "nl-BE")),
	}
	for _, want := range triples {
		got, err := ParseTriple(want.String())
		require.NoError(t, err)
		assert.Equal(t, want.String(), got.String())
	}
}

func TestParseTerm_Errors(t *testing.T) {
	for _, in := range []string{"", "<unterminated", `"open`, "_:", "plain", `"x"^^<dt`} {
		_, err := ParseTerm(in)
		assert.ErrorIs(t, err, ErrMalformedTerm, "input %q", in)
	}
}

func TestParseTerm_UnicodeEscape(t *testing.T) {
	term, err := ParseTerm(`"caf\u00e9"`)
	require.NoError(t, err)
	assert.Equal(t, "café", term.(Literal).Lexical)
}

func TestParseNTriples_SkipsCommentsAndBlankLines(t *testing.T) {
	doc := `
# a comment
<https://example.com/s> <https://example.com/p> "v" .

<https://example.com/s> <https://example.com/q> <https://example.com/o> .
`
	triples, err := ParseNTriples(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, triples, 2)
	assert.Equal(t, IRI("https://example.com/o"), triples[1].O)
}

func TestParseNTriples_ReportsLine(t *testing.T) {
	_, err := ParseNTriples(strings.NewReader("<a> <b> <c> .\n<a> <b> nope .\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestList_ExpandProducesOneHeadAndOneLinkPerItem(t *testing.T) {
	alloc := NewSequentialBlankNodes("n")
	list := NewList(alloc, NewLiteral("x", ""), NewLiteral("y", ""), NewLiteral("z", ""))
	triples := Expand(T(IRI("https://example.com/s"), IRI("https://example.com/p"), list))

	require.Len(t, triples, 7)
	assert.Equal(t, BlankNode("n1"), triples[0].O)

	var firsts, rests int
	for _, tr := range triples[1:] {
		switch tr.P {
		case RDFFirst:
			firsts++
		case RDFRest:
			rests++
		}
	}
	assert.Equal(t, 3, firsts)
	assert.Equal(t, 3, rests)
	assert.Equal(t, T(BlankNode("n3"), RDFRest, RDFNil), triples[6])
}

func TestList_EmptyListPointsToNil(t *testing.T) {
	list := NewList(NewSequentialBlankNodes(""))
	triples := Expand(T(IRI("https://example.com/s"), IRI("https://example.com/p"), list))
	require.Len(t, triples, 1)
	assert.Equal(t, RDFNil, triples[0].O)
}

func TestList_NestedChains(t *testing.T) {
	alloc := NewSequentialBlankNodes("n")
	inner := NewList(alloc, NewLiteral("a", ""))
	outer := NewList(alloc, inner, NewLiteral("b", ""))

	triples := outer.Triples()
	require.Len(t, triples, 6)
	assert.Equal(t, T(BlankNode("n2"), RDFFirst, BlankNode("n1")), triples[0])
	xs := "^^<" + string(XSDString) + ">"
	assert.Equal(t, `(("a"`+xs+`) "b"`+xs+`)`, outer.String())
}

func TestReadList_FollowsChainInOrder(t *testing.T) {
	links := map[BlankNode][2]Term{
		"b2": {NewLiteral("y", ""), BlankNode("b3")},
		"b1": {NewLiteral("x", ""), BlankNode("b2")},
		"b3": {NewLiteral("z", ""), RDFNil},
	}
	list, ok := ReadList(BlankNode("b1"), links)
	require.True(t, ok)
	require.Equal(t, 3, list.Len())
	assert.Equal(t, "x", list.Items[0].(Literal).Lexical)
	assert.Equal(t, "z", list.Items[2].(Literal).Lexical)
}

func TestReadList_DetectsCycle(t *testing.T) {
	links := map[BlankNode][2]Term{
		"b1": {NewLiteral("x", ""), BlankNode("b1")},
	}
	_, ok := ReadList(BlankNode("b1"), links)
	assert.False(t, ok)
}

func TestList_StructuralEquality(t *testing.T) {
	a := NewList(NewSequentialBlankNodes("a"), NewLiteral("x", ""))
	b := NewList(NewSequentialBlankNodes("b"), NewLiteral("x", ""))
	assert.True(t, Equal(a, b))
}

func TestLookupDatatype(t *testing.T) {
	tests := []struct {
		tag  string
		want IRI
		ok   bool
	}{
		{"integer", XSDInteger, true},
		{"xsd:boolean", XSDBoolean, true},
		{"http://www.w3.org/2001/XMLSchema#double", XSDDouble, true},
		{"rdf:langString", RDFLangString, true},
		{"https://example.com/custom", "", false},
		{"unknown", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.tag, func(t *testing.T) {
			got, ok := LookupDatatype(tc.tag)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTriple_IsChain(t *testing.T) {
	s := IRI("https://example.com/s")
	p := IRI("https://example.com/p")
	assert.False(t, T(s, p, IRI("https://example.com/o")).IsChain())
	assert.True(t, T(s, p, BlankNode("b")).IsChain())
	assert.True(t, T(BlankNode("b"), RDFRest, RDFNil).IsChain())
}

func TestWriteNTriples(t *testing.T) {
	var buf bytes.Buffer
	err := WriteNTriples(&buf, []Triple{
		T(IRI("https://example.com/s"), RDFType, IRI("https://example.com/Car")),
	})
	require.NoError(t, err)
	assert.Equal(t, "<https://example.com/s> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <https://example.com/Car> .\n", buf.String())
}

func TestWriteTurtle_GroupsBySubjectAndAbbreviates(t *testing.T) {
	var buf bytes.Buffer
	s := IRI("https://example.com/car1")
	err := WriteTurtle(&buf, []Triple{
		T(s, RDFType, IRI("https://example.com/Car")),
		T(s, IRI("https://example.com/seats"), NewLiteral("4", XSDInteger)),
	}, map[string]string{"ex": "https://example.com/", "xsd": XSDNamespace})
	require.NoError(t, err)

	want := "@prefix ex: <https://example.com/> .\n" +
		"@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .\n\n" +
		"ex:car1 a ex:Car ;\n" +
		"    ex:seats \"4\"^^xsd:integer .\n"
	assert.Equal(t, want, buf.String())
}
