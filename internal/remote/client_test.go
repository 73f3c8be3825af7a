package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplegate/internal/backend"
	"github.com/roach88/triplegate/internal/rdf"
	"github.com/roach88/triplegate/internal/sparql"
)

const graphIRI = rdf.IRI("http://example.com/g1")

// endpoint is a fake SPARQL endpoint that records requests and replies
// with a canned body.
type endpoint struct {
	reply  string
	status int

	mu          sync.Mutex
	contentType string
	body        string
	user, pass  string
}

func (e *endpoint) last() (contentType, body, user, pass string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contentType, e.body, e.user, e.pass
}

func (e *endpoint) serve(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		e.mu.Lock()
		e.body = string(raw)
		e.contentType = r.Header.Get("Content-Type")
		e.user, e.pass, _ = r.BasicAuth()
		e.mu.Unlock()
		w.Header().Set("Content-Type", ContentTypeResults)
		if e.status != 0 {
			w.WriteHeader(e.status)
		}
		_, _ = io.WriteString(w, e.reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, e *endpoint, mutate ...func(*Config)) *Client {
	t.Helper()
	srv := e.serve(t)
	cfg := Config{QueryURL: srv.URL, Graph: graphIRI}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Ask(t *testing.T) {
	e := &endpoint{reply: `{"head":{},"boolean":true}`}
	c := newClient(t, e, func(cfg *Config) { cfg.Username, cfg.Password = "dba", "secret" })

	ok, err := c.Ask(context.Background(), sparql.Ask{Where: []sparql.Element{sparql.AnyTriple()}})
	require.NoError(t, err)
	assert.True(t, ok)
	contentType, body, user, pass := e.last()
	assert.True(t, strings.HasPrefix(contentType, ContentTypeQuery))
	assert.Contains(t, body, "GRAPH <http://example.com/g1>")
	assert.Equal(t, "dba", user)
	assert.Equal(t, "secret", pass)
}

func TestClient_SelectDecodesTerms(t *testing.T) {
	e := &endpoint{reply: `{
		"head": {"vars": ["s", "o"]},
		"results": {"bindings": [
			{"s": {"type": "uri", "value": "https://example.com/a"},
			 "o": {"type": "literal", "value": "42", "datatype": "http://www.w3.org/2001/XMLSchema#integer"}},
			{"s": {"type": "bnode", "value": "b0"},
			 "o": {"type": "literal", "value": "hallo", "xml:lang": "de"}},
			{"s": {"type": "uri", "value": "https://example.com/c"},
			 "o": {"type": "literal", "value": "plain"}}
		]}
	}`}
	c := newClient(t, e)

	rows, err := c.Select(context.Background(), sparql.Select{Where: []sparql.Element{sparql.AnyTriple()}})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, rdf.IRI("https://example.com/a"), rows[0]["s"])
	assert.Equal(t, rdf.NewLiteral("42", rdf.XSDInteger), rows[0]["o"])
	assert.Equal(t, rdf.BlankNode("b0"), rows[1]["s"])
	assert.Equal(t, rdf.NewLangLiteral("hallo", "de"), rows[1]["o"])
	assert.Equal(t, rdf.NewLiteral("plain", ""), rows[2]["o"])
}

func TestClient_UpdateSendsOneRequest(t *testing.T) {
	e := &endpoint{reply: `{"head":{"vars":["callret-0"]},"results":{"bindings":[
		{"callret-0": {"type":"literal","value":"Modify <http://example.com/g1>, delete 1 (or less) and insert 3 (or less) triples -- done"}}
	]}}`}
	c := newClient(t, e, func(cfg *Config) { cfg.UpdateURL = cfg.QueryURL + "/update" })

	s := rdf.IRI("https://example.com/a")
	p := rdf.IRI("https://example.com/p")
	report, err := c.Update(context.Background(),
		sparql.Update{Delete: []rdf.Triple{rdf.T(s, p, rdf.Variable("o"))}, Where: []sparql.Element{sparql.Pattern(s, p, rdf.Variable("o"))}},
		sparql.Update{Insert: []rdf.Triple{rdf.T(s, p, rdf.NewLiteral("x", ""))}},
	)
	require.NoError(t, err)
	assert.Equal(t, backend.Report{Deleted: 1, Inserted: 3, Available: true}, report)
	contentType, body, _, _ := e.last()
	assert.True(t, strings.HasPrefix(contentType, ContentTypeUpdate))
	assert.Contains(t, body, "WITH <http://example.com/g1>")
	assert.Contains(t, body, " ;\n")
}

func TestClient_StatusError(t *testing.T) {
	e := &endpoint{status: http.StatusBadRequest, reply: "Virtuoso 37000 Error SP030: syntax error"}
	c := newClient(t, e)

	_, err := c.Ask(context.Background(), sparql.Ask{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "SP030")
}

func TestClient_Closed(t *testing.T) {
	c := newClient(t, &endpoint{reply: `{"boolean":false}`})
	require.NoError(t, c.Close())

	_, err := c.Ask(context.Background(), sparql.Ask{})
	assert.ErrorIs(t, err, backend.ErrClosed)
}

func TestNew_RequiresQueryURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestParseReport(t *testing.T) {
	wrap := func(values ...string) []byte {
		var rows []string
		for _, v := range values {
			rows = append(rows, `{"callret-0":{"type":"literal","value":"`+v+`"}}`)
		}
		return []byte(`{"head":{"vars":["callret-0"]},"results":{"bindings":[` + strings.Join(rows, ",") + `]}}`)
	}

	tests := []struct {
		name string
		body []byte
		want backend.Report
	}{
		{"insert", wrap("Insert into <http://example.com/g1>, 7 (or less) triples -- done"), backend.Report{Inserted: 7, Available: true}},
		{"delete", wrap("Delete from <http://example.com/g2>, 2 (or less) triples -- done"), backend.Report{Deleted: 2, Available: true}},
		{"modify", wrap("Modify <http://example.com/g1>, delete 4 (or less) and insert 5 (or less) triples -- done"), backend.Report{Deleted: 4, Inserted: 5, Available: true}},
		{"two statements", wrap(
			"Modify <http://example.com/g1>, delete 0 (or less) and insert 2 (or less) triples -- done",
			"Modify <http://example.com/g1>, delete 1 (or less) and insert 6 (or less) triples -- done",
		), backend.Report{Deleted: 1, Inserted: 8, Available: true}},
		{"unknown string", wrap("Clear <http://example.com/g1> -- done"), backend.Report{}},
		{"not json", []byte("OK"), backend.Report{}},
		{"boolean", []byte(`{"boolean":true}`), backend.Report{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseReport(tc.body))
		})
	}
}
