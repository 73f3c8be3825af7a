package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
name: minimal
description: "one ask"
runs:
  - operations:
      - name: ask_if_id_exists
        content: [http://example.com/a]
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: full
description: "every field"
backend: sqlite
seed:
  - <http://example.com/a> <http://example.com/p> "x" .
runs:
  - operations:
      - id: save
        name: save_attribute_for_id
        content: [http://example.com/a, http://example.com/p, y, string]
        opts: APPEND_IF_ABSENT
    expect:
      save: { data: { deleted: 0, inserted: 1 } }
  - operations:
      - name: delete_all
    rejected: false
assertions:
  - type: graph_size
    count: 3
`))
	require.NoError(t, err)

	assert.Equal(t, "full", s.Name)
	assert.Equal(t, BackendSQLite, s.Backend)
	require.Len(t, s.Runs, 2)
	assert.Equal(t, "APPEND_IF_ABSENT", s.Runs[0].Operations[0].Opts)
	assert.Equal(t, []any{"http://example.com/a", "http://example.com/p", "y", "string"}, s.Runs[0].Operations[0].Content)
	assert.True(t, s.Runs[0].Expect["save"].Succeeds())
	assert.Equal(t, map[string]any{"deleted": 0, "inserted": 1}, s.Runs[0].Expect["save"].Data)
	assert.Equal(t, "delete_all", s.Runs[1].Operations[0].Name)
	assert.Equal(t, []Assertion{{Type: AssertGraphSize, Count: 3}}, s.Assertions)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", minimal + "assertion: []\n", "field assertion not found"},
		{"missing name", "description: x\nruns: [{operations: [{name: delete_all}]}]\n", "name is required"},
		{"missing description", "name: x\nruns: [{operations: [{name: delete_all}]}]\n", "description is required"},
		{"no runs", "name: x\ndescription: y\n", "runs list is required"},
		{"empty run", "name: x\ndescription: y\nruns: [{operations: []}]\n", "operations list is required"},
		{"nameless operation", "name: x\ndescription: y\nruns: [{operations: [{id: a}]}]\n", "name is required"},
		{"bad backend", "name: x\ndescription: y\nbackend: oracle\nruns: [{operations: [{name: delete_all}]}]\n", "unknown backend"},
		{"bad seed", "name: x\ndescription: y\nseed: [not a triple]\nruns: [{operations: [{name: delete_all}]}]\n", "seed[0]"},
		{
			"rejected with expect",
			"name: x\ndescription: y\nruns: [{operations: [{id: a, name: delete_all}], rejected: true, expect: {a: {}}}]\n",
			"rejected run cannot expect",
		},
		{"unknown assertion", minimal + "assertions: [{type: trace_order}]\n", "unknown assertion type"},
		{"contains without triples", minimal + "assertions: [{type: graph_contains}]\n", "triples list is required"},
		{"negative count", minimal + "assertions: [{type: graph_size, count: -1}]\n", "non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(minimal), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: first\ndescription: x\nruns: [{operations: [{name: delete_all}]}]\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	scenarios, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "first", scenarios[0].Name)
	assert.Equal(t, "minimal", scenarios[1].Name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.yaml"), []byte(minimal), 0o600))
	_, err = LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "minimal" already used by b.yaml`)
}
