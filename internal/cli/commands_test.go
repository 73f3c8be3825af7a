package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/triplegate/internal/testutil"
)

const (
	alice  = "http://example.com/people/alice"
	person = "http://xmlns.com/foaf/0.1/Person"
)

const saveAlice = `
operations:
  - id: type
    name: save_id_with_type
    content: [http://example.com/people/alice, null, http://xmlns.com/foaf/0.1/Person]
  - id: name
    name: save_attribute_for_id
    content: [http://example.com/people/alice, http://xmlns.com/foaf/0.1/name, Alice, string]
`

// env is a scratch directory with a quiet config file and a SQLite path,
// so successive commands see the same graph.
type env struct {
	dir    string
	config string
	db     string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "triplegate.yaml")
	require.NoError(t, os.WriteFile(config, []byte("log:\n  level: error\n"), 0o600))
	return &env{dir: dir, config: config, db: filepath.Join(dir, "graph.db")}
}

func (e *env) write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// run executes the root command with the env's config and database.
func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.config, "--db", e.db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand_SavesBatch(t *testing.T) {
	e := newEnv(t)
	ops := e.write(t, "ops.yaml", saveAlice)

	out, err := e.run(t, "run", ops)
	require.NoError(t, err)
	assert.Equal(t,
		"type\tsave_id_with_type\tok deleted=0 inserted=2\n"+
			"name\tsave_attribute_for_id\tok deleted=0 inserted=2\n",
		out)
}

func TestRunCommand_JSON(t *testing.T) {
	e := newEnv(t)
	ops := e.write(t, "ops.yaml", saveAlice)

	out, err := e.run(t, "--format", "json", "run", ops)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   map[string]struct {
			Success bool           `json:"success"`
			Data    map[string]int `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Contains(t, resp.Data, "name")
	assert.True(t, resp.Data["name"].Success)
	assert.Equal(t, 2, resp.Data["name"].Data["inserted"])
}

func TestRunCommand_FillsMissingIDs(t *testing.T) {
	e := newEnv(t)
	ops := e.write(t, "ops.yaml", `
- name: ask_if_id_exists
  content: [http://example.com/people/alice]
- name: ask_if_id_is_referenced
  content: [http://example.com/people/alice]
`)

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	runCmd.RunE = func(c *cobra.Command, args []string) error {
		return runOperations(c, &RunOptions{
			RootOptions: &RootOptions{Format: "text", Config: e.config, DB: e.db},
			Tokens:      testutil.NewCountingGenerator("op"),
		}, args[0])
	}
	cmd.SetArgs([]string{"run", ops})
	require.NoError(t, cmd.Execute())

	assert.Equal(t,
		"op-1\task_if_id_exists\tok false\n"+
			"op-2\task_if_id_is_referenced\tok false\n",
		out.String())
}

func TestRunCommand_FailedOperationExitsOne(t *testing.T) {
	e := newEnv(t)
	ops := e.write(t, "ops.yaml", `
operations:
  - id: guard
    name: set_attribute_condition_for_saves
    content: [http://example.com/people/alice, http://xmlns.com/foaf/0.1/name, Bob, string]
  - id: rename
    name: save_attribute_for_id
    content: [http://example.com/people/alice, http://xmlns.com/foaf/0.1/name, Alice, string]
`)

	out, err := e.run(t, "run", ops)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "rename\tsave_attribute_for_id\tFAIL [dirty] data is dirty")
}

func TestRunCommand_CommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		missing bool
		want    string
	}{
		{name: "missing file", missing: true, want: "E004"},
		{name: "schema violation", body: "operations: [{name: drop_table}]\n", want: "E004"},
		{
			name: "relative id",
			body: "operations: [{id: x, name: ask_if_id_exists, content: [people/alice]}]\n",
			want: "E005",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			path := filepath.Join(e.dir, "ops.yaml")
			if !tt.missing {
				path = e.write(t, "ops.yaml", tt.body)
			}

			out, err := e.run(t, "--format", "json", "run", path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.want, resp.Error.Code)
		})
	}
}

func TestGetCommand(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "run", e.write(t, "ops.yaml", saveAlice))
	require.NoError(t, err)
	ctxFile := e.write(t, "ctx.yaml", "\"@context\":\n  name: http://xmlns.com/foaf/0.1/name\n")

	out, err := e.run(t, "get", "--context", ctxFile, alice)
	require.NoError(t, err)
	assert.Contains(t, out, `"@id":"`+alice+`"`)
	assert.Contains(t, out, `"name":"Alice"`)

	out, err = e.run(t, "--format", "json", "get", "--deep", alice)
	require.NoError(t, err)
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, alice, resp.Data["@id"])
}

func TestGetCommand_NotFound(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "get", "http://example.com/people/nobody")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E006]")
}

func TestExportCommand(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "run", e.write(t, "ops.yaml", saveAlice))
	require.NoError(t, err)

	out, err := e.run(t, "export")
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 2, "bootstrap triple is not exported")
	assert.Contains(t, string(lines[0]), "<"+person+">")
	assert.Contains(t, string(lines[1]), `"Alice"`)
	assert.NotContains(t, out, "dummy")

	out, err = e.run(t, "export", "--syntax", "ttl")
	require.NoError(t, err)
	assert.Contains(t, out, "@prefix foaf: <http://xmlns.com/foaf/0.1/> .")
	assert.Contains(t, out, "@prefix example_people: <http://example.com/people/> .")
	assert.Contains(t, out, "example_people:alice")

	target := filepath.Join(e.dir, "graph.nt")
	_, err = e.run(t, "export", "-o", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Len(t, bytes.Split(bytes.TrimSpace(data), []byte("\n")), 2)

	_, err = e.run(t, "export", "--syntax", "rdfxml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestResetCommand(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "run", e.write(t, "ops.yaml", saveAlice))
	require.NoError(t, err)

	out, err := e.run(t, "reset")
	require.NoError(t, err)
	assert.Equal(t, "reset\tdelete_all\tok deleted=2 inserted=0\n", out)

	out, err = e.run(t, "export")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = e.run(t, "get", alice)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestQueryCommand(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "run", e.write(t, "ops.yaml", saveAlice))
	require.NoError(t, err)

	out, err := e.run(t, "query", "SELECT ?s WHERE { ?s a <"+person+"> }")
	require.NoError(t, err)
	assert.Equal(t, "["+alice+"]\n", out)

	out, err = e.run(t, "query", "--count", "SELECT (COUNT(?s) AS ?count) WHERE { ?s a <"+person+"> }")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	_, err = e.run(t, "query", "SELECT ?s WHERE { OPTIONAL { ?s ?p ?o } }")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSession_BadConfig(t *testing.T) {
	e := newEnv(t)
	bad := e.write(t, "bad.yaml", "backend: oracle\n")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", bad, "reset"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out.String(), "Error [E002]")
}

func TestMetricsFile(t *testing.T) {
	e := newEnv(t)
	target := filepath.Join(e.dir, "triplegate.prom")

	_, err := e.run(t, "--metrics-file", target, "run", e.write(t, "ops.yaml", saveAlice))
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `triplegate_operations_total{code="ok",kind="save"} 2`)
	assert.Contains(t, text, `triplegate_update_statements_total{kind="save"} 1`)
	assert.Contains(t, text, `triplegate_runs_total{outcome="ok"} 1`)
}
