package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "triplegate", cmd.Use)
	assert.Contains(t, cmd.Long, "SPARQL 1.1 endpoint")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "get", "export", "reset", "query"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "backend", "db", "endpoint", "metrics-file"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Empty(t, flag.DefValue, name)
	}
}

func TestGetCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	getCmd, _, err := cmd.Find([]string{"get"})
	require.NoError(t, err)

	deepFlag := getCmd.Flags().Lookup("deep")
	require.NotNil(t, deepFlag)
	assert.Equal(t, "false", deepFlag.DefValue)

	require.NotNil(t, getCmd.Flags().Lookup("context"))
}

func TestExportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	exportCmd, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)

	syntaxFlag := exportCmd.Flags().Lookup("syntax")
	require.NotNil(t, syntaxFlag)
	assert.Equal(t, "nt", syntaxFlag.DefValue)

	outputFlag := exportCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	queryCmd, _, err := cmd.Find([]string{"query"})
	require.NoError(t, err)

	countFlag := queryCmd.Flags().Lookup("count")
	require.NotNil(t, countFlag)
	assert.Equal(t, "false", countFlag.DefValue)
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "reset"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
