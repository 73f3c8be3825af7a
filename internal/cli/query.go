package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/triplegate/internal/op"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Count bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <sparql>",
		Short: "Run a raw SELECT query",
		Long: `Run a SPARQL SELECT unchanged. Without --count the distinct ?s
bindings are printed; with --count the ?count binding of the first row.

Example:
  triplegate query --db ./data.db 'SELECT ?s WHERE { ?s a <http://xmlns.com/foaf/0.1/Person> }'
  triplegate query --count 'SELECT (COUNT(?s) AS ?count) WHERE { ?s ?p ?o }'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Count, "count", false, "return the ?count binding instead of ?s values")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions, text string) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	kind := op.FindRecords
	if opts.Count {
		kind = op.CountRecords
	}
	q := op.Operation{ID: "query", Command: op.RunRawQuery{Query: text, Kind: kind}}
	results, err := s.execute(commandContext(cmd), q)
	if err != nil {
		return err
	}

	res := results[q.ID]
	if !res.Success {
		_ = s.out.Error(ErrCodeOperation, res.Message, map[string]string{"code": res.Code.String()})
		return NewExitError(ExitFailure, "query failed")
	}
	return s.out.Success(res.Data)
}
