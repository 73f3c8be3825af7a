package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/triplegate/internal/op"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every triple of the working graph",
		Long: `Run delete_all: wipe the working graph and reseed the bootstrap
triple. Prints the number of triples removed, not counting the bootstrap
triple.

Example:
  triplegate reset --db ./data.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd, rootOpts)
		},
	}
	return cmd
}

func runReset(cmd *cobra.Command, opts *RootOptions) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	reset := op.Operation{ID: "reset", Command: op.DeleteAll{}}
	results, err := s.execute(commandContext(cmd), reset)
	if err != nil {
		return err
	}
	if err := s.out.Results([]op.Operation{reset}, results); err != nil {
		return WrapExitError(ExitCommandError, "failed to write results", err)
	}
	return failures(results)
}
