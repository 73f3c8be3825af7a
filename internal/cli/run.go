package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/triplegate/internal/batch"
	"github.com/roach88/triplegate/internal/op"
	"github.com/roach88/triplegate/internal/opfile"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// Tokens fills missing operation ids (for testing).
	// If nil, defaults to UUIDv7Generator.
	Tokens opfile.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <operations-file>",
		Short: "Run a file of operations as one batch",
		Long: `Run the operations listed in a YAML, JSON or CUE file against the
configured backend. Operations are grouped and executed as a single batch:
saves, then destroys, then delete_all, then reads, then raw queries.

Operations without an id get a fresh one. The command exits 1 when any
operation failed and 2 when the file or an operation is malformed.

Example:
  triplegate run --db ./data.db ops.yaml
  triplegate run --format json ops.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperations(cmd, opts, args[0])
		},
	}
	return cmd
}

func runOperations(cmd *cobra.Command, opts *RunOptions, path string) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	descs, err := opfile.Load(path)
	if err != nil {
		_ = s.out.Error(ErrCodeInput, err.Error(), map[string]string{"file": path})
		return WrapExitError(ExitCommandError, "failed to load operations", err)
	}

	tokens := opts.Tokens
	if tokens == nil {
		tokens = batch.UUIDv7Generator{}
	}
	ops, err := opfile.Operations(descs, tokens)
	if err != nil {
		code := ErrCodeInput
		if op.IsContractError(err) {
			code = ErrCodeContract
		}
		_ = s.out.Error(code, err.Error(), map[string]string{"file": path})
		return WrapExitError(ExitCommandError, "invalid operation", err)
	}
	s.out.VerboseLog("loaded %d operations from %s", len(ops), path)

	results, err := s.execute(commandContext(cmd), ops...)
	if err != nil {
		return err
	}
	if err := s.out.Results(ops, results); err != nil {
		return WrapExitError(ExitCommandError, "failed to write results", err)
	}
	return failures(results)
}
