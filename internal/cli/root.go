package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is an explicit config file; empty means the lookup order.
	Config string
	// Backend, DB and Endpoint override the config file.
	Backend  string
	DB       string
	Endpoint string

	// MetricsFile receives the command's metrics in Prometheus text format.
	MetricsFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the triplegate CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "triplegate",
		Short: "triplegate - batched operations on triple stores",
		Long: `Run operation batches against an in-process graph, a SQLite file or a
SPARQL 1.1 endpoint, read back linked documents and export the graph.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default: lookup order)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "backend override (memory|sqlite|remote)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "SQLite file; implies --backend sqlite")
	cmd.PersistentFlags().StringVar(&opts.Endpoint, "endpoint", "", "SPARQL endpoint URL; implies --backend remote")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write metrics in Prometheus text format on exit")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))

	return cmd
}
