package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/triplegate/internal/rdf"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Syntax string
	Output string
}

// ValidSyntaxes lists the export serializations.
var ValidSyntaxes = []string{"nt", "ttl"}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the working graph as N-Triples or Turtle",
		Long: `Write every triple of the working graph, except the bootstrap
triple, in sorted order. Turtle output declares a prefix for each
namespace in use: well-known vocabularies and the config's prefixes
map keep their names, other namespaces get one derived from the IRI.

Example:
  triplegate export --db ./data.db
  triplegate export --syntax ttl -o graph.ttl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Syntax, "syntax", "nt", "serialization (nt|ttl)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	if !slices.Contains(ValidSyntaxes, opts.Syntax) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid syntax %q: must be one of %v", opts.Syntax, ValidSyntaxes))
	}

	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := commandContext(cmd)
	triples, err := s.gw.Snapshot(ctx)
	if err != nil {
		_ = s.out.Error(ErrCodeBackend, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read graph", err)
	}

	rdf.SortTriples(triples)

	var buf bytes.Buffer
	switch opts.Syntax {
	case "nt":
		err = rdf.WriteNTriples(&buf, triples)
	case "ttl":
		var prefixes map[string]string
		prefixes, err = s.gw.Prefixes(ctx)
		if err == nil {
			err = rdf.WriteTurtle(&buf, triples, prefixes)
		}
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to serialize graph", err)
	}
	s.out.VerboseLog("exported %d triples", len(triples))

	var w io.Writer = cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := buf.WriteTo(w); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	return nil
}
