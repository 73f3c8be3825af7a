package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/triplegate/internal/jsonld"
	"github.com/roach88/triplegate/internal/op"
	"github.com/roach88/triplegate/internal/rdf"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Deep        bool
	ContextFile string
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print the document rooted at an entity",
		Long: `Reconstruct the linked document rooted at <id> and print it as
canonical JSON. By default referenced entities appear as {"@id": ...}
stubs; --deep embeds them, stopping at cycles.

--context names a YAML or JSON file holding a JSON-LD context used to
compact predicate IRIs into keys.

Example:
  triplegate get --db ./data.db http://example.com/people/alice
  triplegate get --deep --context ctx.yaml http://example.com/people/alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Deep, "deep", false, "embed referenced entities")
	cmd.Flags().StringVar(&opts.ContextFile, "context", "", "JSON-LD context file (YAML or JSON)")

	return cmd
}

func runGet(cmd *cobra.Command, opts *GetOptions, id string) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	var jctx jsonld.Context
	if opts.ContextFile != "" {
		jctx, err = loadContext(opts.ContextFile)
		if err != nil {
			_ = s.out.Error(ErrCodeInput, err.Error(), map[string]string{"file": opts.ContextFile})
			return WrapExitError(ExitCommandError, "failed to load context", err)
		}
	}

	mode := op.Shallow
	if opts.Deep {
		mode = op.Deep
	}
	get := op.Operation{
		ID:      "get",
		Command: op.GetDataForID{ID: rdf.IRI(id), Context: jctx, Mode: mode},
	}
	results, err := s.execute(commandContext(cmd), get)
	if err != nil {
		return err
	}

	res := results[get.ID]
	if !res.Success {
		_ = s.out.Error(ErrCodeOperation, res.Message, map[string]string{"id": id, "code": res.Code.String()})
		return NewExitError(ExitFailure, fmt.Sprintf("get %s: %s", id, res.Code))
	}
	doc := res.Data.(op.DocumentResult).Object
	if opts.Format == "json" {
		return s.out.Success(doc)
	}
	b, err := jsonld.MarshalCanonical(doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render document", err)
	}
	return s.out.Success(string(b))
}

// loadContext reads a context file. YAML is a superset of JSON, so one
// decoder covers both.
func loadContext(path string) (jsonld.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return jsonld.Context{}, fmt.Errorf("read context: %w", err)
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return jsonld.Context{}, fmt.Errorf("parse context %s: %w", path, err)
	}
	return jsonld.ParseContext(raw)
}
