// Package opfile loads operation batches from YAML, JSON or CUE files.
//
// Every file is checked against an embedded CUE schema before any
// operation is decoded. A file is either a mapping with an "operations"
// list or, for YAML and JSON, the bare list itself:
//
//	operations:
//	  - id: name-alice
//	    name: save_attribute_for_id
//	    content: [http://example.com/alice, http://xmlns.com/foaf/0.1/name, Alice, string]
//	    opts: REPLACE_ALL_PEERS
//
// Operations without an id get one from the supplied generator.
package opfile

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/triplegate/internal/op"
)

//go:embed schema.cue
var schemaSource string

// Format is the syntax of an operation file.
type Format int

const (
	FormatYAML Format = iota
	FormatCUE
)

// FormatOf picks the format from a file extension. JSON files are read
// as YAML.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	}
	return 0, fmt.Errorf("unsupported operation file extension %q", filepath.Ext(path))
}

// File is the decoded content of an operation file.
type File struct {
	Operations []op.Descriptor `yaml:"operations"`
}

// ValidationError reports a file that does not match the schema.
type ValidationError struct {
	File    string
	Details string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid operation file %s:\n%s", e.File, e.Details)
}

// Load reads and validates the file at path.
func Load(path string) ([]op.Descriptor, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read operation file: %w", err)
	}
	return Parse(data, format, path)
}

// Parse validates data against the schema and returns its descriptors in
// file order. filename is used in error messages only.
func Parse(data []byte, format Format, filename string) ([]op.Descriptor, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile operation schema: %w", err)
	}

	var v cue.Value
	switch format {
	case FormatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filename, err)
		}
		if list, ok := doc.([]any); ok {
			doc = map[string]any{"operations": list}
		}
		if doc == nil {
			doc = map[string]any{}
		}
		v = ctx.Encode(doc)
	case FormatCUE:
		v = ctx.CompileBytes(data, cue.Filename(filename))
	default:
		return nil, fmt.Errorf("unknown format %d", format)
	}
	if err := v.Err(); err != nil {
		return nil, &ValidationError{File: filename, Details: cueerrors.Details(err, nil)}
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &ValidationError{File: filename, Details: cueerrors.Details(err, nil)}
	}

	// JSON is valid YAML; reading the export with yaml.v3 keeps integers
	// as int instead of float64.
	exported, err := unified.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", filename, err)
	}
	var f File
	if err := yaml.Unmarshal(exported, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	if f.Operations == nil {
		return []op.Descriptor{}, nil
	}
	return f.Operations, nil
}

// IDGenerator mints ids for operations that have none.
type IDGenerator interface {
	Generate() string
}

// Operations decodes descriptors into operations, filling missing ids
// from gen. The first descriptor that fails decoding aborts the call.
func Operations(descs []op.Descriptor, gen IDGenerator) ([]op.Operation, error) {
	out := make([]op.Operation, 0, len(descs))
	for _, d := range descs {
		if d.ID == "" {
			d.ID = gen.Generate()
		}
		o, err := op.Decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
