package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/triplegate/internal/op"
	"github.com/roach88/triplegate/internal/rdf"
)

// Backend names accepted by scenarios.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend selects the storage: memory (default) or an in-memory
	// SQLite database.
	Backend string `yaml:"backend,omitempty"`

	// Seed holds N-Triples statements inserted before the first run.
	Seed []string `yaml:"seed,omitempty"`

	// Runs are executed in order, each as one batch.
	Runs []RunStep `yaml:"runs"`

	// Assertions validate the final graph and the statement count.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RunStep is one batch of operations.
type RunStep struct {
	// Operations use the operation file layout. Missing ids are filled
	// with op-1, op-2, ... across the scenario.
	Operations []op.Descriptor `yaml:"operations"`

	// Expect maps operation ids to expected results. Operations without
	// an entry are not checked.
	Expect map[string]ExpectClause `yaml:"expect,omitempty"`

	// Rejected expects the batch to fail with a contract error.
	Rejected bool `yaml:"rejected,omitempty"`
}

// ExpectClause specifies an expected operation result.
type ExpectClause struct {
	// Success defaults to true.
	Success *bool `yaml:"success,omitempty"`

	// Code is the expected failure code name (dirty, referenced, ...).
	Code string `yaml:"code,omitempty"`

	// Data is compared to the result data in canonical JSON form. Nil
	// skips the comparison.
	Data any `yaml:"data,omitempty"`
}

// Succeeds reports the expected success flag.
func (e ExpectClause) Succeeds() bool {
	return e.Success == nil || *e.Success
}

// Assertion validates the final graph or the update traffic.
type Assertion struct {
	// Type specifies the assertion type:
	// - "graph_contains": Check every triple is present
	// - "graph_excludes": Check no triple is present
	// - "graph_size": Check the number of triples
	// - "statement_count": Check the number of update statements
	Type string `yaml:"type"`

	// Triples are N-Triples statements (graph_contains, graph_excludes).
	Triples []string `yaml:"triples,omitempty"`

	// Count is the expected number (graph_size, statement_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertGraphContains  = "graph_contains"
	AssertGraphExcludes  = "graph_excludes"
	AssertGraphSize      = "graph_size"
	AssertStatementCount = "statement_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
// Scenario names must be unique since they name golden files.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	seen := make(map[string]string, len(paths))
	out := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(path), s.Name, prev)
		}
		seen[s.Name] = filepath.Base(path)
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Backend {
	case "", BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	for i, line := range s.Seed {
		if _, err := rdf.ParseTriple(line); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
	}

	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	for i, run := range s.Runs {
		if len(run.Operations) == 0 {
			return fmt.Errorf("runs[%d]: operations list is required and must be non-empty", i)
		}
		if run.Rejected && len(run.Expect) > 0 {
			return fmt.Errorf("runs[%d]: a rejected run cannot expect results", i)
		}
		for j, d := range run.Operations {
			if d.Name == "" {
				return fmt.Errorf("runs[%d].operations[%d]: name is required", i, j)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertGraphContains, AssertGraphExcludes:
		if len(a.Triples) == 0 {
			return fmt.Errorf("assertions[%d]: triples list is required for %s", index, a.Type)
		}
		for j, line := range a.Triples {
			if _, err := rdf.ParseTriple(line); err != nil {
				return fmt.Errorf("assertions[%d].triples[%d]: %w", index, j, err)
			}
		}
	case AssertGraphSize, AssertStatementCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
