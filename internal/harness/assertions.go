package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/triplegate/internal/rdf"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Graph    []string // Final graph for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFinal graph:\n")
	for _, line := range e.Graph {
		fmt.Fprintf(&buf, "  %s\n", line)
	}
	return buf.String()
}

// normalize renders a statement the way Result.Graph does, so that
// equivalent spellings (plain vs xsd:string literals, with or without the
// final '.') compare equal.
func normalize(line string) (string, error) {
	t, err := rdf.ParseTriple(line)
	if err != nil {
		return "", err
	}
	return t.String() + " .", nil
}

// assertGraphMembership checks that every triple is present (want=true)
// or absent (want=false).
func assertGraphMembership(graph []string, assertion Assertion, want bool) error {
	var wrong []string
	for _, line := range assertion.Triples {
		norm, err := normalize(line)
		if err != nil {
			return fmt.Errorf("%s: %w", assertion.Type, err)
		}
		if slices.Contains(graph, norm) != want {
			wrong = append(wrong, norm)
		}
	}
	if len(wrong) == 0 {
		return nil
	}

	expected, actual := "triples present", "missing: "
	if !want {
		expected, actual = "triples absent", "present: "
	}
	return &AssertionError{
		Type:     assertion.Type,
		Expected: expected,
		Actual:   actual + strings.Join(wrong, "; "),
		Graph:    graph,
	}
}

// assertGraphSize checks the number of triples in the final graph.
func assertGraphSize(graph []string, assertion Assertion) error {
	if len(graph) != assertion.Count {
		return &AssertionError{
			Type:     AssertGraphSize,
			Expected: fmt.Sprintf("%d triples", assertion.Count),
			Actual:   fmt.Sprintf("%d triples", len(graph)),
			Graph:    graph,
		}
	}
	return nil
}

// assertStatementCount checks the number of update statements sent.
func assertStatementCount(result *Result, assertion Assertion) error {
	if result.Statements != assertion.Count {
		return &AssertionError{
			Type:     AssertStatementCount,
			Expected: fmt.Sprintf("%d update statements", assertion.Count),
			Actual:   fmt.Sprintf("%d update statements", result.Statements),
			Graph:    result.Graph,
		}
	}
	return nil
}

// EvaluateAssertions checks all assertions against a result and returns
// one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertGraphContains:
			err = assertGraphMembership(result.Graph, a, true)
		case AssertGraphExcludes:
			err = assertGraphMembership(result.Graph, a, false)
		case AssertGraphSize:
			err = assertGraphSize(result.Graph, a)
		case AssertStatementCount:
			err = assertStatementCount(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}
