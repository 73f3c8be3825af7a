package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/triplegate/internal/jsonld"
)

// Snapshot captures the trace and final graph of a scenario execution.
type Snapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Graph        []string
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical
// JSON serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		m := map[string]any{
			"run":     event.Run,
			"seq":     event.Seq,
			"name":    event.Name,
			"success": event.Success,
			"code":    event.Code,
		}
		if event.ID != "" {
			m["id"] = event.ID
		}
		if event.Message != "" {
			m["message"] = event.Message
		}
		if event.Data != nil {
			m["data"] = event.Data
		}
		trace[i] = m
	}

	graph := make([]any, len(s.Graph))
	for i, line := range s.Graph {
		graph[i] = line
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"graph":         graph,
	}
}

// Marshal returns the canonical JSON form of the snapshot.
func (s *Snapshot) Marshal() ([]byte, error) {
	return jsonld.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file in testdata/golden/{scenario.Name}.golden. The scenario's
// own expect clauses and assertions must also pass.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Graph:        result.Graph,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
