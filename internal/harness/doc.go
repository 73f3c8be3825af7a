// Package harness runs conformance scenarios against a gateway.
//
// A scenario seeds a fresh graph, runs one or more operation batches and
// checks each result and the final graph.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	backend: memory            # or sqlite (in-memory database)
//	seed:
//	  - <http://example.com/a> <http://example.com/p> "x" .
//	runs:
//	  - operations:
//	      - id: name
//	        name: save_attribute_for_id
//	        content: [http://example.com/a, http://example.com/p, y, string]
//	    expect:
//	      name: { success: true, data: { deleted: 1, inserted: 1 } }
//	  - operations: [...]
//	    rejected: true         # the batch violates an operation contract
//	assertions:
//	  - type: graph_contains
//	    triples: ['<http://example.com/a> <http://example.com/p> "y" .']
//	  - type: graph_size
//	    count: 1
//
// # Assertion Types
//
//   - graph_contains: every listed triple is in the final graph
//   - graph_excludes: none of the listed triples is in the final graph
//   - graph_size: the final graph holds exactly count triples
//   - statement_count: the runs sent exactly count update statements
//
// # Deterministic Testing
//
// Runs use a deterministic clock, counting operation ids and marker
// tokens, and sequential blank node labels, so the trace and the final
// graph are identical across executions and can be compared against
// golden files.
package harness
