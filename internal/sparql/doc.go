// Package sparql defines an intermediate representation for the queries and
// updates the batcher emits, and renders it to SPARQL 1.1 text.
//
// The IR is deliberately small. It covers exactly what the data-access layer
// needs:
//
//   - Ask: existence checks and write guards
//   - Select: attribute reads, list chain reads, raw record queries
//   - Update: DELETE/INSERT/WHERE and INSERT DATA
//
// Group graph patterns are a conjunction of Elements: triple patterns,
// property paths, FILTER NOT EXISTS and inline VALUES.
//
// # Backends
//
// Element and Query are sealed interfaces. A backend either renders them
// (Renderer, used by the remote HTTP client) or evaluates them directly
// (the in-process graph). Both switch exhaustively over the same types.
//
// # List-safe writes
//
// Blank nodes in an INSERT template are re-instantiated for every solution
// of the WHERE clause. Write.Statements splits a batch whose insertions
// contain list chains into two updates gated by a marker triple so that the
// chain is written exactly once, and only when the guarded first update
// matched.
package sparql
