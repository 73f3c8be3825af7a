// Package rdf provides the triple primitives used by every other package.
//
// Terms are a sealed sum type: IRI, Literal, BlankNode, Variable and *List.
// Only types in this package implement Term, which keeps type switches in the
// query renderer and the in-process evaluator exhaustive.
//
// Ordered list values are encoded as chains of anonymous nodes. Each node
// carries exactly one rdf:first triple (the item) and one rdf:rest triple
// (the next node, or rdf:nil for the last one). A *List is only ever the
// object of a triple; Expand turns such a triple into its concrete chain.
//
// This package imports nothing internal.
package rdf
