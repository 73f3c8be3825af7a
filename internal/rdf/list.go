package rdf

import (
	"fmt"
	"strings"
	"sync"
)

// List is an ordered list value. Nodes[i] is the anonymous node holding
// Items[i]; the last node links to rdf:nil. Items may themselves be lists.
//
// A list of length N expands to exactly N rdf:first and N rdf:rest triples.
type List struct {
	Nodes []BlankNode
	Items []Term
}

func (*List) term() {}

// String returns a structural key "(item item ...)" that ignores node labels,
// so two lists with equal items compare equal.
func (l *List) String() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = item.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Head returns the first node of the chain, or rdf:nil for an empty list.
func (l *List) Head() Term {
	if len(l.Nodes) == 0 {
		return RDFNil
	}
	return l.Nodes[0]
}

// Len returns the number of items.
func (l *List) Len() int {
	return len(l.Items)
}

// Triples returns the chain triples, including those of nested lists.
func (l *List) Triples() []Triple {
	out := make([]Triple, 0, 2*len(l.Items))
	for i, item := range l.Items {
		node := l.Nodes[i]
		var first Term = item
		var nested []Triple
		if sub, ok := item.(*List); ok {
			first = sub.Head()
			nested = sub.Triples()
		}
		var rest Term = RDFNil
		if i+1 < len(l.Nodes) {
			rest = l.Nodes[i+1]
		}
		out = append(out, T(node, RDFFirst, first), T(node, RDFRest, rest))
		out = append(out, nested...)
	}
	return out
}

// NewList builds a list over items, allocating one node per item.
func NewList(alloc BlankNodeAllocator, items ...Term) *List {
	l := &List{Items: items, Nodes: make([]BlankNode, len(items))}
	for i := range items {
		l.Nodes[i] = alloc.NewBlankNode()
	}
	return l
}

// BlankNodeAllocator hands out blank node labels unique within its scope.
type BlankNodeAllocator interface {
	NewBlankNode() BlankNode
}

// SequentialBlankNodes allocates labels "<prefix><n>" with n counting from 1.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialBlankNodes struct {
	mu     sync.Mutex
	prefix string
	n      uint64
}

// NewSequentialBlankNodes creates an allocator. An empty prefix means "b".
func NewSequentialBlankNodes(prefix string) *SequentialBlankNodes {
	if prefix == "" {
		prefix = "b"
	}
	return &SequentialBlankNodes{prefix: prefix}
}

// NewBlankNode returns the next label.
func (s *SequentialBlankNodes) NewBlankNode() BlankNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return BlankNode(fmt.Sprintf("%s%d", s.prefix, s.n))
}

// ReadList follows a chain starting at head through the given link table
// and returns the items in order. links maps a node to its (first, rest)
// pair. ok is false if the chain is broken or cyclic.
func ReadList(head Term, links map[BlankNode][2]Term) (*List, bool) {
	l := &List{}
	seen := make(map[BlankNode]bool)
	cur := head
	for {
		if iri, isIRI := cur.(IRI); isIRI && iri == RDFNil {
			return l, true
		}
		node, isNode := cur.(BlankNode)
		if !isNode || seen[node] {
			return nil, false
		}
		seen[node] = true
		pair, found := links[node]
		if !found {
			return nil, false
		}
		item := pair[0]
		if sub, isSub := item.(BlankNode); isSub {
			if nested, nestedOK := ReadList(sub, links); nestedOK {
				item = nested
			}
		}
		l.Nodes = append(l.Nodes, node)
		l.Items = append(l.Items, item)
		cur = pair[1]
	}
}
