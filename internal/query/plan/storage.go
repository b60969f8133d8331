package plan

import (
	"github.com/grafodb/grafo/internal/store"
	"github.com/grafodb/grafo/pkg/graph"
)

// DataGraph is the narrow storage-layer surface the operators consume.
// *store.Graph implements it; iteration order must be deterministic for
// a given storage state.
type DataGraph interface {
	// Nodes iterates every node
	Nodes() (store.NodeIterator, error)

	// NodesByLabel iterates the nodes carrying a label
	NodesByLabel(label string) (store.NodeIterator, error)

	// NodeByID fetches one node record
	NodeByID(id uint64) (*graph.Node, error)

	// OutEdges iterates edges leaving src; empty relation matches all
	OutEdges(src uint64, relation string) (store.EdgeIterator, error)

	// InEdges iterates edges arriving at dst; empty relation matches
	// all
	InEdges(dst uint64, relation string) (store.EdgeIterator, error)

	// EdgesBetween reports whether an edge src -> dst of the given
	// relationship type exists
	EdgesBetween(src uint64, relation string, dst uint64) (bool, error)

	// Cardinality returns the node count for a label (all nodes when
	// the label is empty)
	Cardinality(label string) (uint64, error)
}
