package plan

import (
	"github.com/grafodb/grafo/pkg/graph"
)

// Record is the tuple of bindings flowing through the pipeline. Every
// bind bumps a monotonically increasing sequence number; operators that
// must emit exactly once per upstream advance compare the sequence they
// last consumed against the current one instead of guessing which kind
// of reset they just went through.
type Record struct {
	entries map[string]*entry
	staged  []graph.Value
	seq     uint64
}

type entry struct {
	node *graph.Node
	edge *graph.Edge
	seq  uint64
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{entries: make(map[string]*entry)}
}

// Seq returns the current bind sequence number
func (r *Record) Seq() uint64 {
	return r.seq
}

// AliasSeq returns the sequence at which the alias was last bound, or 0
// if it never was
func (r *Record) AliasSeq(alias string) uint64 {
	if e, ok := r.entries[alias]; ok {
		return e.seq
	}
	return 0
}

// BindNode binds alias to a data-graph node
func (r *Record) BindNode(alias string, n *graph.Node) {
	if alias == "" {
		return
	}
	r.seq++
	r.entries[alias] = &entry{node: n, seq: r.seq}
}

// BindEdge binds alias to a data-graph edge
func (r *Record) BindEdge(alias string, e *graph.Edge) {
	if alias == "" {
		return
	}
	r.seq++
	r.entries[alias] = &entry{edge: e, seq: r.seq}
}

// Node returns the node bound to alias
func (r *Record) Node(alias string) (*graph.Node, bool) {
	e, ok := r.entries[alias]
	if !ok || e.node == nil {
		return nil, false
	}
	return e.node, true
}

// Value resolves alias or alias.property against the current bindings.
// An empty property yields the whole entity.
func (r *Record) Value(alias, property string) (graph.Value, bool) {
	e, ok := r.entries[alias]
	if !ok {
		return graph.NullValue(), false
	}
	switch {
	case e.node != nil && property == "":
		return graph.NewNodeValue(e.node), true
	case e.node != nil:
		return e.node.Property(property), true
	case e.edge != nil && property == "":
		return graph.NewEdgeValue(e.edge), true
	case e.edge != nil:
		return e.edge.Property(property), true
	default:
		return graph.NullValue(), false
	}
}

// StageRow stages a fully projected row, bypassing alias projection.
// Used by Aggregate to hand finished group rows to ProduceResults.
func (r *Record) StageRow(row []graph.Value) {
	r.seq++
	r.staged = row
}

// StagedRow returns the currently staged row, if any
func (r *Record) StagedRow() ([]graph.Value, bool) {
	return r.staged, r.staged != nil
}
