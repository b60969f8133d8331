package plan

import (
	"fmt"

	"github.com/grafodb/grafo/internal/query/pattern"
	"github.com/grafodb/grafo/internal/store"
)

// ExpandAll traverses from the bound source node across matching edges,
// binding the edge and the destination node for every hop
type ExpandAll struct {
	g      DataGraph
	src    *pattern.Node
	edge   *pattern.Edge
	dst    *pattern.Node
	record *Record

	// reverse walks the edge backwards: the destination is bound below
	// and the expansion produces source bindings via incoming edges.
	// Only the cardinality-based scan option sets this.
	reverse bool

	iter store.EdgeIterator
	// Sequence of the entry binding the open iterator was built from; a
	// stale entry after a stream rewind must not be re-expanded.
	srcSeq uint64
}

// NewExpandAll creates an expansion over one pattern edge
func NewExpandAll(g DataGraph, src *pattern.Node, edge *pattern.Edge, dst *pattern.Node, record *Record) *ExpandAll {
	return &ExpandAll{g: g, src: src, edge: edge, dst: dst, record: record}
}

func (e *ExpandAll) Type() OpType {
	return OpTypeExpandAll
}

func (e *ExpandAll) Name() string {
	return "Expand All"
}

func (e *ExpandAll) Modifies() []string {
	produced := e.dst.Alias
	if e.reverse {
		produced = e.src.Alias
	}
	modifies := []string{produced}
	if e.edge.Alias != "" {
		modifies = append(modifies, e.edge.Alias)
	}
	return modifies
}

// entryAlias is the endpoint whose binding the expansion consumes
func (e *ExpandAll) entryAlias() string {
	if e.reverse {
		return e.dst.Alias
	}
	return e.src.Alias
}

func (e *ExpandAll) Consume() (OpResult, error) {
	if e.iter == nil {
		entry, ok := e.record.Node(e.entryAlias())
		if !ok || e.record.AliasSeq(e.entryAlias()) == e.srcSeq {
			// No fresh entry binding yet; pull one from upstream
			return OpRefresh, nil
		}
		var it store.EdgeIterator
		var err error
		if e.reverse {
			it, err = e.g.InEdges(entry.ID, e.edge.Relation)
		} else {
			it, err = e.g.OutEdges(entry.ID, e.edge.Relation)
		}
		if err != nil {
			return OpDepleted, err
		}
		e.iter = it
		e.srcSeq = e.record.AliasSeq(e.entryAlias())
	}

	if !e.iter.Next() {
		if err := e.iter.Close(); err != nil {
			return OpDepleted, err
		}
		e.iter = nil
		return OpRefresh, nil
	}

	edge, err := e.iter.Edge()
	if err != nil {
		return OpDepleted, err
	}

	produced, producedAlias := edge.Dst, e.dst.Alias
	if e.reverse {
		produced, producedAlias = edge.Src, e.src.Alias
	}
	far, err := e.g.NodeByID(produced)
	if err != nil {
		return OpDepleted, fmt.Errorf("failed to resolve node %d: %w", produced, err)
	}

	e.record.BindEdge(e.edge.Alias, edge)
	e.record.BindNode(producedAlias, far)
	return OpOK, nil
}

func (e *ExpandAll) Reset() error {
	if e.iter != nil {
		if err := e.iter.Close(); err != nil {
			return err
		}
		e.iter = nil
	}
	return nil
}

func (e *ExpandAll) Free() {
	if e.iter != nil {
		e.iter.Close()
		e.iter = nil
	}
}

// ExpandInto closes a cycle: both endpoints are already bound, and the
// operator passes the tuple through only when the data graph contains a
// matching edge between them.
type ExpandInto struct {
	g      DataGraph
	src    *pattern.Node
	edge   *pattern.Edge
	dst    *pattern.Node
	record *Record

	seen uint64
}

// NewExpandInto creates a containment check over one pattern edge
func NewExpandInto(g DataGraph, src *pattern.Node, edge *pattern.Edge, dst *pattern.Node, record *Record) *ExpandInto {
	return &ExpandInto{g: g, src: src, edge: edge, dst: dst, record: record}
}

func (e *ExpandInto) Type() OpType {
	return OpTypeExpandInto
}

func (e *ExpandInto) Name() string {
	return "Expand Into"
}

func (e *ExpandInto) Modifies() []string {
	return nil
}

func (e *ExpandInto) Consume() (OpResult, error) {
	if e.record.Seq() == e.seen {
		return OpRefresh, nil
	}
	e.seen = e.record.Seq()

	src, ok := e.record.Node(e.src.Alias)
	if !ok {
		return OpRefresh, nil
	}
	dst, ok := e.record.Node(e.dst.Alias)
	if !ok {
		return OpRefresh, nil
	}

	has, err := e.g.EdgesBetween(src.ID, e.edge.Relation, dst.ID)
	if err != nil {
		return OpDepleted, err
	}
	if !has {
		return OpRefresh, nil
	}
	return OpOK, nil
}

func (e *ExpandInto) Reset() error {
	return nil
}

func (e *ExpandInto) Free() {}
