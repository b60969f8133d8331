package store

import (
	"encoding/binary"

	"github.com/grafodb/grafo/internal/encoding"
	"github.com/grafodb/grafo/pkg/graph"
	"github.com/grafodb/grafo/pkg/store"
)

// NodeIterator iterates over graph nodes in identifier order
type NodeIterator interface {
	Next() bool
	Node() (*graph.Node, error)
	Close() error
}

// EdgeIterator iterates over edges adjacent to one endpoint
type EdgeIterator interface {
	Next() bool
	Edge() (*graph.Edge, error)
	Close() error
}

// NodeByID fetches a single node record
func (g *Graph) NodeByID(id uint64) (*graph.Node, error) {
	txn, err := g.store.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	raw, err := txn.Get(store.TableNodes, encoding.NodeKey(g.id, id))
	if err != nil {
		return nil, err
	}
	return encoding.DecodeNodeRecord(id, raw)
}

// EdgeByID fetches a single edge record
func (g *Graph) EdgeByID(id uint64) (*graph.Edge, error) {
	txn, err := g.store.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	raw, err := txn.Get(store.TableEdges, encoding.EdgeKey(g.id, id))
	if err != nil {
		return nil, err
	}
	return encoding.DecodeEdgeRecord(id, raw)
}

// Nodes iterates over every node in the graph
func (g *Graph) Nodes() (NodeIterator, error) {
	txn, err := g.store.storage.Begin(false)
	if err != nil {
		return nil, err
	}

	it, err := txn.Scan(store.TableNodes, encoding.AppendUint64(nil, g.id), nil)
	if err != nil {
		txn.Rollback()
		return nil, err
	}

	return &allNodesIterator{txn: txn, it: it}, nil
}

// NodesByLabel iterates over the nodes carrying the given label
func (g *Graph) NodesByLabel(label string) (NodeIterator, error) {
	txn, err := g.store.storage.Begin(false)
	if err != nil {
		return nil, err
	}

	it, err := txn.Scan(store.TableLabels, encoding.LabelPrefix(g.id, label), nil)
	if err != nil {
		txn.Rollback()
		return nil, err
	}

	return &labelNodesIterator{g: g, txn: txn, it: it}, nil
}

// OutEdges iterates over edges leaving src. An empty relation matches
// every relationship type.
func (g *Graph) OutEdges(src uint64, relation string) (EdgeIterator, error) {
	return g.adjacency(store.TableOutEdges, src, relation)
}

// InEdges iterates over edges arriving at dst. An empty relation
// matches every relationship type.
func (g *Graph) InEdges(dst uint64, relation string) (EdgeIterator, error) {
	return g.adjacency(store.TableInEdges, dst, relation)
}

func (g *Graph) adjacency(table store.Table, endpoint uint64, relation string) (EdgeIterator, error) {
	txn, err := g.store.storage.Begin(false)
	if err != nil {
		return nil, err
	}

	it, err := txn.Scan(table, encoding.AdjacencyPrefix(g.id, endpoint, relation), nil)
	if err != nil {
		txn.Rollback()
		return nil, err
	}

	return &edgeIterator{g: g, txn: txn, it: it}, nil
}

// EdgesBetween reports whether at least one edge of the given
// relationship type runs from src to dst. An empty relation matches any
// type.
func (g *Graph) EdgesBetween(src uint64, relation string, dst uint64) (bool, error) {
	txn, err := g.store.storage.Begin(false)
	if err != nil {
		return false, err
	}
	defer txn.Rollback()

	if relation != "" {
		it, err := txn.Scan(store.TableOutEdges, encoding.AdjacencyTargetPrefix(g.id, src, relation, dst), nil)
		if err != nil {
			return false, err
		}
		defer it.Close()
		return it.Next(), nil
	}

	// Untyped containment check: walk src's adjacency and match the far
	// endpoint.
	it, err := txn.Scan(store.TableOutEdges, encoding.AdjacencyPrefix(g.id, src, ""), nil)
	if err != nil {
		return false, err
	}
	defer it.Close()

	for it.Next() {
		other, _, err := encoding.SplitAdjacencyKey(it.Key())
		if err != nil {
			return false, err
		}
		if other == dst {
			return true, nil
		}
	}
	return false, nil
}

// NodeCount returns the number of nodes in the graph
func (g *Graph) NodeCount() (uint64, error) {
	return g.readCounter(store.TableMeta, encoding.GraphKey(g.id, metaNodeCount))
}

// Cardinality returns the number of nodes carrying the given label; an
// empty label counts every node.
func (g *Graph) Cardinality(label string) (uint64, error) {
	if label == "" {
		return g.NodeCount()
	}
	return g.readCounter(store.TableStats, encoding.StatsKey(g.id, label))
}

// Labels returns every label present in the graph
func (g *Graph) Labels() ([]string, error) {
	txn, err := g.store.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	it, err := txn.Scan(store.TableStats, encoding.AppendUint64(nil, g.id), nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var labels []string
	for it.Next() {
		key := it.Key()
		if len(key) != encoding.IDSize+encoding.HashSize {
			continue
		}
		raw, err := txn.Get(store.TableID2Str, key[encoding.IDSize:])
		if err != nil {
			return nil, err
		}
		labels = append(labels, string(raw))
	}
	return labels, nil
}

func (g *Graph) readCounter(table store.Table, key []byte) (uint64, error) {
	txn, err := g.store.storage.Begin(false)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()

	raw, err := txn.Get(table, key)
	if err != nil {
		if err == store.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

// allNodesIterator walks node records directly
type allNodesIterator struct {
	txn store.Transaction
	it  store.Iterator
}

func (i *allNodesIterator) Next() bool {
	return i.it.Next()
}

func (i *allNodesIterator) Node() (*graph.Node, error) {
	id, err := encoding.SplitIDKey(i.it.Key())
	if err != nil {
		return nil, err
	}
	raw, err := i.it.Value()
	if err != nil {
		return nil, err
	}
	return encoding.DecodeNodeRecord(id, raw)
}

func (i *allNodesIterator) Close() error {
	i.it.Close()
	return i.txn.Rollback()
}

// labelNodesIterator walks the label index and fetches records
type labelNodesIterator struct {
	g   *Graph
	txn store.Transaction
	it  store.Iterator
}

func (i *labelNodesIterator) Next() bool {
	return i.it.Next()
}

func (i *labelNodesIterator) Node() (*graph.Node, error) {
	id, err := encoding.SplitIDKey(i.it.Key())
	if err != nil {
		return nil, err
	}
	raw, err := i.txn.Get(store.TableNodes, encoding.NodeKey(i.g.id, id))
	if err != nil {
		return nil, err
	}
	return encoding.DecodeNodeRecord(id, raw)
}

func (i *labelNodesIterator) Close() error {
	i.it.Close()
	return i.txn.Rollback()
}

// edgeIterator walks one endpoint's adjacency entries
type edgeIterator struct {
	g   *Graph
	txn store.Transaction
	it  store.Iterator
}

func (i *edgeIterator) Next() bool {
	return i.it.Next()
}

func (i *edgeIterator) Edge() (*graph.Edge, error) {
	_, edgeID, err := encoding.SplitAdjacencyKey(i.it.Key())
	if err != nil {
		return nil, err
	}
	raw, err := i.txn.Get(store.TableEdges, encoding.EdgeKey(i.g.id, edgeID))
	if err != nil {
		return nil, err
	}
	return encoding.DecodeEdgeRecord(edgeID, raw)
}

func (i *edgeIterator) Close() error {
	i.it.Close()
	return i.txn.Rollback()
}
