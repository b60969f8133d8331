package store

import (
	"encoding/binary"
	"fmt"

	"github.com/grafodb/grafo/internal/encoding"
	"github.com/grafodb/grafo/pkg/graph"
	"github.com/grafodb/grafo/pkg/store"
)

// GraphStore manages named property graphs over a key-value storage
type GraphStore struct {
	storage store.Storage
}

// NewGraphStore creates a graph store on top of the given storage
func NewGraphStore(storage store.Storage) *GraphStore {
	return &GraphStore{storage: storage}
}

// Close closes the underlying storage
func (s *GraphStore) Close() error {
	return s.storage.Close()
}

// Sync flushes the underlying storage to disk
func (s *GraphStore) Sync() error {
	return s.storage.Sync()
}

// Graph returns a handle to the named graph, creating its metadata on
// first write
func (s *GraphStore) Graph(name string) *Graph {
	return &Graph{
		store: s,
		name:  name,
		id:    encoding.Hash64(name),
	}
}

// Graph is a handle to one named property graph
type Graph struct {
	store *GraphStore
	name  string
	id    uint64
}

// Name returns the graph's name
func (g *Graph) Name() string {
	return g.name
}

// InsertNode stores a node and indexes its label. Returns the assigned
// node identifier.
func (g *Graph) InsertNode(label string, properties map[string]graph.Value) (uint64, error) {
	txn, err := g.store.storage.Begin(true)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()

	id, err := g.nextID(txn, metaNodeSeq)
	if err != nil {
		return 0, err
	}

	n := graph.NewNode(label, properties)
	n.ID = id
	if err := txn.Set(store.TableNodes, encoding.NodeKey(g.id, id), encoding.EncodeNodeRecord(n)); err != nil {
		return 0, err
	}

	if label != "" {
		if err := txn.Set(store.TableLabels, encoding.LabelKey(g.id, label, id), nil); err != nil {
			return 0, err
		}
		if err := g.bumpCounter(txn, store.TableStats, encoding.StatsKey(g.id, label)); err != nil {
			return 0, err
		}
		if err := g.internString(txn, label); err != nil {
			return 0, err
		}
	}

	if err := g.bumpCounter(txn, store.TableMeta, encoding.GraphKey(g.id, metaNodeCount)); err != nil {
		return 0, err
	}

	return id, txn.Commit()
}

// InsertEdge stores a directed edge and both adjacency entries. Returns
// the assigned edge identifier. Both endpoints must exist.
func (g *Graph) InsertEdge(src uint64, relation string, dst uint64, properties map[string]graph.Value) (uint64, error) {
	txn, err := g.store.storage.Begin(true)
	if err != nil {
		return 0, err
	}
	defer txn.Rollback()

	for _, endpoint := range []uint64{src, dst} {
		if _, err := txn.Get(store.TableNodes, encoding.NodeKey(g.id, endpoint)); err != nil {
			if err == store.ErrNotFound {
				return 0, fmt.Errorf("edge endpoint %d does not exist", endpoint)
			}
			return 0, err
		}
	}

	id, err := g.nextID(txn, metaEdgeSeq)
	if err != nil {
		return 0, err
	}

	e := graph.NewEdge(relation, src, dst, properties)
	e.ID = id
	if err := txn.Set(store.TableEdges, encoding.EdgeKey(g.id, id), encoding.EncodeEdgeRecord(e)); err != nil {
		return 0, err
	}

	if err := txn.Set(store.TableOutEdges, encoding.AdjacencyKey(g.id, src, relation, dst, id), nil); err != nil {
		return 0, err
	}
	if err := txn.Set(store.TableInEdges, encoding.AdjacencyKey(g.id, dst, relation, src, id), nil); err != nil {
		return 0, err
	}

	if relation != "" {
		if err := g.internString(txn, relation); err != nil {
			return 0, err
		}
	}

	return id, txn.Commit()
}

// Per-graph metadata keys
const (
	metaNodeSeq   = "nodes:seq"
	metaEdgeSeq   = "edges:seq"
	metaNodeCount = "nodes:count"
)

// nextID allocates the next identifier from a per-graph sequence.
// Identifiers start at 1; 0 is never a valid id.
func (g *Graph) nextID(txn store.Transaction, seq string) (uint64, error) {
	key := encoding.GraphKey(g.id, seq)
	next := uint64(1)
	if raw, err := txn.Get(store.TableMeta, key); err == nil {
		next = binary.BigEndian.Uint64(raw) + 1
	} else if err != store.ErrNotFound {
		return 0, err
	}
	if err := txn.Set(store.TableMeta, key, encoding.AppendUint64(nil, next)); err != nil {
		return 0, err
	}
	return next, nil
}

func (g *Graph) bumpCounter(txn store.Transaction, table store.Table, key []byte) error {
	count := uint64(0)
	if raw, err := txn.Get(table, key); err == nil {
		count = binary.BigEndian.Uint64(raw)
	} else if err != store.ErrNotFound {
		return err
	}
	return txn.Set(table, key, encoding.AppendUint64(nil, count+1))
}

func (g *Graph) internString(txn store.Transaction, s string) error {
	hash := encoding.Hash128(s)
	return txn.Set(store.TableID2Str, hash[:], []byte(s))
}
