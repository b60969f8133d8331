package encoding

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/grafodb/grafo/pkg/graph"
)

const (
	// Width of an interned string hash in index keys
	HashSize = 16

	// Width of a node/edge identifier in index keys
	IDSize = 8
)

// Hash128 computes a 128-bit xxhash3 of the input string, big-endian so
// hashed key segments sort deterministically.
func Hash128(s string) [HashSize]byte {
	hash := xxh3.Hash128([]byte(s))
	var result [HashSize]byte
	binary.BigEndian.PutUint64(result[0:8], hash.Hi)
	binary.BigEndian.PutUint64(result[8:16], hash.Lo)
	return result
}

// Hash64 computes a 64-bit xxhash3 of the input string. Used for graph
// name prefixes where a key segment of 8 bytes is enough.
func Hash64(s string) uint64 {
	return xxh3.HashString(s)
}

// AppendUint64 appends a big-endian uint64 to dst
func AppendUint64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// AppendString appends a uvarint-length-prefixed string to dst
func AppendString(dst []byte, s string) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(s)))
	dst = append(dst, buf[:n]...)
	return append(dst, s...)
}

// AppendValue appends the binary form of a scalar value to dst: a type
// byte followed by the payload. Node and edge values encode as their
// identifiers.
func AppendValue(dst []byte, v graph.Value) []byte {
	dst = append(dst, byte(v.Type()))
	switch v.Type() {
	case graph.ValueNull:
	case graph.ValueString:
		dst = AppendString(dst, v.Str())
	case graph.ValueInt:
		dst = AppendUint64(dst, uint64(v.Int()))
	case graph.ValueFloat:
		dst = AppendUint64(dst, math.Float64bits(v.Float()))
	case graph.ValueBool:
		if v.Bool() {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case graph.ValueNode:
		dst = AppendUint64(dst, v.Node().ID)
	case graph.ValueEdge:
		dst = AppendUint64(dst, v.Edge().ID)
	}
	return dst
}

func appendProperties(dst []byte, properties map[string]graph.Value) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(properties)))
	dst = append(dst, buf[:n]...)

	// Deterministic record bytes: encode properties in sorted name order
	names := sortedPropertyNames(properties)
	for _, name := range names {
		dst = AppendString(dst, name)
		dst = AppendValue(dst, properties[name])
	}
	return dst
}

// EncodeNodeRecord encodes a node's label and properties
func EncodeNodeRecord(n *graph.Node) []byte {
	dst := AppendString(nil, n.Label)
	return appendProperties(dst, n.Properties)
}

// EncodeEdgeRecord encodes an edge's relationship type, endpoints and
// properties
func EncodeEdgeRecord(e *graph.Edge) []byte {
	dst := AppendString(nil, e.Relation)
	dst = AppendUint64(dst, e.Src)
	dst = AppendUint64(dst, e.Dst)
	return appendProperties(dst, e.Properties)
}

func sortedPropertyNames(properties map[string]graph.Value) []string {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeKey builds the node-record key: graph | node id
func NodeKey(graphID, nodeID uint64) []byte {
	key := AppendUint64(nil, graphID)
	return AppendUint64(key, nodeID)
}

// LabelKey builds the label-index key: graph | label hash | node id
func LabelKey(graphID uint64, label string, nodeID uint64) []byte {
	key := AppendUint64(nil, graphID)
	hash := Hash128(label)
	key = append(key, hash[:]...)
	return AppendUint64(key, nodeID)
}

// LabelPrefix builds the label-index scan prefix: graph | label hash
func LabelPrefix(graphID uint64, label string) []byte {
	key := AppendUint64(nil, graphID)
	hash := Hash128(label)
	return append(key, hash[:]...)
}

// StatsKey builds the cardinality key: graph | label hash
func StatsKey(graphID uint64, label string) []byte {
	return LabelPrefix(graphID, label)
}

// EdgeKey builds the edge-record key: graph | edge id
func EdgeKey(graphID, edgeID uint64) []byte {
	key := AppendUint64(nil, graphID)
	return AppendUint64(key, edgeID)
}

// AdjacencyKey builds an adjacency key:
// graph | endpoint | relation hash | other endpoint | edge id.
// The same layout serves both the outgoing and the incoming table.
func AdjacencyKey(graphID, endpoint uint64, relation string, other, edgeID uint64) []byte {
	key := AppendUint64(nil, graphID)
	key = AppendUint64(key, endpoint)
	hash := Hash128(relation)
	key = append(key, hash[:]...)
	key = AppendUint64(key, other)
	return AppendUint64(key, edgeID)
}

// AdjacencyPrefix builds the scan prefix for one endpoint's adjacency.
// With relation == "" the prefix covers every relationship type.
func AdjacencyPrefix(graphID, endpoint uint64, relation string) []byte {
	key := AppendUint64(nil, graphID)
	key = AppendUint64(key, endpoint)
	if relation != "" {
		hash := Hash128(relation)
		key = append(key, hash[:]...)
	}
	return key
}

// AdjacencyTargetPrefix narrows an adjacency scan to a specific far
// endpoint; the relation must be known.
func AdjacencyTargetPrefix(graphID, endpoint uint64, relation string, other uint64) []byte {
	key := AdjacencyPrefix(graphID, endpoint, relation)
	return AppendUint64(key, other)
}

// GraphKey builds the per-graph metadata key: graph | name
func GraphKey(graphID uint64, name string) []byte {
	key := AppendUint64(nil, graphID)
	return append(key, name...)
}
