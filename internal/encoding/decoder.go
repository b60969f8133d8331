package encoding

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/grafodb/grafo/pkg/graph"
)

// reader walks a record buffer
type reader struct {
	buf []byte
	off int
}

func (r *reader) uint64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, fmt.Errorf("record truncated at offset %d", r.off)
	}
	v := binary.BigEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v, nil
}

func (r *reader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, fmt.Errorf("bad uvarint at offset %d", r.off)
	}
	r.off += n
	return v, nil
}

func (r *reader) string() (string, error) {
	n, err := r.uvarint()
	if err != nil {
		return "", err
	}
	if r.off+int(n) > len(r.buf) {
		return "", fmt.Errorf("string overruns record at offset %d", r.off)
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

func (r *reader) value() (graph.Value, error) {
	if r.off >= len(r.buf) {
		return graph.NullValue(), fmt.Errorf("value truncated at offset %d", r.off)
	}
	t := graph.ValueType(r.buf[r.off])
	r.off++

	switch t {
	case graph.ValueNull:
		return graph.NullValue(), nil
	case graph.ValueString:
		s, err := r.string()
		if err != nil {
			return graph.NullValue(), err
		}
		return graph.NewStringValue(s), nil
	case graph.ValueInt:
		v, err := r.uint64()
		if err != nil {
			return graph.NullValue(), err
		}
		return graph.NewIntValue(int64(v)), nil
	case graph.ValueFloat:
		v, err := r.uint64()
		if err != nil {
			return graph.NullValue(), err
		}
		return graph.NewFloatValue(math.Float64frombits(v)), nil
	case graph.ValueBool:
		if r.off >= len(r.buf) {
			return graph.NullValue(), fmt.Errorf("bool truncated at offset %d", r.off)
		}
		b := r.buf[r.off] != 0
		r.off++
		return graph.NewBoolValue(b), nil
	default:
		return graph.NullValue(), fmt.Errorf("unknown value type tag %d", t)
	}
}

func (r *reader) properties() (map[string]graph.Value, error) {
	count, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	properties := make(map[string]graph.Value, count)
	for i := uint64(0); i < count; i++ {
		name, err := r.string()
		if err != nil {
			return nil, err
		}
		v, err := r.value()
		if err != nil {
			return nil, err
		}
		properties[name] = v
	}
	return properties, nil
}

// DecodeValue decodes a single scalar value. Node and edge values decode
// as identifiers only and are rejected here; they never appear in
// stored property records.
func DecodeValue(buf []byte) (graph.Value, error) {
	r := &reader{buf: buf}
	return r.value()
}

// DecodeNodeRecord decodes a node record; the caller supplies the id
func DecodeNodeRecord(id uint64, buf []byte) (*graph.Node, error) {
	r := &reader{buf: buf}
	label, err := r.string()
	if err != nil {
		return nil, fmt.Errorf("failed to decode node %d: %w", id, err)
	}
	properties, err := r.properties()
	if err != nil {
		return nil, fmt.Errorf("failed to decode node %d: %w", id, err)
	}
	n := graph.NewNode(label, properties)
	n.ID = id
	return n, nil
}

// DecodeEdgeRecord decodes an edge record; the caller supplies the id
func DecodeEdgeRecord(id uint64, buf []byte) (*graph.Edge, error) {
	r := &reader{buf: buf}
	relation, err := r.string()
	if err != nil {
		return nil, fmt.Errorf("failed to decode edge %d: %w", id, err)
	}
	src, err := r.uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to decode edge %d: %w", id, err)
	}
	dst, err := r.uint64()
	if err != nil {
		return nil, fmt.Errorf("failed to decode edge %d: %w", id, err)
	}
	properties, err := r.properties()
	if err != nil {
		return nil, fmt.Errorf("failed to decode edge %d: %w", id, err)
	}
	e := graph.NewEdge(relation, src, dst, properties)
	e.ID = id
	return e, nil
}

// SplitAdjacencyKey extracts the far endpoint and edge id from an
// adjacency key (the near endpoint and relation hash are the scan
// prefix). Layout: graph(8) | endpoint(8) | relation hash(16) |
// other(8) | edge id(8).
func SplitAdjacencyKey(key []byte) (other, edgeID uint64, err error) {
	const full = IDSize + IDSize + HashSize + IDSize + IDSize
	if len(key) != full {
		return 0, 0, fmt.Errorf("bad adjacency key length %d", len(key))
	}
	other = binary.BigEndian.Uint64(key[IDSize+IDSize+HashSize:])
	edgeID = binary.BigEndian.Uint64(key[IDSize+IDSize+HashSize+IDSize:])
	return other, edgeID, nil
}

// SplitIDKey extracts the trailing 8-byte identifier from an index key
func SplitIDKey(key []byte) (uint64, error) {
	if len(key) < IDSize {
		return 0, fmt.Errorf("bad index key length %d", len(key))
	}
	return binary.BigEndian.Uint64(key[len(key)-IDSize:]), nil
}
