package graph

import (
	"fmt"
	"strconv"
)

// ValueType represents the type tag of a scalar value
type ValueType byte

const (
	ValueNull ValueType = iota
	ValueString
	ValueInt
	ValueFloat
	ValueBool

	// Entity references, used when a query returns a whole node or edge
	ValueNode
	ValueEdge
)

func (t ValueType) String() string {
	switch t {
	case ValueNull:
		return "null"
	case ValueString:
		return "string"
	case ValueInt:
		return "integer"
	case ValueFloat:
		return "float"
	case ValueBool:
		return "boolean"
	case ValueNode:
		return "node"
	case ValueEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// Value is a tagged scalar union. The zero value is null.
type Value struct {
	t    ValueType
	str  string
	i    int64
	f    float64
	b    bool
	node *Node
	edge *Edge
}

// NullValue returns the null value
func NullValue() Value {
	return Value{t: ValueNull}
}

// NewStringValue creates a string value
func NewStringValue(s string) Value {
	return Value{t: ValueString, str: s}
}

// NewIntValue creates an integer value
func NewIntValue(i int64) Value {
	return Value{t: ValueInt, i: i}
}

// NewFloatValue creates a floating point value
func NewFloatValue(f float64) Value {
	return Value{t: ValueFloat, f: f}
}

// NewBoolValue creates a boolean value
func NewBoolValue(b bool) Value {
	return Value{t: ValueBool, b: b}
}

// NewNodeValue creates a value referencing a graph node
func NewNodeValue(n *Node) Value {
	return Value{t: ValueNode, node: n}
}

// NewEdgeValue creates a value referencing a graph edge
func NewEdgeValue(e *Edge) Value {
	return Value{t: ValueEdge, edge: e}
}

// Type returns the value's type tag
func (v Value) Type() ValueType {
	return v.t
}

// IsNull reports whether the value is null
func (v Value) IsNull() bool {
	return v.t == ValueNull
}

// Str returns the string payload
func (v Value) Str() string {
	return v.str
}

// Int returns the integer payload
func (v Value) Int() int64 {
	return v.i
}

// Float returns the floating point payload
func (v Value) Float() float64 {
	return v.f
}

// Bool returns the boolean payload
func (v Value) Bool() bool {
	return v.b
}

// Node returns the referenced node, or nil
func (v Value) Node() *Node {
	return v.node
}

// Edge returns the referenced edge, or nil
func (v Value) Edge() *Edge {
	return v.edge
}

// Numeric returns the value as a float64 if it is numeric
func (v Value) Numeric() (float64, bool) {
	switch v.t {
	case ValueInt:
		return float64(v.i), true
	case ValueFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Equals reports whether two values are equal. Integers and floats
// compare numerically across the two types.
func (v Value) Equals(other Value) bool {
	if ln, lok := v.Numeric(); lok {
		if rn, rok := other.Numeric(); rok {
			return ln == rn
		}
		return false
	}

	if v.t != other.t {
		return false
	}

	switch v.t {
	case ValueNull:
		return true
	case ValueString:
		return v.str == other.str
	case ValueBool:
		return v.b == other.b
	case ValueNode:
		return v.node != nil && other.node != nil && v.node.ID == other.node.ID
	case ValueEdge:
		return v.edge != nil && other.edge != nil && v.edge.ID == other.edge.ID
	default:
		return false
	}
}

// Compare orders two values: -1, 0 or 1. Values of different,
// non-numeric types order by type tag so that sorting mixed columns
// stays deterministic. Null sorts before everything.
func (v Value) Compare(other Value) int {
	if ln, lok := v.Numeric(); lok {
		if rn, rok := other.Numeric(); rok {
			switch {
			case ln < rn:
				return -1
			case ln > rn:
				return 1
			default:
				return 0
			}
		}
	}

	if v.t != other.t {
		if v.t < other.t {
			return -1
		}
		return 1
	}

	switch v.t {
	case ValueString:
		switch {
		case v.str < other.str:
			return -1
		case v.str > other.str:
			return 1
		}
	case ValueBool:
		if !v.b && other.b {
			return -1
		}
		if v.b && !other.b {
			return 1
		}
	case ValueNode:
		return compareIDs(v.node.ID, other.node.ID)
	case ValueEdge:
		return compareIDs(v.edge.ID, other.edge.ID)
	}
	return 0
}

func compareIDs(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.t {
	case ValueNull:
		return "NULL"
	case ValueString:
		return v.str
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.b)
	case ValueNode:
		return v.node.String()
	case ValueEdge:
		return v.edge.String()
	default:
		return fmt.Sprintf("value(%d)", v.t)
	}
}
