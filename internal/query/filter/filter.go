package filter

import (
	"fmt"
	"strings"

	"github.com/grafodb/grafo/internal/query/ast"
	"github.com/grafodb/grafo/pkg/graph"
)

// Node is a filter-tree node. The tree is detached from the AST so the
// planner can prune it while the AST stays intact.
type Node interface {
	filterNode()
}

// PredicateNode compares an entity property against a constant or
// another bound property
type PredicateNode struct {
	Alias    string
	Property string
	Op       ast.CompareOp

	Value graph.Value

	Varying         bool
	VaryingAlias    string
	VaryingProperty string
}

func (*PredicateNode) filterNode() {}

// ConditionNode joins two subtrees with AND/OR
type ConditionNode struct {
	Left  Node
	Right Node
	Op    ast.BoolOp
}

func (*ConditionNode) filterNode() {}

// Build clones an AST filter expression into a detached filter tree
func Build(f ast.FilterNode) Node {
	switch n := f.(type) {
	case *ast.PredicateNode:
		return &PredicateNode{
			Alias:           n.Alias,
			Property:        n.Property,
			Op:              n.Op,
			Value:           n.Value,
			Varying:         n.Varying,
			VaryingAlias:    n.VaryingAlias,
			VaryingProperty: n.VaryingProperty,
		}
	case *ast.ConditionNode:
		return &ConditionNode{
			Left:  Build(n.Left),
			Right: Build(n.Right),
			Op:    n.Op,
		}
	default:
		return nil
	}
}

// Aliases returns the set of entity aliases the tree references
func Aliases(n Node) map[string]bool {
	aliases := make(map[string]bool)
	collectAliases(n, aliases)
	return aliases
}

func collectAliases(n Node, into map[string]bool) {
	switch t := n.(type) {
	case *PredicateNode:
		into[t.Alias] = true
		if t.Varying {
			into[t.VaryingAlias] = true
		}
	case *ConditionNode:
		collectAliases(t.Left, into)
		collectAliases(t.Right, into)
	}
}

// ContainsAny reports whether the tree references at least one of the
// given aliases
func ContainsAny(n Node, aliases map[string]bool) bool {
	switch t := n.(type) {
	case *PredicateNode:
		if aliases[t.Alias] {
			return true
		}
		return t.Varying && aliases[t.VaryingAlias]
	case *ConditionNode:
		return ContainsAny(t.Left, aliases) || ContainsAny(t.Right, aliases)
	default:
		return false
	}
}

func covered(n Node, aliases map[string]bool) bool {
	for alias := range Aliases(n) {
		if !aliases[alias] {
			return false
		}
	}
	return true
}

// MinSubtree extracts the maximal sub-expression whose free aliases are
// all inside the given set. The returned tree shares no structure with
// the input. AND nodes may contribute one side; OR nodes only qualify
// whole.
func MinSubtree(n Node, aliases map[string]bool) Node {
	switch t := n.(type) {
	case *PredicateNode:
		if covered(t, aliases) {
			return clone(t)
		}
		return nil
	case *ConditionNode:
		if t.Op == ast.Or {
			if covered(t, aliases) {
				return clone(t)
			}
			return nil
		}
		left := MinSubtree(t.Left, aliases)
		right := MinSubtree(t.Right, aliases)
		switch {
		case left != nil && right != nil:
			return &ConditionNode{Left: left, Right: right, Op: ast.And}
		case left != nil:
			return left
		default:
			return right
		}
	default:
		return nil
	}
}

// RemovePredicates prunes from the tree every predicate whose free
// aliases are all inside the given set, returning the residual tree
// (nil when nothing remains). OR subtrees are removed only as a whole,
// mirroring MinSubtree, so residual and extracted stay disjoint.
func RemovePredicates(n Node, aliases map[string]bool) Node {
	switch t := n.(type) {
	case *PredicateNode:
		if covered(t, aliases) {
			return nil
		}
		return t
	case *ConditionNode:
		if t.Op == ast.Or {
			if covered(t, aliases) {
				return nil
			}
			return t
		}
		left := RemovePredicates(t.Left, aliases)
		right := RemovePredicates(t.Right, aliases)
		switch {
		case left == nil && right == nil:
			return nil
		case left == nil:
			return right
		case right == nil:
			return left
		default:
			t.Left = left
			t.Right = right
			return t
		}
	default:
		return nil
	}
}

func clone(n Node) Node {
	switch t := n.(type) {
	case *PredicateNode:
		c := *t
		return &c
	case *ConditionNode:
		return &ConditionNode{Left: clone(t.Left), Right: clone(t.Right), Op: t.Op}
	default:
		return nil
	}
}

// Lookup resolves alias.property against the current bindings
type Lookup func(alias, property string) (graph.Value, bool)

// Eval evaluates the tree against the current bindings. A predicate
// over an unbound alias is an evaluation error; a missing property
// evaluates to null and fails every comparison.
func Eval(n Node, lookup Lookup) (bool, error) {
	switch t := n.(type) {
	case *PredicateNode:
		return evalPredicate(t, lookup)
	case *ConditionNode:
		left, err := Eval(t.Left, lookup)
		if err != nil {
			return false, err
		}
		if t.Op == ast.And {
			if !left {
				return false, nil
			}
			return Eval(t.Right, lookup)
		}
		if left {
			return true, nil
		}
		return Eval(t.Right, lookup)
	default:
		return false, fmt.Errorf("cannot evaluate filter node %T", n)
	}
}

func evalPredicate(p *PredicateNode, lookup Lookup) (bool, error) {
	lhs, ok := lookup(p.Alias, p.Property)
	if !ok {
		return false, fmt.Errorf("filter references unbound alias %q", p.Alias)
	}

	rhs := p.Value
	if p.Varying {
		v, ok := lookup(p.VaryingAlias, p.VaryingProperty)
		if !ok {
			return false, fmt.Errorf("filter references unbound alias %q", p.VaryingAlias)
		}
		rhs = v
	}

	if lhs.IsNull() || rhs.IsNull() {
		return false, nil
	}

	switch p.Op {
	case ast.EQ:
		return lhs.Equals(rhs), nil
	case ast.NE:
		return !lhs.Equals(rhs), nil
	}

	if !orderable(lhs, rhs) {
		return false, nil
	}

	cmp := lhs.Compare(rhs)
	switch p.Op {
	case ast.GT:
		return cmp > 0, nil
	case ast.GE:
		return cmp >= 0, nil
	case ast.LT:
		return cmp < 0, nil
	case ast.LE:
		return cmp <= 0, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %d", p.Op)
	}
}

// orderable reports whether ordering the two values is meaningful:
// both numeric, or both of the same scalar type.
func orderable(a, b graph.Value) bool {
	if _, ok := a.Numeric(); ok {
		_, ok := b.Numeric()
		return ok
	}
	return a.Type() == b.Type()
}

// String renders the tree for diagnostics
func String(n Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	switch t := n.(type) {
	case *PredicateNode:
		fmt.Fprintf(b, "%s.%s %s ", t.Alias, t.Property, t.Op)
		if t.Varying {
			fmt.Fprintf(b, "%s.%s", t.VaryingAlias, t.VaryingProperty)
		} else {
			b.WriteString(t.Value.String())
		}
	case *ConditionNode:
		b.WriteString("(")
		writeNode(b, t.Left)
		fmt.Fprintf(b, " %s ", t.Op)
		writeNode(b, t.Right)
		b.WriteString(")")
	}
}
