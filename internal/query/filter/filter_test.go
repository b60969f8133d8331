package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafodb/grafo/internal/query/ast"
	"github.com/grafodb/grafo/pkg/graph"
)

func pred(alias, property string, op ast.CompareOp, v graph.Value) *PredicateNode {
	return &PredicateNode{Alias: alias, Property: property, Op: op, Value: v}
}

func set(aliases ...string) map[string]bool {
	m := make(map[string]bool)
	for _, a := range aliases {
		m[a] = true
	}
	return m
}

func TestBuildClonesAST(t *testing.T) {
	astTree := ast.NewCondition(
		ast.NewConstantPredicate("a", "age", ast.GT, graph.NewIntValue(30)),
		ast.And,
		ast.NewVaryingPredicate("a", "age", ast.LT, "b", "age"),
	)

	tree := Build(astTree)
	cond, ok := tree.(*ConditionNode)
	require.True(t, ok)
	require.Equal(t, ast.And, cond.Op)

	left, ok := cond.Left.(*PredicateNode)
	require.True(t, ok)
	require.Equal(t, "a", left.Alias)
	require.False(t, left.Varying)

	right, ok := cond.Right.(*PredicateNode)
	require.True(t, ok)
	require.True(t, right.Varying)
	require.Equal(t, "b", right.VaryingAlias)
}

func TestContainsAny(t *testing.T) {
	tree := &ConditionNode{
		Left:  pred("a", "age", ast.GT, graph.NewIntValue(1)),
		Right: pred("b", "age", ast.LT, graph.NewIntValue(9)),
		Op:    ast.And,
	}

	require.True(t, ContainsAny(tree, set("a")))
	require.True(t, ContainsAny(tree, set("b", "zz")))
	require.False(t, ContainsAny(tree, set("zz")))
	require.False(t, ContainsAny(tree, set()))
}

func TestMinSubtreeAndRemoveAreDisjoint(t *testing.T) {
	tree := &ConditionNode{
		Left:  pred("a", "age", ast.GT, graph.NewIntValue(1)),
		Right: pred("b", "age", ast.LT, graph.NewIntValue(9)),
		Op:    ast.And,
	}

	min := MinSubtree(tree, set("a"))
	require.NotNil(t, min)
	p, ok := min.(*PredicateNode)
	require.True(t, ok)
	require.Equal(t, "a", p.Alias)

	residual := RemovePredicates(tree, set("a"))
	require.NotNil(t, residual)
	r, ok := residual.(*PredicateNode)
	require.True(t, ok)
	require.Equal(t, "b", r.Alias)

	// Residual and extracted share no aliases
	for alias := range Aliases(min) {
		require.False(t, Aliases(residual)[alias])
	}
}

func TestMinSubtreeDetached(t *testing.T) {
	tree := pred("a", "age", ast.GT, graph.NewIntValue(1))
	min := MinSubtree(tree, set("a"))
	require.NotNil(t, min)
	// The extraction is a copy, not the original node
	require.NotSame(t, tree, min)
}

func TestOrSubtreeMovesWhole(t *testing.T) {
	or := &ConditionNode{
		Left:  pred("a", "age", ast.GT, graph.NewIntValue(1)),
		Right: pred("b", "age", ast.LT, graph.NewIntValue(9)),
		Op:    ast.Or,
	}

	// Partially covered OR cannot be extracted or pruned
	require.Nil(t, MinSubtree(or, set("a")))
	require.NotNil(t, RemovePredicates(or, set("a")))

	// Fully covered OR moves as a unit
	require.NotNil(t, MinSubtree(or, set("a", "b")))
	require.Nil(t, RemovePredicates(or, set("a", "b")))
}

func TestRemoveEmptiesTree(t *testing.T) {
	tree := &ConditionNode{
		Left:  pred("a", "age", ast.GT, graph.NewIntValue(1)),
		Right: pred("b", "age", ast.LT, graph.NewIntValue(9)),
		Op:    ast.And,
	}
	require.Nil(t, RemovePredicates(tree, set("a", "b")))
}

// lookupFor binds aliases to property maps; a bound alias resolves a
// missing property to null, an unknown alias resolves to unbound.
func lookupFor(vals map[string]map[string]graph.Value) Lookup {
	return func(alias, property string) (graph.Value, bool) {
		properties, ok := vals[alias]
		if !ok {
			return graph.NullValue(), false
		}
		v, ok := properties[property]
		if !ok {
			return graph.NullValue(), true
		}
		return v, true
	}
}

func TestEval(t *testing.T) {
	lookup := lookupFor(map[string]map[string]graph.Value{
		"a": {
			"age":  graph.NewIntValue(40),
			"name": graph.NewStringValue("Ann"),
		},
		"b": {
			"age": graph.NewIntValue(20),
		},
	})

	cases := []struct {
		name string
		tree Node
		want bool
	}{
		{"gt", pred("a", "age", ast.GT, graph.NewIntValue(30)), true},
		{"le", pred("a", "age", ast.LE, graph.NewIntValue(30)), false},
		{"eq string", pred("a", "name", ast.EQ, graph.NewStringValue("Ann")), true},
		{"ne", pred("a", "name", ast.NE, graph.NewStringValue("Bob")), true},
		{"numeric cross-type", pred("a", "age", ast.EQ, graph.NewFloatValue(40)), true},
		{"missing property", pred("a", "height", ast.GT, graph.NewIntValue(1)), false},
		{"incomparable types", pred("a", "name", ast.GT, graph.NewIntValue(1)), false},
		{
			"varying",
			&PredicateNode{Alias: "a", Property: "age", Op: ast.GT, Varying: true, VaryingAlias: "b", VaryingProperty: "age"},
			true,
		},
		{
			"and short-circuit",
			&ConditionNode{
				Left:  pred("a", "age", ast.LT, graph.NewIntValue(0)),
				Right: pred("a", "age", ast.GT, graph.NewIntValue(0)),
				Op:    ast.And,
			},
			false,
		},
		{
			"or",
			&ConditionNode{
				Left:  pred("a", "age", ast.LT, graph.NewIntValue(0)),
				Right: pred("a", "age", ast.GT, graph.NewIntValue(0)),
				Op:    ast.Or,
			},
			true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Eval(tc.tree, lookup)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestEvalUnboundAlias(t *testing.T) {
	_, err := Eval(pred("zz", "age", ast.GT, graph.NewIntValue(1)), lookupFor(nil))
	require.Error(t, err)
}
