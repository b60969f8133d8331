package plan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/grafodb/grafo/internal/query/ast"
	"github.com/grafodb/grafo/internal/query/filter"
	"github.com/grafodb/grafo/internal/query/pattern"
)

// ErrUnboundAlias marks plan-construction failures caused by a query
// clause referencing an alias the pattern never binds
var ErrUnboundAlias = errors.New("unbound alias")

// Options tune the planner
type Options struct {
	// ScanByCardinality lets the optimizer scan the lower-cardinality
	// endpoint of a leaf expansion instead of its source. Off by
	// default: the source endpoint is scanned.
	ScanByCardinality bool
}

// ExecutionPlan is a rooted operator DAG ready to execute
type ExecutionPlan struct {
	Root *OpNode

	graph   DataGraph
	pattern *pattern.Graph
	record  *Record
	options Options

	// Residual WHERE tree during filter pushdown; empty once every
	// predicate found its operator.
	filterTree filter.Node

	produceResults *ProduceResults
}

// Pattern returns the plan's pattern graph
func (p *ExecutionPlan) Pattern() *pattern.Graph {
	return p.pattern
}

// Free releases every operator's resources in post-order
func (p *ExecutionPlan) Free() {
	FreeOpNode(p.Root)
}

// NewExecutionPlan builds a plan for the query with default options
func NewExecutionPlan(g DataGraph, q *ast.Query) (*ExecutionPlan, error) {
	return NewExecutionPlanWithOptions(g, q, Options{})
}

// NewExecutionPlanWithOptions builds and optimizes the operator DAG for
// a query. Structural preconditions are validated eagerly: a malformed
// query yields an error and no plan.
func NewExecutionPlanWithOptions(g DataGraph, q *ast.Query, opts Options) (*ExecutionPlan, error) {
	if q == nil {
		return nil, fmt.Errorf("no query expression")
	}
	ret := q.Return
	if ret == nil {
		ret = ast.NewReturnClause(nil, false)
	}

	pat, err := pattern.Build(q.Match)
	if err != nil {
		return nil, err
	}

	if err := validateAliases(pat, q, ret); err != nil {
		return nil, err
	}

	record := NewRecord()

	orderCols, desc, hasOrder, err := resolveOrder(ret, q.Order)
	if err != nil {
		return nil, err
	}
	limit := 0
	if q.Limit != nil {
		limit = q.Limit.Limit
	}

	produceResults := NewProduceResults(ret, orderCols, desc, hasOrder, limit, record)
	root := NewOpNode(produceResults)

	p := &ExecutionPlan{
		Root:           root,
		graph:          g,
		pattern:        pat,
		record:         record,
		options:        opts,
		produceResults: produceResults,
	}

	if q.Where != nil {
		p.filterTree = filter.Build(q.Where.Filters)
	}
	p.foldInlineProperties()

	// Pending operator stack: linked bottom-up once per subpattern
	ops := []*OpNode{root}

	if ret.ContainsAggregation() {
		agg, err := NewAggregate(ret, record)
		if err != nil {
			return nil, err
		}
		aggNode := NewOpNode(agg)
		agg.node = aggNode
		ops = append(ops, aggNode)
	}

	visitedEdges := make(map[*pattern.Edge]bool)
	for _, entry := range entryNodes(pat) {
		chain := p.buildChain(entry, visitedEdges)
		if len(chain) == 0 {
			// Hanging node "()": nothing to expand, scan it directly
			chain = []*OpNode{NewOpNode(p.newScan(entry))}
		}
		// Reverse so the first expansion ends up lowest in the plan
		for i := len(chain) - 1; i >= 0; i-- {
			ops = append(ops, chain[i])
		}

		// Link pending operators parent-above-child and start the next
		// subpattern fresh from the root.
		if len(ops) > 1 {
			prev := ops[len(ops)-1]
			for i := len(ops) - 2; i >= 0; i-- {
				AddChild(ops[i], prev)
				prev = ops[i]
			}
			ops = []*OpNode{root}
		}
	}

	// Optimizations and modifications
	p.attachScans(root)
	p.convertCycleClosures(root)
	for _, n := range pat.NodesByInDegree(2) {
		p.mergeExpansions(n)
	}
	if p.filterTree != nil {
		p.pushFilters(root)
		if p.filterTree != nil {
			return nil, fmt.Errorf("%w: WHERE references bindings the plan never produces: %s",
				ErrUnboundAlias, filter.String(p.filterTree))
		}
	}

	return p, nil
}

// buildChain walks the outgoing chain from an entry node, emitting one
// ExpandAll per hop in walk order. Edges already consumed by an earlier
// walk are skipped, which both terminates cycles and keeps shared
// suffixes from being expanded twice.
func (p *ExecutionPlan) buildChain(entry *pattern.Node, visited map[*pattern.Edge]bool) []*OpNode {
	var chain []*OpNode

	src := entry
	for {
		var edge *pattern.Edge
		for _, e := range src.Out {
			if !visited[e] {
				edge = e
				break
			}
		}
		if edge == nil {
			break
		}
		visited[edge] = true

		chain = append(chain, NewOpNode(NewExpandAll(p.graph, edge.Src, edge, edge.Dst, p.record)))
		src = edge.Dst
	}
	return chain
}

func (p *ExecutionPlan) newScan(n *pattern.Node) Operator {
	if n.Label != "" {
		return NewNodeByLabelScan(p.graph, n, n.Label, p.record)
	}
	return NewAllNodeScan(p.graph, n, p.record)
}

// entryNodes returns each weakly connected component's traversal
// entries: its zero-in-degree nodes, or — for a fully cyclic component
// — its first node in declaration order.
func entryNodes(pat *pattern.Graph) []*pattern.Node {
	component := make(map[*pattern.Node]int)
	next := 0
	for _, n := range pat.Nodes {
		if _, ok := component[n]; ok {
			continue
		}
		queue := []*pattern.Node{n}
		component[n] = next
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, e := range cur.Out {
				if _, ok := component[e.Dst]; !ok {
					component[e.Dst] = next
					queue = append(queue, e.Dst)
				}
			}
			for _, e := range cur.In {
				if _, ok := component[e.Src]; !ok {
					component[e.Src] = next
					queue = append(queue, e.Src)
				}
			}
		}
		next++
	}

	entries := make([]*pattern.Node, 0, next)
	covered := make(map[int]bool)
	for _, n := range pat.Nodes {
		if n.InDegree() == 0 {
			entries = append(entries, n)
			covered[component[n]] = true
		}
	}
	// Cyclic components have no natural entry; break the cycle at the
	// first declared node.
	for _, n := range pat.Nodes {
		if !covered[component[n]] {
			entries = append(entries, n)
			covered[component[n]] = true
		}
	}
	return entries
}

// foldInlineProperties turns `(a {name: v})` property maps into
// constant equality predicates joined into the WHERE tree, so pushdown
// places them at the earliest point a's binding exists.
func (p *ExecutionPlan) foldInlineProperties() {
	for _, n := range p.pattern.Nodes {
		if len(n.Properties) == 0 {
			continue
		}
		names := make([]string, 0, len(n.Properties))
		for name := range n.Properties {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			pred := &filter.PredicateNode{
				Alias:    n.Alias,
				Property: name,
				Op:       ast.EQ,
				Value:    n.Properties[name],
			}
			if p.filterTree == nil {
				p.filterTree = pred
			} else {
				p.filterTree = &filter.ConditionNode{Left: p.filterTree, Right: pred, Op: ast.And}
			}
		}
	}
}

// validateAliases rejects queries whose WHERE or RETURN clauses
// reference aliases the pattern does not declare. ORDER BY columns are
// checked against the RETURN clause by resolveOrder.
func validateAliases(pat *pattern.Graph, q *ast.Query, ret *ast.ReturnClause) error {
	if q.Where != nil {
		tree := filter.Build(q.Where.Filters)
		for alias := range filter.Aliases(tree) {
			if !pat.HasAlias(alias) {
				return fmt.Errorf("%w %q in WHERE clause", ErrUnboundAlias, alias)
			}
		}
	}
	for _, e := range ret.Elements {
		if !pat.HasAlias(e.Alias) {
			return fmt.Errorf("%w %q in RETURN clause", ErrUnboundAlias, e.Alias)
		}
	}
	return nil
}

// resolveOrder maps ORDER BY columns onto result-column indexes
func resolveOrder(ret *ast.ReturnClause, order *ast.OrderClause) ([]int, bool, bool, error) {
	if order == nil {
		return nil, false, false, nil
	}

	cols := make([]int, 0, len(order.Columns))
	for _, c := range order.Columns {
		idx := -1
		for i, e := range ret.Elements {
			if matchColumn(c, e) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, false, false, fmt.Errorf("%w: ORDER BY column %q is not part of the RETURN clause", ErrUnboundAlias, columnRef(c))
		}
		cols = append(cols, idx)
	}
	return cols, order.Direction == ast.OrderDesc, true, nil
}

func matchColumn(c *ast.Column, e *ast.ReturnElement) bool {
	if c.Property == "" {
		// Output alias or whole-entity column
		return (e.As != "" && e.As == c.Alias) || (e.As == "" && e.Type == ast.ReturnEntity && e.Alias == c.Alias)
	}
	return e.Type == ast.ReturnProperty && e.Alias == c.Alias && e.Property == c.Property
}

func columnRef(c *ast.Column) string {
	if c.Property == "" {
		return c.Alias
	}
	return c.Alias + "." + c.Property
}
