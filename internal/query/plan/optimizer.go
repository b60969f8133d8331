package plan

import (
	"github.com/grafodb/grafo/internal/query/filter"
	"github.com/grafodb/grafo/internal/query/pattern"
)

// attachScans locates leaf expansions and attaches the scan that
// materializes their entry binding: a label scan when the scanned
// pattern node is labeled, a full node scan otherwise. The source
// endpoint is scanned unless the cardinality option picks the cheaper
// one.
func (p *ExecutionPlan) attachScans(root *OpNode) {
	if len(root.Children) == 0 {
		if ea, ok := root.Op.(*ExpandAll); ok {
			entry := ea.src

			if p.options.ScanByCardinality {
				srcCard, err1 := p.graph.Cardinality(ea.src.Label)
				dstCard, err2 := p.graph.Cardinality(ea.dst.Label)
				if err1 == nil && err2 == nil && dstCard < srcCard {
					// Scan the destination and walk the edge backwards
					entry = ea.dst
					ea.reverse = true
				}
			}

			AddChild(root, NewOpNode(p.newScan(entry)))
		}
		return
	}

	for _, c := range root.Children {
		p.attachScans(c)
	}
}

// convertCycleClosures rewrites, in place, every expansion whose
// destination is already bound lower in its own chain. Such an
// expansion closes a cycle: producing fresh destination bindings would
// be wrong, the edge's existence is all that is left to check.
func (p *ExecutionPlan) convertCycleClosures(n *OpNode) map[string]bool {
	bound := make(map[string]bool)
	for _, c := range n.Children {
		for alias := range p.convertCycleClosures(c) {
			bound[alias] = true
		}
	}

	if ea, ok := n.Op.(*ExpandAll); ok && !ea.reverse && bound[ea.dst.Alias] {
		n.Op = NewExpandInto(p.graph, ea.src, ea.edge, ea.dst, p.record)
		ea.Free()
	}

	for _, m := range n.Op.Modifies() {
		bound[m] = true
	}
	return bound
}

// mergeExpansions handles a pattern node two chains converge on: of the
// two expansions producing its binding, the first found from the root
// becomes an ExpandInto fed by the second, so one side keeps producing
// destination bindings and the other degenerates into a containment
// check.
func (p *ExecutionPlan) mergeExpansions(n *pattern.Node) {
	if n.InDegree() != 2 {
		return
	}

	// Locate both expansions targeting n, breadth-first from the root
	var a, b *OpNode
	visited := map[*OpNode]bool{p.Root: true}
	queue := []*OpNode{p.Root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if ea, ok := current.Op.(*ExpandAll); ok && ea.dst.Alias == n.Alias {
			if a == nil {
				a = current
				continue
			}
			b = current
			break
		}

		for _, c := range current.Children {
			if !visited[c] {
				visited[c] = true
				queue = append(queue, c)
			}
		}
	}

	if a == nil || b == nil {
		return
	}

	// Replace a's operator with the containment check
	ea := a.Op.(*ExpandAll)
	a.Op = NewExpandInto(p.graph, ea.src, ea.edge, ea.dst, p.record)
	ea.Free()

	// b now feeds a, giving the check both bound endpoints
	AddChild(a, b)

	// a inherits b's remaining consumers; b's output flows only
	// through a from here on.
	parents := append([]*OpNode(nil), b.Parents...)
	for _, bParent := range parents {
		if bParent == a {
			continue
		}
		if !bParent.ContainsChild(a) {
			AddChild(bParent, a)
		}
		RemoveChild(bParent, b)
	}
}

// pushFilters walks the plan post-order, tracking the aliases bound by
// each subtree. The WHERE sub-expression covered by a subtree's
// bindings is split off and planted right above that subtree, so tuples
// are filtered at the earliest legal point.
func (p *ExecutionPlan) pushFilters(root *OpNode) map[string]bool {
	seen := make(map[string]bool)

	for i := len(root.Children) - 1; i >= 0; i-- {
		saw := p.pushFilters(root.Children[i])

		// Filter tree emptied mid-walk, nothing left to place
		if p.filterTree == nil {
			return nil
		}

		for alias := range saw {
			seen[alias] = true
		}
	}

	if filter.ContainsAny(p.filterTree, seen) {
		if minTree := filter.MinSubtree(p.filterTree, seen); minTree != nil {
			p.filterTree = filter.RemovePredicates(p.filterTree, seen)
			PushInBetween(root, NewOpNode(NewFilter(minTree, p.record)))
		}
	}

	for _, m := range root.Op.Modifies() {
		seen[m] = true
	}
	return seen
}
