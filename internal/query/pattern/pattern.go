package pattern

import (
	"fmt"

	"github.com/grafodb/grafo/internal/query/ast"
	"github.com/grafodb/grafo/pkg/graph"
)

// Node is a pattern node: one aliased entity of the MATCH clause.
// Nodes are deduplicated by alias, so a reused alias yields a single
// node accumulating every occurrence's edges.
type Node struct {
	Alias      string
	Label      string
	Properties map[string]graph.Value
	Out        []*Edge
	In         []*Edge
}

// InDegree returns the number of incoming pattern edges
func (n *Node) InDegree() int {
	return len(n.In)
}

// OutDegree returns the number of outgoing pattern edges
func (n *Node) OutDegree() int {
	return len(n.Out)
}

// Edge is a directed pattern edge, normalized to left-to-right
// orientation
type Edge struct {
	Alias    string
	Relation string
	Src      *Node
	Dst      *Node
}

// Graph is the in-memory pattern: the subgraph shape declared by MATCH
type Graph struct {
	Nodes []*Node
	Edges []*Edge

	byAlias map[string]*Node
}

// Build constructs the pattern graph from a MATCH clause. The entity
// list alternates nodes and links; two adjacent node entities start a
// new disconnected subpattern. Link direction is normalized so every
// pattern edge points source to destination.
func Build(match *ast.MatchClause) (*Graph, error) {
	g := &Graph{byAlias: make(map[string]*Node)}
	if match == nil {
		return g, nil
	}

	var prev *Node
	var pending *ast.LinkEntity

	for i, entity := range match.Entities {
		switch e := entity.(type) {
		case *ast.NodeEntity:
			n, err := g.addNode(e)
			if err != nil {
				return nil, err
			}
			if pending != nil {
				g.addEdge(pending, prev, n)
				pending = nil
			}
			prev = n

		case *ast.LinkEntity:
			if prev == nil || pending != nil {
				return nil, fmt.Errorf("malformed pattern: link at position %d has no source node", i)
			}
			pending = e

		default:
			return nil, fmt.Errorf("malformed pattern: unknown entity at position %d", i)
		}
	}

	if pending != nil {
		return nil, fmt.Errorf("malformed pattern: trailing link has no destination node")
	}
	return g, nil
}

func (g *Graph) addNode(e *ast.NodeEntity) (*Node, error) {
	alias := e.Alias
	if alias == "" {
		alias = fmt.Sprintf("anon_%d", len(g.Nodes))
	}

	if n, ok := g.byAlias[alias]; ok {
		if e.Label != "" {
			if n.Label != "" && n.Label != e.Label {
				return nil, fmt.Errorf("alias %q declared with conflicting labels %q and %q", alias, n.Label, e.Label)
			}
			n.Label = e.Label
		}
		for name, v := range e.Properties {
			n.Properties[name] = v
		}
		return n, nil
	}

	n := &Node{
		Alias:      alias,
		Label:      e.Label,
		Properties: make(map[string]graph.Value, len(e.Properties)),
	}
	for name, v := range e.Properties {
		n.Properties[name] = v
	}
	g.Nodes = append(g.Nodes, n)
	g.byAlias[alias] = n
	return n, nil
}

func (g *Graph) addEdge(link *ast.LinkEntity, left, right *Node) {
	src, dst := left, right
	if link.Direction == ast.RightToLeft {
		src, dst = right, left
	}

	edge := &Edge{
		Alias:    link.Alias,
		Relation: link.Relationship,
		Src:      src,
		Dst:      dst,
	}
	g.Edges = append(g.Edges, edge)
	src.Out = append(src.Out, edge)
	dst.In = append(dst.In, edge)
}

// GetNode returns the pattern node with the given alias
func (g *Graph) GetNode(alias string) (*Node, bool) {
	n, ok := g.byAlias[alias]
	return n, ok
}

// HasAlias reports whether the alias names a pattern node or edge
func (g *Graph) HasAlias(alias string) bool {
	if _, ok := g.byAlias[alias]; ok {
		return true
	}
	for _, e := range g.Edges {
		if e.Alias != "" && e.Alias == alias {
			return true
		}
	}
	return false
}

// NodesByInDegree returns the pattern nodes with exactly k incoming
// edges, in declaration order.
func (g *Graph) NodesByInDegree(k int) []*Node {
	var nodes []*Node
	for _, n := range g.Nodes {
		if n.InDegree() == k {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
