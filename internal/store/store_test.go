package store

import (
	"testing"

	"github.com/grafodb/grafo/internal/storage"
	"github.com/grafodb/grafo/pkg/graph"
)

func newGraph(t *testing.T) *Graph {
	t.Helper()
	st, err := storage.NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	gs := NewGraphStore(st)
	t.Cleanup(func() { gs.Close() })
	return gs.Graph("test")
}

func insertNode(t *testing.T, g *Graph, label string, properties map[string]graph.Value) uint64 {
	t.Helper()
	id, err := g.InsertNode(label, properties)
	if err != nil {
		t.Fatalf("failed to insert node: %v", err)
	}
	return id
}

func insertEdge(t *testing.T, g *Graph, src uint64, rel string, dst uint64) uint64 {
	t.Helper()
	id, err := g.InsertEdge(src, rel, dst, nil)
	if err != nil {
		t.Fatalf("failed to insert edge: %v", err)
	}
	return id
}

func TestInsertAndFetchNode(t *testing.T) {
	g := newGraph(t)

	id := insertNode(t, g, "Person", map[string]graph.Value{
		"name": graph.NewStringValue("Ann"),
		"age":  graph.NewIntValue(40),
	})
	if id != 1 {
		t.Errorf("first node id = %d, want 1", id)
	}

	n, err := g.NodeByID(id)
	if err != nil {
		t.Fatalf("failed to fetch node: %v", err)
	}
	if n.Label != "Person" {
		t.Errorf("label = %q", n.Label)
	}
	if !n.Property("name").Equals(graph.NewStringValue("Ann")) {
		t.Errorf("name = %v", n.Property("name"))
	}
}

func TestNodesIterationOrder(t *testing.T) {
	g := newGraph(t)
	for i := 0; i < 5; i++ {
		insertNode(t, g, "", nil)
	}

	it, err := g.Nodes()
	if err != nil {
		t.Fatalf("failed to iterate: %v", err)
	}
	defer it.Close()

	var ids []uint64
	for it.Next() {
		n, err := it.Node()
		if err != nil {
			t.Fatalf("failed to decode node: %v", err)
		}
		ids = append(ids, n.ID)
	}

	// Identifier order, deterministic for a given storage state
	for i, id := range ids {
		if id != uint64(i+1) {
			t.Fatalf("ids out of order: %v", ids)
		}
	}
}

func TestNodesByLabel(t *testing.T) {
	g := newGraph(t)
	p1 := insertNode(t, g, "Person", nil)
	insertNode(t, g, "City", nil)
	p2 := insertNode(t, g, "Person", nil)

	it, err := g.NodesByLabel("Person")
	if err != nil {
		t.Fatalf("failed to iterate: %v", err)
	}
	defer it.Close()

	var ids []uint64
	for it.Next() {
		n, err := it.Node()
		if err != nil {
			t.Fatalf("failed to decode node: %v", err)
		}
		if n.Label != "Person" {
			t.Errorf("unexpected label %q", n.Label)
		}
		ids = append(ids, n.ID)
	}
	if len(ids) != 2 || ids[0] != p1 || ids[1] != p2 {
		t.Errorf("ids = %v, want [%d %d]", ids, p1, p2)
	}
}

func TestOutAndInEdges(t *testing.T) {
	g := newGraph(t)
	a := insertNode(t, g, "", nil)
	b := insertNode(t, g, "", nil)
	c := insertNode(t, g, "", nil)
	insertEdge(t, g, a, "KNOWS", b)
	insertEdge(t, g, a, "KNOWS", c)
	insertEdge(t, g, a, "LIKES", c)

	collect := func(it EdgeIterator, err error) []*graph.Edge {
		if err != nil {
			t.Fatalf("failed to iterate edges: %v", err)
		}
		defer it.Close()
		var edges []*graph.Edge
		for it.Next() {
			e, err := it.Edge()
			if err != nil {
				t.Fatalf("failed to decode edge: %v", err)
			}
			edges = append(edges, e)
		}
		return edges
	}

	if got := collect(g.OutEdges(a, "KNOWS")); len(got) != 2 {
		t.Errorf("KNOWS out-edges = %d, want 2", len(got))
	}
	if got := collect(g.OutEdges(a, "")); len(got) != 3 {
		t.Errorf("untyped out-edges = %d, want 3", len(got))
	}
	if got := collect(g.InEdges(c, "")); len(got) != 2 {
		t.Errorf("in-edges of c = %d, want 2", len(got))
	}
	if got := collect(g.InEdges(c, "LIKES")); len(got) != 1 || got[0].Src != a {
		t.Errorf("LIKES in-edges of c = %v", got)
	}

	edges := collect(g.OutEdges(a, "KNOWS"))
	fetched, err := g.EdgeByID(edges[0].ID)
	if err != nil {
		t.Fatalf("EdgeByID failed: %v", err)
	}
	if fetched.Relation != "KNOWS" || fetched.Src != a {
		t.Errorf("EdgeByID = %+v", fetched)
	}
}

func TestEdgesBetween(t *testing.T) {
	g := newGraph(t)
	a := insertNode(t, g, "", nil)
	b := insertNode(t, g, "", nil)
	insertEdge(t, g, a, "KNOWS", b)

	cases := []struct {
		src, dst uint64
		rel      string
		want     bool
	}{
		{a, b, "KNOWS", true},
		{a, b, "", true},
		{a, b, "LIKES", false},
		{b, a, "KNOWS", false},
	}
	for _, tc := range cases {
		got, err := g.EdgesBetween(tc.src, tc.rel, tc.dst)
		if err != nil {
			t.Fatalf("EdgesBetween failed: %v", err)
		}
		if got != tc.want {
			t.Errorf("EdgesBetween(%d, %q, %d) = %v, want %v", tc.src, tc.rel, tc.dst, got, tc.want)
		}
	}
}

func TestEdgeEndpointsMustExist(t *testing.T) {
	g := newGraph(t)
	a := insertNode(t, g, "", nil)

	if _, err := g.InsertEdge(a, "KNOWS", 99, nil); err == nil {
		t.Error("expected error inserting edge to a missing node")
	}
}

func TestCardinality(t *testing.T) {
	g := newGraph(t)
	insertNode(t, g, "Person", nil)
	insertNode(t, g, "Person", nil)
	insertNode(t, g, "City", nil)
	insertNode(t, g, "", nil)

	if n, _ := g.NodeCount(); n != 4 {
		t.Errorf("NodeCount = %d, want 4", n)
	}
	if n, _ := g.Cardinality("Person"); n != 2 {
		t.Errorf("Cardinality(Person) = %d, want 2", n)
	}
	if n, _ := g.Cardinality("City"); n != 1 {
		t.Errorf("Cardinality(City) = %d, want 1", n)
	}
	if n, _ := g.Cardinality("Ghost"); n != 0 {
		t.Errorf("Cardinality(Ghost) = %d, want 0", n)
	}
	// Empty label counts every node
	if n, _ := g.Cardinality(""); n != 4 {
		t.Errorf("Cardinality(\"\") = %d, want 4", n)
	}
}

func TestLabels(t *testing.T) {
	g := newGraph(t)
	insertNode(t, g, "Person", nil)
	insertNode(t, g, "City", nil)
	insertNode(t, g, "Person", nil)

	labels, err := g.Labels()
	if err != nil {
		t.Fatalf("Labels failed: %v", err)
	}
	if len(labels) != 2 {
		t.Fatalf("labels = %v, want 2 entries", labels)
	}
	seen := map[string]bool{}
	for _, l := range labels {
		seen[l] = true
	}
	if !seen["Person"] || !seen["City"] {
		t.Errorf("labels = %v", labels)
	}
}

func TestGraphsAreIsolated(t *testing.T) {
	st, err := storage.NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	gs := NewGraphStore(st)
	t.Cleanup(func() { gs.Close() })

	g1 := gs.Graph("one")
	g2 := gs.Graph("two")

	if _, err := g1.InsertNode("Person", nil); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	if n, _ := g1.NodeCount(); n != 1 {
		t.Errorf("g1 count = %d", n)
	}
	if n, _ := g2.NodeCount(); n != 0 {
		t.Errorf("g2 count = %d, want 0", n)
	}

	it, err := g2.Nodes()
	if err != nil {
		t.Fatalf("failed to iterate: %v", err)
	}
	defer it.Close()
	if it.Next() {
		t.Error("g2 sees g1's nodes")
	}
}
