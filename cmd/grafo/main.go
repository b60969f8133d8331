package main

import (
	"fmt"
	"log"
	"os"

	"github.com/grafodb/grafo/internal/query/ast"
	"github.com/grafodb/grafo/internal/query/plan"
	"github.com/grafodb/grafo/internal/server"
	"github.com/grafodb/grafo/internal/storage"
	"github.com/grafodb/grafo/internal/store"
	"github.com/grafodb/grafo/pkg/graph"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: grafo <command> [args]")
		fmt.Println("Commands:")
		fmt.Println("  demo                - Run a demo with sample data")
		fmt.Println("  query <file> [path] - Execute a JSON query document against a store")
		fmt.Println("  serve [addr] [path] - Start the HTTP query endpoint (default: localhost:8080)")
		os.Exit(1)
	}

	switch command := os.Args[1]; command {
	case "demo":
		runDemo()
	case "query":
		if len(os.Args) < 3 {
			fmt.Println("Usage: grafo query <file> [path]")
			os.Exit(1)
		}
		runQuery(os.Args[2], argOr(3, "./grafo_data"))
	case "serve":
		runServer(argOr(2, "localhost:8080"), argOr(3, "./grafo_data"))
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func argOr(i int, fallback string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return fallback
}

func openStore(path string) *store.GraphStore {
	badgerStorage, err := storage.NewBadgerStorage(path)
	if err != nil {
		log.Fatalf("Failed to create storage: %v", err)
	}
	return store.NewGraphStore(badgerStorage)
}

func runDemo() {
	fmt.Println("=== Grafo Property Graph Demo ===")
	fmt.Println()

	dbPath := "./grafo_data"
	fmt.Printf("Opening database at: %s\n", dbPath)

	gs := openStore(dbPath)
	defer gs.Close()
	g := gs.Graph("social")

	fmt.Println("Inserting sample data...")

	str := graph.NewStringValue
	num := func(i int64) graph.Value { return graph.NewIntValue(i) }

	people := map[string]uint64{}
	for _, p := range []struct {
		name string
		age  int64
	}{
		{"Ann", 40}, {"Bob", 25}, {"Carol", 31},
	} {
		id, err := g.InsertNode("Person", map[string]graph.Value{
			"name": str(p.name), "age": num(p.age),
		})
		if err != nil {
			log.Fatalf("Failed to insert node: %v", err)
		}
		people[p.name] = id
		fmt.Printf("  inserted (:Person {name: %s})\n", p.name)
	}

	for _, e := range [][2]string{
		{"Ann", "Bob"}, {"Bob", "Carol"}, {"Carol", "Ann"},
	} {
		if _, err := g.InsertEdge(people[e[0]], "KNOWS", people[e[1]], nil); err != nil {
			log.Fatalf("Failed to insert edge: %v", err)
		}
		fmt.Printf("  inserted (%s)-[:KNOWS]->(%s)\n", e[0], e[1])
	}
	fmt.Println()

	// MATCH (a:Person)-[:KNOWS]->(b) WHERE a.age > 30 RETURN a.name, b.name
	q := ast.NewQuery(
		ast.NewMatchClause([]ast.GraphEntity{
			ast.NewNodeEntity("a", "Person", nil),
			ast.NewLinkEntity("", "KNOWS", ast.LeftToRight),
			ast.NewNodeEntity("b", "", nil),
		}),
		ast.NewWhereClause(ast.NewConstantPredicate("a", "age", ast.GT, num(30))),
		ast.NewReturnClause([]*ast.ReturnElement{
			ast.NewPropertyReturn("a", "name", ""),
			ast.NewPropertyReturn("b", "name", ""),
		}, false),
		nil, nil)

	runAndPrint(g, q, "MATCH (a:Person)-[:KNOWS]->(b) WHERE a.age > 30 RETURN a.name, b.name")

	// MATCH (a:Person)-[:KNOWS]->(b) RETURN count(b)
	q = ast.NewQuery(
		ast.NewMatchClause([]ast.GraphEntity{
			ast.NewNodeEntity("a", "Person", nil),
			ast.NewLinkEntity("", "KNOWS", ast.LeftToRight),
			ast.NewNodeEntity("b", "", nil),
		}),
		nil,
		ast.NewReturnClause([]*ast.ReturnElement{
			ast.NewAggregationReturn("count", "b", "", "friends"),
		}, false),
		nil, nil)

	runAndPrint(g, q, "MATCH (a:Person)-[:KNOWS]->(b) RETURN count(b) AS friends")
}

func runAndPrint(g *store.Graph, q *ast.Query, text string) {
	fmt.Printf("Query: %s\n", text)

	p, err := plan.NewExecutionPlan(g, q)
	if err != nil {
		log.Fatalf("Failed to build plan: %v", err)
	}
	defer p.Free()

	fmt.Println("Plan:")
	fmt.Print(p.Print())

	rs, err := p.Execute()
	if err != nil {
		log.Fatalf("Execution failed: %v", err)
	}
	fmt.Println("Results:")
	fmt.Print(rs.String())
	fmt.Println()
}

func runQuery(file, dbPath string) {
	data, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("Failed to read query document: %v", err)
	}
	q, err := ast.DecodeDocument(data)
	if err != nil {
		log.Fatalf("Failed to decode query document: %v", err)
	}

	gs := openStore(dbPath)
	defer gs.Close()

	p, err := plan.NewExecutionPlan(gs.Graph("default"), q)
	if err != nil {
		log.Fatalf("Failed to build plan: %v", err)
	}
	defer p.Free()

	rs, err := p.Execute()
	if err != nil {
		log.Fatalf("Execution failed: %v", err)
	}
	fmt.Print(rs.String())
}

func runServer(addr, dbPath string) {
	gs := openStore(dbPath)
	defer gs.Close()

	if err := server.NewServer(gs, addr).Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
