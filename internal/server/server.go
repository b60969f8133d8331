package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/grafodb/grafo/internal/query/ast"
	"github.com/grafodb/grafo/internal/query/plan"
	"github.com/grafodb/grafo/internal/store"
	"github.com/grafodb/grafo/pkg/graph"
	"github.com/grafodb/grafo/pkg/server/results"
)

// Server exposes a graph store over HTTP: query documents in, formatted
// result sets out
type Server struct {
	store *store.GraphStore
	addr  string
}

// NewServer creates an HTTP server over the given store
func NewServer(store *store.GraphStore, addr string) *Server {
	return &Server{store: store, addr: addr}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting query endpoint at http://%s/query", s.addr)
	return server.ListenAndServe()
}

// Handler returns the server's route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/plan", s.handlePlan)
	mux.HandleFunc("/data", s.handleData)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// graphFor resolves the target graph from the request; the ?graph=
// parameter defaults to "default"
func (s *Server) graphFor(r *http.Request) *store.Graph {
	name := r.URL.Query().Get("graph")
	if name == "" {
		name = "default"
	}
	return s.store.Graph(name)
}

func (s *Server) readQuery(w http.ResponseWriter, r *http.Request) (*ast.Query, bool) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST a query document")
		return nil, false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}

	q, err := ast.DecodeDocument(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return q, true
}

// handleQuery executes a JSON query document and renders the result set
// per the Accept header (JSON, CSV or TSV)
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	p, err := plan.NewExecutionPlan(s.graphFor(r), q)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer p.Free()

	rs, err := p.Execute()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	data, contentType, err := results.Format(rs, r.Header.Get("Accept"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

// handlePlan renders the execution plan of a query document without
// running it
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	q, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	p, err := plan.NewExecutionPlan(s.graphFor(r), q)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer p.Free()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, p.Print())
}

// dataRequest is the bulk-load payload. Node refs are request-local
// handles the edges use to name their endpoints.
type dataRequest struct {
	Nodes []struct {
		Ref        string                 `json:"ref"`
		Label      string                 `json:"label,omitempty"`
		Properties map[string]interface{} `json:"properties,omitempty"`
	} `json:"nodes"`
	Edges []struct {
		Src          string                 `json:"src"`
		Relationship string                 `json:"relationship"`
		Dst          string                 `json:"dst"`
		Properties   map[string]interface{} `json:"properties,omitempty"`
	} `json:"edges"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST a data document")
		return
	}

	var req dataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to decode data document")
		return
	}

	g := s.graphFor(r)
	ids := make(map[string]uint64, len(req.Nodes))

	for _, n := range req.Nodes {
		properties, err := decodeProperties(n.Properties)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		id, err := g.InsertNode(n.Label, properties)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if n.Ref != "" {
			ids[n.Ref] = id
		}
	}

	edges := 0
	for _, e := range req.Edges {
		src, ok := ids[e.Src]
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("edge references unknown node ref %q", e.Src))
			return
		}
		dst, ok := ids[e.Dst]
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("edge references unknown node ref %q", e.Dst))
			return
		}
		properties, err := decodeProperties(e.Properties)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := g.InsertEdge(src, e.Relationship, dst, properties); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		edges++
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"nodes": ids,
		"edges": edges,
	})
}

// handleRoot reports statistics for the target graph
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	g := s.graphFor(r)
	count, err := g.NodeCount()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	labels, err := g.Labels()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"graph":  g.Name(),
		"nodes":  count,
		"labels": labels,
	})
}

func decodeProperties(in map[string]interface{}) (map[string]graph.Value, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]graph.Value, len(in))
	for name, raw := range in {
		v, err := ast.ValueFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
