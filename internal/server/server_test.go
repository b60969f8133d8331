package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/grafodb/grafo/internal/storage"
	"github.com/grafodb/grafo/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := storage.NewBadgerStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	gs := store.NewGraphStore(st)
	t.Cleanup(func() { gs.Close() })

	ts := httptest.NewServer(NewServer(gs, "").Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body, accept string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return resp, sb.String()
}

const sampleData = `{
	"nodes": [
		{"ref": "ann", "label": "Person", "properties": {"name": "Ann", "age": 40}},
		{"ref": "bob", "label": "Person", "properties": {"name": "Bob", "age": 20}},
		{"ref": "oslo", "label": "City", "properties": {"name": "Oslo"}}
	],
	"edges": [
		{"src": "ann", "relationship": "KNOWS", "dst": "bob"},
		{"src": "ann", "relationship": "LIVES_IN", "dst": "oslo"}
	]
}`

const sampleQuery = `{
	"match": [
		{"node": {"alias": "a", "label": "Person"}},
		{"link": {"relationship": "KNOWS"}},
		{"node": {"alias": "b"}}
	],
	"return": {"elements": [{"alias": "b", "property": "name"}]}
}`

func TestDataAndQuery(t *testing.T) {
	ts := newTestServer(t)

	resp, body := post(t, ts.URL+"/data", sampleData, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("data load failed: %d %s", resp.StatusCode, body)
	}

	resp, body = post(t, ts.URL+"/query", sampleQuery, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query failed: %d %s", resp.StatusCode, body)
	}

	var out struct {
		Head struct {
			Columns []string `json:"columns"`
		} `json:"head"`
		Results struct {
			Rows [][]struct {
				Type  string      `json:"type"`
				Value interface{} `json:"value"`
			} `json:"rows"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out.Head.Columns) != 1 || out.Head.Columns[0] != "b.name" {
		t.Errorf("columns = %v", out.Head.Columns)
	}
	if len(out.Results.Rows) != 1 || out.Results.Rows[0][0].Value != "Bob" {
		t.Errorf("rows = %v", out.Results.Rows)
	}
}

func TestQueryCSV(t *testing.T) {
	ts := newTestServer(t)
	post(t, ts.URL+"/data", sampleData, "")

	resp, body := post(t, ts.URL+"/query", sampleQuery, "text/csv")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query failed: %d %s", resp.StatusCode, body)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/csv" {
		t.Errorf("content type = %q", got)
	}
	if body != "b.name\nBob\n" {
		t.Errorf("csv body = %q", body)
	}
}

func TestPlanEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, body := post(t, ts.URL+"/plan", sampleQuery, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("plan failed: %d %s", resp.StatusCode, body)
	}
	want := "Produce Results\n    Expand All\n        Node By Label Scan\n"
	if body != want {
		t.Errorf("plan = %q, want %q", body, want)
	}
}

func TestQueryRejectsBadDocument(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := post(t, ts.URL+"/query", `{"match": [{}]}`, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	// Unbound alias in RETURN is a plan-construction error
	resp, _ = post(t, ts.URL+"/query",
		`{"match": [{"node": {"alias": "a"}}], "return": {"elements": [{"alias": "zz"}]}}`, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	post(t, ts.URL+"/data", sampleData, "")

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("stats request failed: %v", err)
	}
	defer resp.Body.Close()

	var stats struct {
		Graph  string   `json:"graph"`
		Nodes  uint64   `json:"nodes"`
		Labels []string `json:"labels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.Graph != "default" || stats.Nodes != 3 || len(stats.Labels) != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
