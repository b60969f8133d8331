package results

import (
	"encoding/json"

	"github.com/grafodb/grafo/internal/query/resultset"
	"github.com/grafodb/grafo/pkg/graph"
)

// QueryResultsJSON is the JSON shape of a query result
type QueryResultsJSON struct {
	Head    ResultHead `json:"head"`
	Results ResultRows `json:"results"`
}

// ResultHead carries the column headers
type ResultHead struct {
	Columns []string `json:"columns"`
}

// ResultRows carries the projected rows
type ResultRows struct {
	Rows [][]CellValue `json:"rows"`
}

// CellValue is a single typed cell
type CellValue struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// EntityJSON is the JSON shape of a node or edge cell
type EntityJSON struct {
	ID         uint64            `json:"id"`
	Label      string            `json:"label,omitempty"`
	Relation   string            `json:"relation,omitempty"`
	Src        uint64            `json:"src,omitempty"`
	Dst        uint64            `json:"dst,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// FormatJSON converts a result set to its JSON form
func FormatJSON(rs *resultset.ResultSet) ([]byte, error) {
	out := QueryResultsJSON{
		Head:    ResultHead{Columns: rs.Columns},
		Results: ResultRows{Rows: make([][]CellValue, 0, rs.Len())},
	}

	for _, row := range rs.Rows() {
		cells := make([]CellValue, len(row))
		for i, v := range row {
			cells[i] = cellValue(v)
		}
		out.Results.Rows = append(out.Results.Rows, cells)
	}

	return json.MarshalIndent(out, "", "  ")
}

func cellValue(v graph.Value) CellValue {
	cell := CellValue{Type: v.Type().String()}
	switch v.Type() {
	case graph.ValueNull:
		cell.Value = nil
	case graph.ValueString:
		cell.Value = v.Str()
	case graph.ValueInt:
		cell.Value = v.Int()
	case graph.ValueFloat:
		cell.Value = v.Float()
	case graph.ValueBool:
		cell.Value = v.Bool()
	case graph.ValueNode:
		n := v.Node()
		cell.Value = EntityJSON{
			ID:         n.ID,
			Label:      n.Label,
			Properties: propertyStrings(n.Properties),
		}
	case graph.ValueEdge:
		e := v.Edge()
		cell.Value = EntityJSON{
			ID:         e.ID,
			Relation:   e.Relation,
			Src:        e.Src,
			Dst:        e.Dst,
			Properties: propertyStrings(e.Properties),
		}
	}
	return cell
}

func propertyStrings(properties map[string]graph.Value) map[string]string {
	if len(properties) == 0 {
		return nil
	}
	out := make(map[string]string, len(properties))
	for name, v := range properties {
		out[name] = v.String()
	}
	return out
}
