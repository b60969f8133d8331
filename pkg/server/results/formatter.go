package results

import (
	"github.com/grafodb/grafo/internal/query/resultset"
	"github.com/grafodb/grafo/pkg/graph"
)

// Content types the formatters produce
const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
	ContentTypeTSV  = "text/tab-separated-values"
)

// Format renders a result set in the named content type, defaulting to
// JSON
func Format(rs *resultset.ResultSet, contentType string) ([]byte, string, error) {
	switch contentType {
	case ContentTypeCSV:
		data, err := FormatCSV(rs)
		return data, ContentTypeCSV, err
	case ContentTypeTSV:
		data, err := FormatTSV(rs)
		return data, ContentTypeTSV, err
	default:
		data, err := FormatJSON(rs)
		return data, ContentTypeJSON, err
	}
}

// cellString renders one value for the textual formats. Entities render
// through their canonical string form.
func cellString(v graph.Value) string {
	if v.IsNull() {
		return ""
	}
	return v.String()
}
