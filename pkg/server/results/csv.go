package results

import (
	"encoding/csv"
	"strings"

	"github.com/grafodb/grafo/internal/query/resultset"
)

// FormatCSV converts a result set to CSV: a header row of column names
// followed by one row per result tuple
func FormatCSV(rs *resultset.ResultSet) ([]byte, error) {
	return formatSeparated(rs, ',')
}

// FormatTSV converts a result set to TSV
func FormatTSV(rs *resultset.ResultSet) ([]byte, error) {
	return formatSeparated(rs, '\t')
}

func formatSeparated(rs *resultset.ResultSet, comma rune) ([]byte, error) {
	var builder strings.Builder
	w := csv.NewWriter(&builder)
	w.Comma = comma

	if err := w.Write(rs.Columns); err != nil {
		return nil, err
	}

	record := make([]string, len(rs.Columns))
	for _, row := range rs.Rows() {
		for i, v := range row {
			record[i] = cellString(v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(builder.String()), nil
}
