package resultset

import (
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/grafodb/grafo/internal/encoding"
	"github.com/grafodb/grafo/pkg/graph"
)

// ResultSet is an ordered sequence of projected rows. It applies
// DISTINCT on insert and ORDER BY / LIMIT at finalization.
type ResultSet struct {
	Columns []string

	rows [][]graph.Value

	distinct bool
	seen     map[xxh3.Uint128]struct{}

	// 0 means unlimited
	limit int

	orderCols []int
	desc      bool
	ordered   bool
}

// New creates a result set with the given column headers
func New(columns []string, distinct bool, limit int) *ResultSet {
	rs := &ResultSet{Columns: columns, distinct: distinct, limit: limit}
	if distinct {
		rs.seen = make(map[xxh3.Uint128]struct{})
	}
	return rs
}

// SetOrder configures ORDER BY over the given column indexes. An
// ordered result set materializes fully before the limit applies.
func (r *ResultSet) SetOrder(columns []int, descending bool) {
	r.orderCols = columns
	r.desc = descending
	r.ordered = true
}

// Add appends a row, honoring DISTINCT. Reports whether the row was
// kept.
func (r *ResultSet) Add(row []graph.Value) bool {
	if r.distinct {
		key := hashRow(row)
		if _, dup := r.seen[key]; dup {
			return false
		}
		r.seen[key] = struct{}{}
	}
	r.rows = append(r.rows, row)
	return true
}

// Full reports whether the limit has been reached and no more input is
// needed. An ordered result set is never full early: every row can
// still displace another under the sort.
func (r *ResultSet) Full() bool {
	return r.limit > 0 && !r.ordered && len(r.rows) >= r.limit
}

// Finalize sorts and truncates the rows
func (r *ResultSet) Finalize() {
	if r.ordered {
		sort.SliceStable(r.rows, func(i, j int) bool {
			for _, col := range r.orderCols {
				cmp := r.rows[i][col].Compare(r.rows[j][col])
				if cmp == 0 {
					continue
				}
				if r.desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}
	if r.limit > 0 && len(r.rows) > r.limit {
		r.rows = r.rows[:r.limit]
	}
}

// Rows returns the projected rows
func (r *ResultSet) Rows() [][]graph.Value {
	return r.rows
}

// Len returns the number of rows
func (r *ResultSet) Len() int {
	return len(r.rows)
}

// String renders the result set as a tab-separated table
func (r *ResultSet) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(r.Columns, "\t"))
	b.WriteString("\n")
	for _, row := range r.rows {
		for i, v := range row {
			if i > 0 {
				b.WriteString("\t")
			}
			b.WriteString(v.String())
		}
		b.WriteString("\n")
	}
	return b.String()
}

func hashRow(row []graph.Value) xxh3.Uint128 {
	var buf []byte
	for _, v := range row {
		buf = encoding.AppendValue(buf, v)
	}
	return xxh3.Hash128(buf)
}
