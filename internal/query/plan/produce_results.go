package plan

import (
	"fmt"

	"github.com/grafodb/grafo/internal/query/ast"
	"github.com/grafodb/grafo/internal/query/resultset"
	"github.com/grafodb/grafo/pkg/graph"
)

// ProduceResults is the plan root: it projects each tuple per the
// RETURN clause into the result set it owns
type ProduceResults struct {
	ret    *ast.ReturnClause
	record *Record

	rs        *resultset.ResultSet
	orderCols []int
	desc      bool
	hasOrder  bool
	limit     int

	seen uint64
}

// NewProduceResults creates the root operator. The order clause must
// already be resolved to result-column indexes.
func NewProduceResults(ret *ast.ReturnClause, order []int, desc bool, hasOrder bool, limit int, record *Record) *ProduceResults {
	pr := &ProduceResults{
		ret:       ret,
		record:    record,
		orderCols: order,
		desc:      desc,
		hasOrder:  hasOrder,
		limit:     limit,
	}
	pr.begin()
	return pr
}

// begin discards any accumulated rows and starts a fresh result set
func (p *ProduceResults) begin() {
	p.rs = resultset.New(columnNames(p.ret), p.ret.Distinct, p.limit)
	if p.hasOrder {
		p.rs.SetOrder(p.orderCols, p.desc)
	}
}

// Results returns the operator's result set
func (p *ProduceResults) Results() *resultset.ResultSet {
	return p.rs
}

func (p *ProduceResults) Type() OpType {
	return OpTypeProduceResults
}

func (p *ProduceResults) Name() string {
	return "Produce Results"
}

func (p *ProduceResults) Modifies() []string {
	return nil
}

func (p *ProduceResults) Consume() (OpResult, error) {
	if p.rs.Full() {
		return OpDepleted, nil
	}
	if p.record.Seq() == p.seen {
		return OpRefresh, nil
	}
	p.seen = p.record.Seq()

	row, err := p.project()
	if err != nil {
		return OpDepleted, err
	}
	p.rs.Add(row)
	return OpOK, nil
}

func (p *ProduceResults) project() ([]graph.Value, error) {
	if row, ok := p.record.StagedRow(); ok {
		return row, nil
	}

	row := make([]graph.Value, len(p.ret.Elements))
	for i, e := range p.ret.Elements {
		v, ok := p.record.Value(e.Alias, e.Property)
		if !ok {
			return nil, fmt.Errorf("alias %q is not bound", e.Alias)
		}
		row[i] = v
	}
	return row, nil
}

func (p *ProduceResults) Reset() error {
	return nil
}

func (p *ProduceResults) Free() {}

// columnNames derives the result headers from the return clause
func columnNames(ret *ast.ReturnClause) []string {
	names := make([]string, len(ret.Elements))
	for i, e := range ret.Elements {
		names[i] = columnName(e)
	}
	return names
}

func columnName(e *ast.ReturnElement) string {
	if e.As != "" {
		return e.As
	}
	switch e.Type {
	case ast.ReturnProperty:
		return e.Alias + "." + e.Property
	case ast.ReturnAggregation:
		if e.Property != "" {
			return fmt.Sprintf("%s(%s.%s)", e.Func, e.Alias, e.Property)
		}
		return fmt.Sprintf("%s(%s)", e.Func, e.Alias)
	default:
		return e.Alias
	}
}
