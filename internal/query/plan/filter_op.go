package plan

import (
	"github.com/grafodb/grafo/internal/query/filter"
)

// Filter applies a minimum filter tree: the WHERE sub-expression whose
// free aliases are all bound beneath this point of the pipeline
type Filter struct {
	tree   filter.Node
	record *Record

	seen uint64
}

// NewFilter creates a filter operator owning a detached filter subtree
func NewFilter(tree filter.Node, record *Record) *Filter {
	return &Filter{tree: tree, record: record}
}

func (f *Filter) Type() OpType {
	return OpTypeFilter
}

func (f *Filter) Name() string {
	return "Filter"
}

func (f *Filter) Modifies() []string {
	return nil
}

// Tree returns the operator's filter subtree
func (f *Filter) Tree() filter.Node {
	return f.tree
}

func (f *Filter) Consume() (OpResult, error) {
	if f.record.Seq() == f.seen {
		return OpRefresh, nil
	}
	f.seen = f.record.Seq()

	pass, err := filter.Eval(f.tree, f.record.Value)
	if err != nil {
		return OpDepleted, err
	}
	if !pass {
		return OpRefresh, nil
	}
	return OpOK, nil
}

func (f *Filter) Reset() error {
	return nil
}

func (f *Filter) Free() {}
