package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/grafodb/grafo/internal/encoding"
	"github.com/grafodb/grafo/internal/query/ast"
	"github.com/grafodb/grafo/pkg/graph"
)

// aggFunc accumulates one aggregation column of one group
type aggFunc interface {
	Step(v graph.Value)
	Result() graph.Value
}

type countFunc struct{ n int64 }

func (f *countFunc) Step(v graph.Value) {
	if !v.IsNull() {
		f.n++
	}
}

func (f *countFunc) Result() graph.Value {
	return graph.NewIntValue(f.n)
}

type sumFunc struct{ sum float64 }

func (f *sumFunc) Step(v graph.Value) {
	if n, ok := v.Numeric(); ok {
		f.sum += n
	}
}

func (f *sumFunc) Result() graph.Value {
	return graph.NewFloatValue(f.sum)
}

type avgFunc struct {
	sum float64
	n   int64
}

func (f *avgFunc) Step(v graph.Value) {
	if x, ok := v.Numeric(); ok {
		f.sum += x
		f.n++
	}
}

func (f *avgFunc) Result() graph.Value {
	if f.n == 0 {
		return graph.NullValue()
	}
	return graph.NewFloatValue(f.sum / float64(f.n))
}

type minFunc struct {
	best graph.Value
	set  bool
}

func (f *minFunc) Step(v graph.Value) {
	if v.IsNull() {
		return
	}
	if !f.set || v.Compare(f.best) < 0 {
		f.best = v
		f.set = true
	}
}

func (f *minFunc) Result() graph.Value {
	if !f.set {
		return graph.NullValue()
	}
	return f.best
}

type maxFunc struct {
	best graph.Value
	set  bool
}

func (f *maxFunc) Step(v graph.Value) {
	if v.IsNull() {
		return
	}
	if !f.set || v.Compare(f.best) > 0 {
		f.best = v
		f.set = true
	}
}

func (f *maxFunc) Result() graph.Value {
	if !f.set {
		return graph.NullValue()
	}
	return f.best
}

// newAggFunc resolves an aggregation function by name,
// case-insensitively
func newAggFunc(name string) (aggFunc, error) {
	switch strings.ToLower(name) {
	case "count":
		return &countFunc{}, nil
	case "sum":
		return &sumFunc{}, nil
	case "avg":
		return &avgFunc{}, nil
	case "min":
		return &minFunc{}, nil
	case "max":
		return &maxFunc{}, nil
	default:
		return nil, fmt.Errorf("unknown aggregation function %q", name)
	}
}

// Aggregate groups incoming tuples by the non-aggregated return
// elements and computes the aggregation calls per group. It is a
// blocking operator: the refresh protocol carries no end-of-input
// signal to a passthrough consumer, so Aggregate drains its child
// streams itself through the executor's pull entry point and then emits
// one finished group row per Consume.
type Aggregate struct {
	ret    *ast.ReturnClause
	record *Record

	// The operator's own plan vertex, for pulling child streams
	node *OpNode

	groups   map[xxh3.Uint128]*aggGroup
	emitKeys []xxh3.Uint128
	drained  bool
	emitIdx  int
}

type aggGroup struct {
	// Values of the non-aggregated elements, keyed by element index
	keys map[int]graph.Value
	// Accumulators keyed by element index
	funcs map[int]aggFunc
}

// NewAggregate creates the aggregation operator
func NewAggregate(ret *ast.ReturnClause, record *Record) (*Aggregate, error) {
	// Validate the function names eagerly so a bad query fails at plan
	// build, not mid-execution.
	for _, e := range ret.Elements {
		if e.Type == ast.ReturnAggregation {
			if _, err := newAggFunc(e.Func); err != nil {
				return nil, err
			}
		}
	}
	return &Aggregate{
		ret:    ret,
		record: record,
		groups: make(map[xxh3.Uint128]*aggGroup),
	}, nil
}

func (a *Aggregate) Type() OpType {
	return OpTypeAggregate
}

func (a *Aggregate) Name() string {
	return "Aggregate"
}

func (a *Aggregate) Modifies() []string {
	return nil
}

func (a *Aggregate) Consume() (OpResult, error) {
	if !a.drained {
		if err := a.drain(); err != nil {
			return OpDepleted, err
		}
	}

	if a.emitIdx >= len(a.emitKeys) {
		return OpDepleted, nil
	}

	g := a.groups[a.emitKeys[a.emitIdx]]
	a.emitIdx++

	row := make([]graph.Value, len(a.ret.Elements))
	for i, e := range a.ret.Elements {
		if e.Type == ast.ReturnAggregation {
			row[i] = g.funcs[i].Result()
		} else {
			row[i] = g.keys[i]
		}
	}
	a.record.StageRow(row)
	return OpOK, nil
}

func (a *Aggregate) drain() error {
	for {
		r, err := pullFromStreams(a.node)
		if err != nil {
			return err
		}
		if r != OpOK {
			break
		}
		if err := a.accumulate(); err != nil {
			return err
		}
	}

	// A global aggregation (no group keys) over empty input still
	// produces one row: count of nothing is zero.
	if len(a.groups) == 0 && !a.hasGroupKeys() {
		a.groups[xxh3.Hash128(nil)] = a.newGroup(map[int]graph.Value{})
	}

	a.drained = true
	a.emitKeys = a.emitKeys[:0]
	for key := range a.groups {
		a.emitKeys = append(a.emitKeys, key)
	}
	// Group emission order is arbitrary but must be stable across runs
	sort.Slice(a.emitKeys, func(i, j int) bool {
		if a.emitKeys[i].Hi != a.emitKeys[j].Hi {
			return a.emitKeys[i].Hi < a.emitKeys[j].Hi
		}
		return a.emitKeys[i].Lo < a.emitKeys[j].Lo
	})
	return nil
}

func (a *Aggregate) accumulate() error {
	var keyBytes []byte
	keys := make(map[int]graph.Value)

	for i, e := range a.ret.Elements {
		if e.Type == ast.ReturnAggregation {
			continue
		}
		v, ok := a.record.Value(e.Alias, e.Property)
		if !ok {
			return fmt.Errorf("alias %q is not bound", e.Alias)
		}
		keys[i] = v
		keyBytes = encoding.AppendValue(keyBytes, v)
	}

	hash := xxh3.Hash128(keyBytes)
	g, ok := a.groups[hash]
	if !ok {
		g = a.newGroup(keys)
		a.groups[hash] = g
	}

	for i, e := range a.ret.Elements {
		if e.Type != ast.ReturnAggregation {
			continue
		}
		v, ok := a.record.Value(e.Alias, e.Property)
		if !ok {
			return fmt.Errorf("alias %q is not bound", e.Alias)
		}
		g.funcs[i].Step(v)
	}
	return nil
}

func (a *Aggregate) newGroup(keys map[int]graph.Value) *aggGroup {
	g := &aggGroup{keys: keys, funcs: make(map[int]aggFunc)}
	for i, e := range a.ret.Elements {
		if e.Type == ast.ReturnAggregation {
			// Function names were validated at construction
			fn, _ := newAggFunc(e.Func)
			g.funcs[i] = fn
		}
	}
	return g
}

func (a *Aggregate) hasGroupKeys() bool {
	for _, e := range a.ret.Elements {
		if e.Type != ast.ReturnAggregation {
			return true
		}
	}
	return false
}

func (a *Aggregate) Reset() error {
	a.groups = make(map[xxh3.Uint128]*aggGroup)
	a.emitKeys = a.emitKeys[:0]
	a.drained = false
	a.emitIdx = 0
	return nil
}

func (a *Aggregate) Free() {}
