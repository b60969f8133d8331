package ast

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/grafodb/grafo/pkg/graph"
)

// Document is the JSON wire shape of a parsed query: what a parser
// front end (or a client speaking the wire protocol directly) hands the
// planner.
type Document struct {
	Match  []ElementDoc `json:"match"`
	Where  *FilterDoc   `json:"where,omitempty"`
	Return *ReturnDoc   `json:"return,omitempty"`
	Order  *OrderDoc    `json:"order,omitempty"`
	Limit  *int         `json:"limit,omitempty"`
}

// ElementDoc is one MATCH pattern element: a node or a link
type ElementDoc struct {
	Node *NodeDoc `json:"node,omitempty"`
	Link *LinkDoc `json:"link,omitempty"`
}

// NodeDoc is a node pattern
type NodeDoc struct {
	Alias      string                 `json:"alias,omitempty"`
	Label      string                 `json:"label,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// LinkDoc is a relationship pattern; direction is "right" (default) or
// "left"
type LinkDoc struct {
	Alias        string `json:"alias,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Direction    string `json:"direction,omitempty"`
}

// FilterDoc is a WHERE expression node: exactly one of and/or/predicate
type FilterDoc struct {
	And       []FilterDoc   `json:"and,omitempty"`
	Or        []FilterDoc   `json:"or,omitempty"`
	Predicate *PredicateDoc `json:"predicate,omitempty"`
}

// PredicateDoc compares alias.property against a constant value or
// another property
type PredicateDoc struct {
	Alias         string      `json:"alias"`
	Property      string      `json:"property"`
	Op            string      `json:"op"`
	Value         interface{} `json:"value,omitempty"`
	ValueAlias    string      `json:"valueAlias,omitempty"`
	ValueProperty string      `json:"valueProperty,omitempty"`
}

// ReturnDoc is the RETURN clause
type ReturnDoc struct {
	Distinct bool               `json:"distinct,omitempty"`
	Elements []ReturnElementDoc `json:"elements"`
}

// ReturnElementDoc is a single projection
type ReturnElementDoc struct {
	Alias    string `json:"alias"`
	Property string `json:"property,omitempty"`
	Func     string `json:"func,omitempty"`
	As       string `json:"as,omitempty"`
}

// OrderDoc is the ORDER BY clause; direction is "asc" (default) or
// "desc"
type OrderDoc struct {
	Columns   []ColumnDoc `json:"columns"`
	Direction string      `json:"direction,omitempty"`
}

// ColumnDoc names an ordering column
type ColumnDoc struct {
	Alias    string `json:"alias"`
	Property string `json:"property,omitempty"`
}

// DecodeDocument parses a JSON query document into a query expression
func DecodeDocument(data []byte) (*Query, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode query document: %w", err)
	}
	return doc.Query()
}

// Query converts the wire document into the planner's AST
func (d *Document) Query() (*Query, error) {
	entities := make([]GraphEntity, 0, len(d.Match))
	for i, e := range d.Match {
		switch {
		case e.Node != nil && e.Link == nil:
			properties, err := valueMap(e.Node.Properties)
			if err != nil {
				return nil, fmt.Errorf("match element %d: %w", i, err)
			}
			entities = append(entities, NewNodeEntity(e.Node.Alias, e.Node.Label, properties))
		case e.Link != nil && e.Node == nil:
			dir, err := parseDirection(e.Link.Direction)
			if err != nil {
				return nil, fmt.Errorf("match element %d: %w", i, err)
			}
			entities = append(entities, NewLinkEntity(e.Link.Alias, e.Link.Relationship, dir))
		default:
			return nil, fmt.Errorf("match element %d must be exactly one of node or link", i)
		}
	}

	q := &Query{Match: NewMatchClause(entities)}

	if d.Where != nil {
		tree, err := d.Where.filter()
		if err != nil {
			return nil, err
		}
		q.Where = NewWhereClause(tree)
	}

	if d.Return != nil {
		elements := make([]*ReturnElement, 0, len(d.Return.Elements))
		for _, e := range d.Return.Elements {
			switch {
			case e.Func != "":
				elements = append(elements, NewAggregationReturn(e.Func, e.Alias, e.Property, e.As))
			case e.Property != "":
				elements = append(elements, NewPropertyReturn(e.Alias, e.Property, e.As))
			default:
				elements = append(elements, NewEntityReturn(e.Alias, e.As))
			}
		}
		q.Return = NewReturnClause(elements, d.Return.Distinct)
	}

	if d.Order != nil {
		columns := make([]*Column, 0, len(d.Order.Columns))
		for _, c := range d.Order.Columns {
			columns = append(columns, NewColumn(c.Alias, c.Property))
		}
		dir := OrderAsc
		switch d.Order.Direction {
		case "", "asc":
		case "desc":
			dir = OrderDesc
		default:
			return nil, fmt.Errorf("unknown order direction %q", d.Order.Direction)
		}
		q.Order = NewOrderClause(columns, dir)
	}

	if d.Limit != nil {
		q.Limit = NewLimitClause(*d.Limit)
	}

	return q, nil
}

func (f *FilterDoc) filter() (FilterNode, error) {
	set := 0
	if len(f.And) > 0 {
		set++
	}
	if len(f.Or) > 0 {
		set++
	}
	if f.Predicate != nil {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("filter node must be exactly one of and, or, predicate")
	}

	if f.Predicate != nil {
		return f.Predicate.predicate()
	}

	children := f.And
	op := And
	if len(f.Or) > 0 {
		children = f.Or
		op = Or
	}
	if len(children) < 2 {
		return nil, fmt.Errorf("%s requires at least two operands", op)
	}

	tree, err := children[0].filter()
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(children); i++ {
		right, err := children[i].filter()
		if err != nil {
			return nil, err
		}
		tree = NewCondition(tree, op, right)
	}
	return tree, nil
}

func (p *PredicateDoc) predicate() (FilterNode, error) {
	op, err := parseCompareOp(p.Op)
	if err != nil {
		return nil, err
	}

	if p.ValueAlias != "" {
		return NewVaryingPredicate(p.Alias, p.Property, op, p.ValueAlias, p.ValueProperty), nil
	}

	v, err := ValueFromJSON(p.Value)
	if err != nil {
		return nil, err
	}
	return NewConstantPredicate(p.Alias, p.Property, op, v), nil
}

func parseCompareOp(s string) (CompareOp, error) {
	switch s {
	case "=", "==":
		return EQ, nil
	case "!=", "<>":
		return NE, nil
	case ">":
		return GT, nil
	case ">=":
		return GE, nil
	case "<":
		return LT, nil
	case "<=":
		return LE, nil
	default:
		return 0, fmt.Errorf("unknown comparison operator %q", s)
	}
}

func parseDirection(s string) (LinkDirection, error) {
	switch s {
	case "", "right":
		return LeftToRight, nil
	case "left":
		return RightToLeft, nil
	default:
		return 0, fmt.Errorf("unknown link direction %q", s)
	}
}

func valueMap(in map[string]interface{}) (map[string]graph.Value, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]graph.Value, len(in))
	for name, raw := range in {
		v, err := ValueFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// ValueFromJSON converts a decoded JSON scalar to a graph value.
// Numbers without a fractional part become integers.
func ValueFromJSON(raw interface{}) (graph.Value, error) {
	switch v := raw.(type) {
	case nil:
		return graph.NullValue(), nil
	case bool:
		return graph.NewBoolValue(v), nil
	case string:
		return graph.NewStringValue(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return graph.NewIntValue(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return graph.NullValue(), fmt.Errorf("bad number %q", v.String())
		}
		return graph.NewFloatValue(f), nil
	case float64:
		// Plain json.Unmarshal paths decode numbers as float64
		if v == float64(int64(v)) {
			return graph.NewIntValue(int64(v)), nil
		}
		return graph.NewFloatValue(v), nil
	default:
		return graph.NullValue(), fmt.Errorf("unsupported value type %T", raw)
	}
}
