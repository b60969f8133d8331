package plan

import (
	"github.com/grafodb/grafo/internal/query/pattern"
	"github.com/grafodb/grafo/internal/store"
)

// AllNodeScan materializes every node of the data graph as a binding
// for one pattern node
type AllNodeScan struct {
	g      DataGraph
	node   *pattern.Node
	record *Record

	iter store.NodeIterator
}

// NewAllNodeScan creates a full scan binding the given pattern node
func NewAllNodeScan(g DataGraph, node *pattern.Node, record *Record) *AllNodeScan {
	return &AllNodeScan{g: g, node: node, record: record}
}

func (s *AllNodeScan) Type() OpType {
	return OpTypeAllNodeScan
}

func (s *AllNodeScan) Name() string {
	return "All Node Scan"
}

func (s *AllNodeScan) Modifies() []string {
	return []string{s.node.Alias}
}

func (s *AllNodeScan) Consume() (OpResult, error) {
	if s.iter == nil {
		it, err := s.g.Nodes()
		if err != nil {
			return OpDepleted, err
		}
		s.iter = it
	}

	if !s.iter.Next() {
		return OpDepleted, nil
	}

	n, err := s.iter.Node()
	if err != nil {
		return OpDepleted, err
	}
	s.record.BindNode(s.node.Alias, n)
	return OpOK, nil
}

func (s *AllNodeScan) Reset() error {
	if s.iter != nil {
		if err := s.iter.Close(); err != nil {
			return err
		}
		s.iter = nil
	}
	return nil
}

func (s *AllNodeScan) Free() {
	if s.iter != nil {
		s.iter.Close()
		s.iter = nil
	}
}

// NodeByLabelScan materializes the nodes carrying one label
type NodeByLabelScan struct {
	g      DataGraph
	node   *pattern.Node
	label  string
	record *Record

	iter store.NodeIterator
}

// NewNodeByLabelScan creates a label scan binding the given pattern
// node
func NewNodeByLabelScan(g DataGraph, node *pattern.Node, label string, record *Record) *NodeByLabelScan {
	return &NodeByLabelScan{g: g, node: node, label: label, record: record}
}

func (s *NodeByLabelScan) Type() OpType {
	return OpTypeNodeByLabelScan
}

func (s *NodeByLabelScan) Name() string {
	return "Node By Label Scan"
}

func (s *NodeByLabelScan) Modifies() []string {
	return []string{s.node.Alias}
}

func (s *NodeByLabelScan) Consume() (OpResult, error) {
	if s.iter == nil {
		it, err := s.g.NodesByLabel(s.label)
		if err != nil {
			return OpDepleted, err
		}
		s.iter = it
	}

	if !s.iter.Next() {
		return OpDepleted, nil
	}

	n, err := s.iter.Node()
	if err != nil {
		return OpDepleted, err
	}
	s.record.BindNode(s.node.Alias, n)
	return OpOK, nil
}

func (s *NodeByLabelScan) Reset() error {
	if s.iter != nil {
		if err := s.iter.Close(); err != nil {
			return err
		}
		s.iter = nil
	}
	return nil
}

func (s *NodeByLabelScan) Free() {
	if s.iter != nil {
		s.iter.Close()
		s.iter = nil
	}
}
