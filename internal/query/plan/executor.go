package plan

import (
	"fmt"

	"github.com/grafodb/grafo/internal/query/resultset"
)

// consumeOp drives a single operator: consume, and on refresh reset the
// operator, pull fresh upstream data and retry.
func consumeOp(n *OpNode) (OpResult, error) {
	for {
		n.State = StreamConsuming
		r, err := n.Op.Consume()
		if err != nil {
			return OpDepleted, err
		}
		if r != OpRefresh {
			if r == OpDepleted {
				n.State = StreamDepleted
			}
			return r, nil
		}

		if err := n.Op.Reset(); err != nil {
			return OpDepleted, err
		}
		r, err = pullFromStreams(n)
		if err != nil {
			return OpDepleted, err
		}
		if r != OpOK {
			return r, nil
		}
	}
}

// pullFromStreams composes an operator's child streams in nested-loop
// order: advance the first stream able to yield, make sure every
// not-yet-started stream to its right contributes a tuple, and rewind
// the exhausted streams to its left.
func pullFromStreams(source *OpNode) (OpResult, error) {
	idx := 0
	for ; idx < len(source.Children); idx++ {
		r, err := consumeOp(source.Children[idx])
		if err != nil {
			return OpDepleted, err
		}
		if r == OpOK {
			break
		}
	}

	// Every stream is depleted
	if idx == len(source.Children) {
		return OpDepleted, nil
	}

	// Pull once from each uninitialized stream to the right
	for i := idx + 1; i < len(source.Children); i++ {
		stream := source.Children[i]
		if stream.State != StreamUninitialized {
			continue
		}
		r, err := consumeOp(stream)
		if err != nil {
			return OpDepleted, err
		}
		if r != OpOK {
			// An uninitialized stream failed to provide data
			return OpDepleted, nil
		}
	}

	// Rewind and refill the depleted streams to the left
	for i := idx - 1; i >= 0; i-- {
		stream := source.Children[i]
		if err := ResetStream(stream); err != nil {
			return OpDepleted, err
		}
		r, err := consumeOp(stream)
		if err != nil {
			return OpDepleted, err
		}
		if r != OpOK {
			return OpDepleted, fmt.Errorf("stream %d failed to refill after reset", i)
		}
	}

	return OpOK, nil
}

// ResetStream rewinds a whole stream subtree in pre-order, returning
// every operator to its initial cursor position. Resets are idempotent.
func ResetStream(stream *OpNode) error {
	if err := stream.Op.Reset(); err != nil {
		return err
	}
	stream.State = StreamUninitialized

	for _, c := range stream.Children {
		if err := ResetStream(c); err != nil {
			return err
		}
	}
	return nil
}

// Execute drives the plan root until depletion and returns the result
// set. On an execution error the partial result set accumulated so far
// is returned alongside the error.
func (p *ExecutionPlan) Execute() (*resultset.ResultSet, error) {
	p.produceResults.begin()
	if err := ResetStream(p.Root); err != nil {
		return p.produceResults.Results(), err
	}

	for {
		r, err := consumeOp(p.Root)
		if err != nil {
			rs := p.produceResults.Results()
			rs.Finalize()
			return rs, err
		}
		if r != OpOK {
			break
		}
	}

	rs := p.produceResults.Results()
	rs.Finalize()
	return rs, nil
}
