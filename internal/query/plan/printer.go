package plan

import (
	"fmt"
	"strings"
)

// Print renders the operator DAG for diagnostics: pre-order, one
// operator name per line, indented four spaces per depth.
func (p *ExecutionPlan) Print() string {
	var b strings.Builder
	printOp(&b, p.Root, 0)
	return b.String()
}

func printOp(b *strings.Builder, op *OpNode, indent int) {
	fmt.Fprintf(b, "%*s%s\n", indent, "", op.Op.Name())
	for _, c := range op.Children {
		printOp(b, c, indent+4)
	}
}
