package lowering

import (
	"github.com/wbrown/typeql-engine/annotator"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/value"
)

// LowerReduce compiles a single Reduce stage (result <- reducer(input),
// grouped by the groupBy variables) into a ReduceInstruction
// (§4.4: "tagged by value type... plus the input variable").
// ReducerOutputCategory has already validated reducer/input; this just
// bakes the tag and resolves slots.
func LowerReduce(rows *RowSchema, reducer annotator.Reducer, input, result ir.VariableID, inputCategory value.Category, groupBy []ir.VariableID) ReduceInstruction {
	group := make([]Slot, len(groupBy))
	for i, v := range groupBy {
		group[i] = rows.Assign(v)
	}
	return ReduceInstruction{
		Kind:     ReducerKind{Reducer: reducer, Category: inputCategory},
		Input:    rows.Assign(input),
		WriteTo:  rows.Assign(result),
		GroupKey: group,
	}
}
