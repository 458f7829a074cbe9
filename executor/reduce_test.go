package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/annotator"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/lowering"
	"github.com/wbrown/typeql-engine/value"
)

func TestReduceExecutorSumsPerGroup(t *testing.T) {
	block := ir.NewBlock()
	group := block.Variables.Declare("g")
	input := block.Variables.Declare("in")
	result := block.Variables.Declare("out")

	rows := lowering.NewRowSchema()
	instr := lowering.LowerReduce(rows, annotator.ReduceSum, input, result, value.Integer, []ir.VariableID{group})

	groupSlot, _ := rows.Slot(group)
	inputSlot, _ := rows.Slot(input)
	resultSlot, _ := rows.Slot(result)

	exec := NewReduceExecutor(instr, rows.Width())
	seed := NewFixedBatch(rows.Width())
	for _, r := range []struct {
		group string
		val   int64
	}{
		{"a", 1}, {"a", 2}, {"a", 3}, {"b", 10},
	} {
		row := seed.NewRow(0)
		row.Cells[groupSlot] = ValueCell(r.group)
		row.Cells[inputSlot] = ValueCell(r.val)
		seed.Append(row)
	}
	exec.Prepare(seed)

	batch, err := exec.ComputeNextBatch(NewExecutionInterrupt())
	require.NoError(t, err)
	require.Len(t, batch.Rows, 2)

	sums := make(map[string]int64)
	for _, row := range batch.Rows {
		g := row.Get(int(groupSlot)).Value.(string)
		sums[g] = row.Get(int(resultSlot)).Value.(int64)
	}
	require.Equal(t, int64(6), sums["a"])
	require.Equal(t, int64(10), sums["b"])
}

func TestReduceExecutorCountsRowsIgnoringInputValue(t *testing.T) {
	block := ir.NewBlock()
	input := block.Variables.Declare("in")
	result := block.Variables.Declare("out")

	rows := lowering.NewRowSchema()
	instr := lowering.LowerReduce(rows, annotator.ReduceCount, input, result, value.Integer, nil)
	resultSlot, _ := rows.Slot(result)

	exec := NewReduceExecutor(instr, rows.Width())
	seed := NewFixedBatch(rows.Width())
	seed.Append(seed.NewRow(0))
	seed.Append(seed.NewRow(0))
	seed.Append(seed.NewRow(0))
	exec.Prepare(seed)

	batch, err := exec.ComputeNextBatch(NewExecutionInterrupt())
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	require.Equal(t, int64(3), batch.Rows[0].Get(int(resultSlot)).Value.(int64))
}

func TestReduceExecutorMeanOverDoubles(t *testing.T) {
	block := ir.NewBlock()
	input := block.Variables.Declare("in")
	result := block.Variables.Declare("out")

	rows := lowering.NewRowSchema()
	instr := lowering.LowerReduce(rows, annotator.ReduceMean, input, result, value.Double, nil)
	inputSlot, _ := rows.Slot(input)
	resultSlot, _ := rows.Slot(result)

	exec := NewReduceExecutor(instr, rows.Width())
	seed := NewFixedBatch(rows.Width())
	for _, v := range []float64{2, 4, 6} {
		row := seed.NewRow(0)
		row.Cells[inputSlot] = ValueCell(v)
		seed.Append(row)
	}
	exec.Prepare(seed)

	batch, err := exec.ComputeNextBatch(NewExecutionInterrupt())
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	require.InDelta(t, 4.0, batch.Rows[0].Get(int(resultSlot)).Value.(float64), 1e-9)
}
