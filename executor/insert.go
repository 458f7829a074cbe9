package executor

import (
	"github.com/wbrown/typeql-engine/lowering"
)

// InsertExecutor runs a WriteLowering's ConceptInstructions then
// ConnectionInstructions against every input row (§4.5's Insert
// executor). A bare insert with no upstream Match gets a single empty
// input row so its instructions still run exactly once.
type InsertExecutor struct {
	wl      *lowering.WriteLowering
	ctx     *ExecutionContext
	pending []Row
	started bool
}

func NewInsertExecutor(wl *lowering.WriteLowering, ctx *ExecutionContext) *InsertExecutor {
	return &InsertExecutor{wl: wl, ctx: ctx}
}

func (e *InsertExecutor) Prepare(input *FixedBatch) {
	if input != nil {
		e.pending = append(e.pending, input.Rows...)
	}
}

func (e *InsertExecutor) ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error) {
	if !e.started && len(e.pending) == 0 {
		e.pending = []Row{{Cells: nil, Multiplicity: 1}}
	}
	e.started = true

	if len(e.pending) == 0 {
		return nil, nil
	}

	batch := NewFixedBatch(e.wl.Schema.Width())
	count := 0
	for len(e.pending) > 0 && !batch.Full() {
		row := e.pending[0]
		e.pending = e.pending[1:]

		row, err := executeConcepts(e.ctx, e.wl, row)
		if err != nil {
			return nil, err
		}
		if err := executeConnections(e.ctx, e.wl, row, false); err != nil {
			return nil, err
		}
		batch.Append(row)

		count++
		if count%CheckInterruptFrequencyRows == 0 && interrupt.Check() {
			return nil, &InterruptedError{}
		}
	}
	return batch, nil
}
