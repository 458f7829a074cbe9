package executor

import (
	"github.com/wbrown/typeql-engine/lowering"
)

// UpdateExecutor runs a WriteLowering's instructions like Insert, but
// Has/Links connections replace an existing unordered edge rather than
// adding alongside it (§4.5's Update executor: "PutAttribute replaces
// single-valued"). LowerUpdate already rejects any PutObject instruction
// before this executor ever sees the lowering.
type UpdateExecutor struct {
	wl      *lowering.WriteLowering
	ctx     *ExecutionContext
	pending []Row
}

func NewUpdateExecutor(wl *lowering.WriteLowering, ctx *ExecutionContext) *UpdateExecutor {
	return &UpdateExecutor{wl: wl, ctx: ctx}
}

func (e *UpdateExecutor) Prepare(input *FixedBatch) {
	if input != nil {
		e.pending = append(e.pending, input.Rows...)
	}
}

func (e *UpdateExecutor) ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error) {
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
		if err := executeConnections(e.ctx, e.wl, row, true); err != nil {
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
