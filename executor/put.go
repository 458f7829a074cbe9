package executor

import (
	"github.com/wbrown/typeql-engine/lowering"
)

// PutExecutor implements §4.5's Put stage: for each input row, probe a
// Match over the put pattern for a witness row; if one exists, reuse it
// unchanged, otherwise run the Insert lowering to materialize a fresh
// one. This is why Put's identity is value-based for attributes (the
// same probe that finds an existing row is what PutAttribute's own
// dedup index guarantees for the insert path) and id-based for objects
// only within the probe's own match, never across two unrelated rows.
type PutExecutor struct {
	probe   *lowering.ConjunctionExecutable
	insert  *lowering.WriteLowering
	ctx     *ExecutionContext
	pending []Row
}

func NewPutExecutor(probe *lowering.ConjunctionExecutable, insert *lowering.WriteLowering, ctx *ExecutionContext) *PutExecutor {
	return &PutExecutor{probe: probe, insert: insert, ctx: ctx}
}

func (e *PutExecutor) Prepare(input *FixedBatch) {
	if input != nil {
		e.pending = append(e.pending, input.Rows...)
	} else {
		e.pending = []Row{{Cells: nil, Multiplicity: 1}}
	}
}

func (e *PutExecutor) ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error) {
	if len(e.pending) == 0 {
		return nil, nil
	}

	batch := NewFixedBatch(e.insert.Schema.Width())
	count := 0
	for len(e.pending) > 0 && !batch.Full() {
		row := e.pending[0]
		e.pending = e.pending[1:]

		witness, err := e.probeWitness(row, interrupt)
		if err != nil {
			return nil, err
		}
		if witness != nil {
			batch.Append(*witness)
		} else {
			row, err := executeConcepts(e.ctx, e.insert, row)
			if err != nil {
				return nil, err
			}
			if err := executeConnections(e.ctx, e.insert, row, false); err != nil {
				return nil, err
			}
			batch.Append(row)
		}

		count++
		if count%CheckInterruptFrequencyRows == 0 && interrupt.Check() {
			return nil, &InterruptedError{}
		}
	}
	return batch, nil
}

// probeWitness runs the put pattern's Match to completion for a single
// input row, returning its first result row if any exists.
func (e *PutExecutor) probeWitness(row Row, interrupt ExecutionInterrupt) (*Row, error) {
	width := e.probe.Schema.Width()
	seed := NewFixedBatch(width)
	seed.Append(row)

	pattern := NewPatternExecutor(e.probe, e.ctx)
	pattern.Prepare(seed)
	for {
		batch, err := pattern.ComputeNextBatch(interrupt)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			return nil, nil
		}
		if batch.Len() > 0 {
			return &batch.Rows[0], nil
		}
	}
}
