package executor

import (
	"fmt"

	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/lowering"
)

// DeleteInstruction is one atomic removal a Delete stage performs
// against an already-bound row. Unlike Insert/Update there's no
// ConceptInstruction/ConnectionInstruction split to reuse from
// lowering: a delete clause names existing concepts and edges to
// remove rather than materializing new ones, so its instruction set is
// its own, small and specific to this stage.
type DeleteInstruction interface{ isDeleteInstruction() }

// DeleteHas removes the owns-edge between the concepts bound in
// OwnerSlot and AttributeSlot.
type DeleteHas struct {
	OwnerSlot     lowering.Slot
	AttributeSlot lowering.Slot
}

func (DeleteHas) isDeleteInstruction() {}

// DeleteLinks removes the role-player edge bound in RelationSlot/PlayerSlot.
type DeleteLinks struct {
	RelationSlot   lowering.Slot
	PlayerSlot     lowering.Slot
	RoleTypeSource lowering.TypeSource
}

func (DeleteLinks) isDeleteInstruction() {}

// DeleteThing removes the concept bound in Slot outright. Every
// DeleteHas/DeleteLinks instruction that references the same thing must
// run before the DeleteThing instructions in a DeletePlan (§4.5's Delete
// executor: "edges first then concepts").
type DeleteThing struct {
	Slot lowering.Slot
}

func (DeleteThing) isDeleteInstruction() {}

// DeletePlan is the ordered instruction list a Delete stage executes
// per row: every DeleteHas/DeleteLinks first, then every DeleteThing.
type DeletePlan struct {
	Edges    []DeleteInstruction // DeleteHas | DeleteLinks
	Concepts []DeleteThing
}

// DeleteExecutor removes concepts and edges named by a DeletePlan from
// every input row. Running edges-then-concepts, and all edge removals
// for a row before any concept removal, keeps the store from ever
// holding a dangling edge to an already-deleted thing even mid-row
// (§5's snapshot-isolation-safe ordering).
type DeleteExecutor struct {
	plan    *DeletePlan
	ctx     *ExecutionContext
	pending []Row
}

func NewDeleteExecutor(plan *DeletePlan, ctx *ExecutionContext) *DeleteExecutor {
	return &DeleteExecutor{plan: plan, ctx: ctx}
}

func (e *DeleteExecutor) Prepare(input *FixedBatch) {
	if input != nil {
		e.pending = append(e.pending, input.Rows...)
	}
}

func (e *DeleteExecutor) ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error) {
	if len(e.pending) == 0 {
		return nil, nil
	}

	var width int
	if len(e.pending) > 0 {
		width = len(e.pending[0].Cells)
	}
	batch := NewFixedBatch(width)
	count := 0
	for len(e.pending) > 0 && !batch.Full() {
		row := e.pending[0]
		e.pending = e.pending[1:]

		if err := e.deleteRow(row); err != nil {
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

func (e *DeleteExecutor) deleteRow(row Row) error {
	for _, instr := range e.plan.Edges {
		switch ei := instr.(type) {
		case DeleteHas:
			owner := row.Get(int(ei.OwnerSlot)).Concept
			attr := row.Get(int(ei.AttributeSlot)).Concept
			if err := e.ctx.Things.RemoveHas(owner.ID, attr.ID); err != nil {
				return err
			}
		case DeleteLinks:
			relation := row.Get(int(ei.RelationSlot)).Concept
			player := row.Get(int(ei.PlayerSlot)).Concept
			role, err := resolveType(row, ei.RoleTypeSource)
			if err != nil {
				return err
			}
			if err := e.ctx.Things.RemoveLinks(relation.ID, role, player.ID); err != nil {
				return err
			}
		default:
			return fmt.Errorf("executor: unknown delete edge instruction %T", instr)
		}
	}

	for _, dt := range e.plan.Concepts {
		thing := row.Get(int(dt.Slot)).Concept
		if thing.Kind == concept.AttributeThing {
			if hasOtherOwners(e.ctx, thing.ID) {
				continue
			}
		}
		if err := e.ctx.Things.DeleteThing(thing.ID, thing.Type); err != nil {
			return err
		}
	}
	return nil
}

// hasOtherOwners reports whether an attribute still has any owner left
// (an attribute is only actually removed from the store once its last
// owning edge is gone; until then other rows may still reference it by
// value through the dedup index).
func hasOtherOwners(ctx *ExecutionContext, attr concept.ThingID) bool {
	has := false
	_ = ctx.Things.ScanHasReverse(attr, func(concept.ThingID) (bool, error) {
		has = true
		return false, nil
	})
	return has
}
