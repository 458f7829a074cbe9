package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/lowering"
)

func TestDeleteExecutorRemovesEdgesBeforeConcepts(t *testing.T) {
	ctx, personType, nameType := newInsertFixture(t)

	owner, err := ctx.Things.PutObject(personType)
	require.NoError(t, err)
	attr, err := ctx.Things.PutAttribute(nameType, "alice")
	require.NoError(t, err)
	require.NoError(t, ctx.Things.Has(owner.ID, attr.ID))

	ownerSlot := lowering.Slot(0)
	attrSlot := lowering.Slot(1)
	plan := &DeletePlan{
		Edges:    []DeleteInstruction{DeleteHas{OwnerSlot: ownerSlot, AttributeSlot: attrSlot}},
		Concepts: []DeleteThing{{Slot: attrSlot}},
	}

	exec := NewDeleteExecutor(plan, ctx)
	seed := NewFixedBatch(2)
	row := seed.NewRow(0)
	row.Cells[ownerSlot] = ConceptCell(owner)
	row.Cells[attrSlot] = ConceptCell(attr)
	seed.Append(row)
	exec.Prepare(seed)

	_, err = exec.ComputeNextBatch(NewExecutionInterrupt())
	require.NoError(t, err)

	var owned []concept.ThingID
	require.NoError(t, ctx.Things.ScanHasForward(owner.ID, func(a concept.ThingID) (bool, error) {
		owned = append(owned, a)
		return true, nil
	}))
	require.Empty(t, owned)

	_, ok, err := ctx.Things.Get(attr.ID)
	require.NoError(t, err)
	require.False(t, ok)

	// the owner object itself was never named in the plan's Concepts
	// list, so it survives.
	_, ok, err = ctx.Things.Get(owner.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDeleteExecutorKeepsAttributeWithRemainingOwner(t *testing.T) {
	ctx, personType, nameType := newInsertFixture(t)

	first, err := ctx.Things.PutObject(personType)
	require.NoError(t, err)
	second, err := ctx.Things.PutObject(personType)
	require.NoError(t, err)
	shared, err := ctx.Things.PutAttribute(nameType, "shared")
	require.NoError(t, err)
	require.NoError(t, ctx.Things.Has(first.ID, shared.ID))
	require.NoError(t, ctx.Things.Has(second.ID, shared.ID))

	ownerSlot := lowering.Slot(0)
	attrSlot := lowering.Slot(1)
	plan := &DeletePlan{
		Edges:    []DeleteInstruction{DeleteHas{OwnerSlot: ownerSlot, AttributeSlot: attrSlot}},
		Concepts: []DeleteThing{{Slot: attrSlot}},
	}

	exec := NewDeleteExecutor(plan, ctx)
	seed := NewFixedBatch(2)
	row := seed.NewRow(0)
	row.Cells[ownerSlot] = ConceptCell(first)
	row.Cells[attrSlot] = ConceptCell(shared)
	seed.Append(row)
	exec.Prepare(seed)

	_, err = exec.ComputeNextBatch(NewExecutionInterrupt())
	require.NoError(t, err)

	// second still owns it, so the attribute record itself survives.
	_, ok, err := ctx.Things.Get(shared.ID)
	require.NoError(t, err)
	require.True(t, ok)

	var secondOwned []concept.ThingID
	require.NoError(t, ctx.Things.ScanHasForward(second.ID, func(a concept.ThingID) (bool, error) {
		secondOwned = append(secondOwned, a)
		return true, nil
	}))
	require.Equal(t, []concept.ThingID{shared.ID}, secondOwned)
}
