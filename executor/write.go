package executor

import (
	"fmt"

	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/lowering"
	"github.com/wbrown/typeql-engine/value"
)

// resolveType reads a lowering.TypeSource against a row: either the
// literal baked in at lowering time, or the TypeCell a prior Match/Isa
// step bound into the row's slot.
func resolveType(row Row, ts lowering.TypeSource) (concept.TypeID, error) {
	if !ts.FromSlot {
		return ts.Literal, nil
	}
	id, ok := row.Get(int(ts.Slot)).AsType()
	if !ok {
		return 0, fmt.Errorf("executor: type slot %d is unbound", ts.Slot)
	}
	return id, nil
}

// resolveValue reads a lowering.ValueSource against a row and a
// parameter registry: either the interned literal, or a value a prior
// stage materialized into the row's slot.
func resolveValue(ctx *ExecutionContext, row Row, vs lowering.ValueSource) (value.Value, error) {
	if vs.FromParam {
		return ctx.Parameters.Value(vs.Param), nil
	}
	v, ok := cellValue(row.Get(int(vs.Slot)))
	if !ok {
		return nil, fmt.Errorf("executor: value slot %d is unbound", vs.Slot)
	}
	return v, nil
}

// executeConcepts runs a WriteLowering's ConceptInstructions against
// row, materializing a new thing per instruction and writing its
// concept cell back into the instruction's WriteTo slot (§4.5: Insert
// executor runs every ConceptInstruction before any ConnectionInstruction).
func executeConcepts(ctx *ExecutionContext, wl *lowering.WriteLowering, row Row) (Row, error) {
	if len(row.Cells) < wl.Schema.Width() {
		padded := make([]Cell, wl.Schema.Width())
		copy(padded, row.Cells)
		for i := len(row.Cells); i < len(padded); i++ {
			padded[i] = EmptyCell()
		}
		row.Cells = padded
	}

	for _, instr := range wl.Concepts {
		switch ci := instr.(type) {
		case lowering.PutObject:
			typ, err := resolveType(row, ci.TypeSource)
			if err != nil {
				return row, err
			}
			thing, err := ctx.Things.PutObject(typ)
			if err != nil {
				return row, err
			}
			row.Cells[ci.WriteTo] = ConceptCell(thing)

		case lowering.PutAttribute:
			typ, err := resolveType(row, ci.TypeSource)
			if err != nil {
				return row, err
			}
			v, err := resolveValue(ctx, row, ci.ValueSource)
			if err != nil {
				return row, err
			}
			thing, err := ctx.Things.PutAttribute(typ, v)
			if err != nil {
				return row, err
			}
			row.Cells[ci.WriteTo] = ConceptCell(thing)

		default:
			return row, fmt.Errorf("executor: unknown concept instruction %T", instr)
		}
	}
	return row, nil
}

// executeConnections runs a WriteLowering's ConnectionInstructions
// against an already-concept-populated row.
func executeConnections(ctx *ExecutionContext, wl *lowering.WriteLowering, row Row, replace bool) error {
	for _, instr := range wl.Connections {
		switch ci := instr.(type) {
		case lowering.HasInstruction:
			owner := row.Get(int(ci.OwnerSlot)).Concept
			attr := row.Get(int(ci.AttributeSlot)).Concept
			if replace {
				if err := replaceHasIfUnordered(ctx, owner, attr); err != nil {
					return err
				}
			}
			if err := ctx.Things.Has(owner.ID, attr.ID); err != nil {
				return err
			}

		case lowering.LinksInstruction:
			relation := row.Get(int(ci.RelationSlot)).Concept
			player := row.Get(int(ci.PlayerSlot)).Concept
			role, err := resolveType(row, ci.RoleTypeSource)
			if err != nil {
				return err
			}
			if replace {
				if err := replaceLinksIfUnordered(ctx, relation, role); err != nil {
					return err
				}
			}
			if err := ctx.Things.Links(relation.ID, role, player.ID); err != nil {
				return err
			}

		default:
			return fmt.Errorf("executor: unknown connection instruction %T", instr)
		}
	}
	return nil
}

// replaceHasIfUnordered drops owner's existing edges to attributes of
// attr's type before a new one is added, when the owns edge is
// Unordered -- Update's "PutAttribute replaces single-valued" rule.
// Ordered (list-valued) ownership accumulates instead.
func replaceHasIfUnordered(ctx *ExecutionContext, owner, attr concept.Thing) error {
	ordering, ok := ctx.Schema.OwnsClosure(owner.Type)[attr.Type]
	if !ok || ordering != concept.Unordered {
		return nil
	}
	var stale []concept.ThingID
	err := ctx.Things.ScanHasForward(owner.ID, func(existing concept.ThingID) (bool, error) {
		thing, ok, err := ctx.Things.Get(existing)
		if err != nil || !ok {
			return err == nil, err
		}
		if thing.Type == attr.Type && thing.ID != attr.ID {
			stale = append(stale, thing.ID)
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, id := range stale {
		if err := ctx.Things.RemoveHas(owner.ID, id); err != nil {
			return err
		}
	}
	return nil
}

// replaceLinksIfUnordered drops relation's existing players in role
// before a new one is linked, when the relates edge is Unordered.
func replaceLinksIfUnordered(ctx *ExecutionContext, relation concept.Thing, role concept.TypeID) error {
	ordering, ok := ctx.Schema.RelatesClosure(relation.Type)[role]
	if !ok || ordering != concept.Unordered {
		return nil
	}
	var stale []concept.ThingID
	err := ctx.Things.ScanLinksForward(relation.ID, func(r concept.TypeID, player concept.ThingID) (bool, error) {
		if r == role {
			stale = append(stale, player)
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, player := range stale {
		if err := ctx.Things.RemoveLinks(relation.ID, role, player); err != nil {
			return err
		}
	}
	return nil
}
