// Package lowering implements executable lowering (§4.4): compiling an
// annotated write or reduce stage into the fixed instruction sets the
// executor interprets, over a row schema mapping each variable to a
// stable column position. Grounded on the teacher's QueryPlan/Phase ->
// RealizedPlan/RealizedPhase split (datalog/planner/types.go): the
// annotator's block plays the Phase role (symbols available/produced
// per stage), and lowering is this package's Realize step, generalised
// from "Query fragment per phase" to "instruction list over row slots".
package lowering

import "github.com/wbrown/typeql-engine/ir"

// Slot is a row's column position (§4.4: "[VariablePosition -> Slot]").
type Slot int

// RowSchema assigns each variable a stable Slot the first time it's
// referenced, in encounter order; later references to the same
// variable resolve to the same Slot.
type RowSchema struct {
	slots []ir.VariableID
	index map[ir.VariableID]Slot
}

// NewRowSchema returns an empty row schema.
func NewRowSchema() *RowSchema {
	return &RowSchema{index: make(map[ir.VariableID]Slot)}
}

// Assign returns v's Slot, allocating the next free column if v hasn't
// been seen yet.
func (s *RowSchema) Assign(v ir.VariableID) Slot {
	if slot, ok := s.index[v]; ok {
		return slot
	}
	slot := Slot(len(s.slots))
	s.slots = append(s.slots, v)
	s.index[v] = slot
	return slot
}

// Slot returns v's column, if it has been assigned one.
func (s *RowSchema) Slot(v ir.VariableID) (Slot, bool) {
	slot, ok := s.index[v]
	return slot, ok
}

// Variable returns the variable occupying slot, the inverse of Slot.
func (s *RowSchema) Variable(slot Slot) (ir.VariableID, bool) {
	if int(slot) < 0 || int(slot) >= len(s.slots) {
		return 0, false
	}
	return s.slots[slot], true
}

// Width is the row width: selected variable count (§4.4: "produces
// rows of width = selected variable count").
func (s *RowSchema) Width() int { return len(s.slots) }
