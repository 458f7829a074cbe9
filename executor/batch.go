// Package executor implements the stage executors (§4.5) that pull
// FixedBatches of rows through a pipeline over an MVCC snapshot
// (§5): Match, Insert, Update, Delete, Put, Reduce, Sort, Limit,
// Offset, Require, Distinct, Select and Fetch.
package executor

import (
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/value"
)

// CheckInterruptFrequencyRows bounds how many rows an executor
// processes between interrupt checks (§5: "every executor checks an
// interrupt token at least every CHECK_INTERRUPT_FREQUENCY_ROWS
// rows").
const CheckInterruptFrequencyRows = 256

// DefaultBatchSize is the row count a stage aims to fill a FixedBatch
// to before handing it downstream.
const DefaultBatchSize = 256

// CellKind tags what a FixedBatch cell currently holds.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellConcept
	CellValue
	CellList
)

// Cell is one row/column entry in a FixedBatch. Concept holds a
// materialized thing (object or attribute id); Value holds a plain
// (non-materialized) value, e.g. an expression result or the output
// of a Reduce; List holds a list-categorized variable's elements.
type Cell struct {
	Kind    CellKind
	Concept concept.Thing
	Value   value.Value
	List    []Cell
}

func EmptyCell() Cell                  { return Cell{Kind: CellEmpty} }
func ConceptCell(t concept.Thing) Cell { return Cell{Kind: CellConcept, Concept: t} }
func ValueCell(v value.Value) Cell     { return Cell{Kind: CellValue, Value: v} }
func ListCell(elems []Cell) Cell       { return Cell{Kind: CellList, List: elems} }
func (c Cell) IsEmpty() bool           { return c.Kind == CellEmpty }

// TypeCell binds a schema type variable (Isa's Type, a Links' Role,
// and the other type-range variables §4.4's row schema shares slots
// with thing variables for) to a concrete TypeID. Type bindings have
// no materialized instance, so they piggyback on the Value tag rather
// than adding a fifth cell kind beyond the Concept|Value|List|Empty
// set: a type id is stored as the cell's dynamic Value payload.
func TypeCell(id concept.TypeID) Cell { return Cell{Kind: CellValue, Value: id} }

// AsType reads back a TypeCell's bound type id.
func (c Cell) AsType() (concept.TypeID, bool) {
	if c.Kind != CellValue {
		return 0, false
	}
	id, ok := c.Value.(concept.TypeID)
	return id, ok
}

// ProvenanceTag identifies which distinct upstream derivation produced
// a row, so Distinct can dedup via a fast equality check on the tag
// before falling back to a full cell-by-cell comparison, and so
// multiplicities from the same derivation accumulate instead of
// multiplying across independent branches.
type ProvenanceTag uint64

// Row is one FixedBatch row: width-many cells, a multiplicity (how
// many duplicate derivations this single stored row represents) and
// the provenance tag of its derivation.
type Row struct {
	Cells        []Cell
	Multiplicity uint64
	Provenance   ProvenanceTag
}

func (r Row) Get(slot int) Cell { return r.Cells[slot] }

func (r Row) Clone() Row {
	cells := make([]Cell, len(r.Cells))
	copy(cells, r.Cells)
	return Row{Cells: cells, Multiplicity: r.Multiplicity, Provenance: r.Provenance}
}

// FixedBatch is a column-major-conceptual, row-oriented-storage batch
// of up to DefaultBatchSize rows, each of width Width (§4.5: "B rows x
// W width"). Batches are the unit executors pull from one another via
// compute_next_batch; a nil batch from that call means the upstream
// stage is exhausted.
type FixedBatch struct {
	Width int
	Rows  []Row
}

func NewFixedBatch(width int) *FixedBatch {
	return &FixedBatch{Width: width}
}

func (b *FixedBatch) Len() int { return len(b.Rows) }

func (b *FixedBatch) Full() bool { return len(b.Rows) >= DefaultBatchSize }

// Append adds a row, padding a cell slice shorter than Width with empty
// cells; a longer slice is kept as it is. A zero multiplicity is stored
// as 1.
func (b *FixedBatch) Append(row Row) {
	if len(row.Cells) < b.Width {
		padded := make([]Cell, b.Width)
		copy(padded, row.Cells)
		row.Cells = padded
	}
	if row.Multiplicity == 0 {
		row.Multiplicity = 1
	}
	b.Rows = append(b.Rows, row)
}

// NewRow builds an empty-celled row of the batch's width with
// multiplicity 1 and the given provenance tag.
func (b *FixedBatch) NewRow(provenance ProvenanceTag) Row {
	cells := make([]Cell, b.Width)
	for i := range cells {
		cells[i] = EmptyCell()
	}
	return Row{Cells: cells, Multiplicity: 1, Provenance: provenance}
}
