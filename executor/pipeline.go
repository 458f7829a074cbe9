package executor

import (
	"fmt"
	"sort"

	"github.com/wbrown/typeql-engine/value"
)

// streamingExecutor is the common pull shape every stage in this
// package exposes: seed it with an upstream batch, then drain it one
// FixedBatch at a time.
type streamingExecutor interface {
	Prepare(input *FixedBatch)
	ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error)
}

// passthroughExecutor buffers rows produced by a row-at-a-time filter
// or transform and pages them back out in DefaultBatchSize chunks,
// the shape Limit/Offset/Distinct/Require/Select all share (§4.5: these
// stages are "streaming where possible" -- none needs the whole input
// materialized before producing its first output row, but this
// implementation still buffers since Prepare hands over one complete
// input batch at a time rather than a row-by-row upstream pull).
type passthroughExecutor struct {
	width  int
	buffer []Row
}

func (p *passthroughExecutor) drain(interrupt ExecutionInterrupt) (*FixedBatch, error) {
	if len(p.buffer) == 0 {
		return nil, nil
	}
	batch := NewFixedBatch(p.width)
	count := 0
	for len(p.buffer) > 0 && !batch.Full() {
		batch.Append(p.buffer[0])
		p.buffer = p.buffer[1:]
		count++
		if count%CheckInterruptFrequencyRows == 0 && interrupt.Check() {
			return nil, &InterruptedError{}
		}
	}
	return batch, nil
}

// SelectExecutor projects each row down to a fixed set of slots,
// dropping the rest (§4.5's Select).
type SelectExecutor struct {
	passthroughExecutor
	slots []int
}

func NewSelectExecutor(slots []int) *SelectExecutor {
	return &SelectExecutor{slots: slots}
}

func (e *SelectExecutor) Prepare(input *FixedBatch) {
	e.width = len(e.slots)
	for _, row := range input.Rows {
		cells := make([]Cell, len(e.slots))
		for i, s := range e.slots {
			cells[i] = row.Get(s)
		}
		e.buffer = append(e.buffer, Row{Cells: cells, Multiplicity: row.Multiplicity, Provenance: row.Provenance})
	}
}

func (e *SelectExecutor) ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error) {
	return e.drain(interrupt)
}

// RequireExecutor drops any row where one of the required slots is
// empty (§4.5's Require).
type RequireExecutor struct {
	passthroughExecutor
	required []int
}

func NewRequireExecutor(required []int) *RequireExecutor {
	return &RequireExecutor{required: required}
}

func (e *RequireExecutor) Prepare(input *FixedBatch) {
	e.width = input.Width
	for _, row := range input.Rows {
		bound := true
		for _, s := range e.required {
			if row.Get(s).IsEmpty() {
				bound = false
				break
			}
		}
		if bound {
			e.buffer = append(e.buffer, row)
		}
	}
}

func (e *RequireExecutor) ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error) {
	return e.drain(interrupt)
}

// LimitExecutor caps the number of rows (counting multiplicity) passed
// downstream (§4.5's Limit).
type LimitExecutor struct {
	passthroughExecutor
	limit uint64
}

func NewLimitExecutor(limit uint64) *LimitExecutor {
	return &LimitExecutor{limit: limit}
}

func (e *LimitExecutor) Prepare(input *FixedBatch) {
	e.width = input.Width
	var taken uint64
	for _, row := range input.Rows {
		if taken >= e.limit {
			break
		}
		mult := row.Multiplicity
		if mult == 0 {
			mult = 1
		}
		if taken+mult > e.limit {
			row.Multiplicity = e.limit - taken
			taken = e.limit
		} else {
			taken += mult
		}
		e.buffer = append(e.buffer, row)
	}
}

func (e *LimitExecutor) ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error) {
	return e.drain(interrupt)
}

// OffsetExecutor skips the first N rows (counting multiplicity) before
// passing the rest downstream (§4.5's Offset).
type OffsetExecutor struct {
	passthroughExecutor
	offset uint64
}

func NewOffsetExecutor(offset uint64) *OffsetExecutor {
	return &OffsetExecutor{offset: offset}
}

func (e *OffsetExecutor) Prepare(input *FixedBatch) {
	e.width = input.Width
	var skipped uint64
	for _, row := range input.Rows {
		mult := row.Multiplicity
		if mult == 0 {
			mult = 1
		}
		if skipped >= e.offset {
			e.buffer = append(e.buffer, row)
			continue
		}
		if skipped+mult <= e.offset {
			skipped += mult
			continue
		}
		row.Multiplicity = skipped + mult - e.offset
		skipped = e.offset
		e.buffer = append(e.buffer, row)
	}
}

func (e *OffsetExecutor) ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error) {
	return e.drain(interrupt)
}

// DistinctExecutor collapses duplicate rows, merging their
// multiplicities (§4.5's Distinct). A fast path compares provenance
// tags first: a row whose non-zero tag was already seen is merged into
// the first row with that tag without a cell-by-cell comparison. Rows
// with tag zero always go through the full comparison.
type DistinctExecutor struct {
	passthroughExecutor
}

func NewDistinctExecutor() *DistinctExecutor {
	return &DistinctExecutor{}
}

func (e *DistinctExecutor) Prepare(input *FixedBatch) {
	e.width = input.Width
	seenProvenance := make(map[ProvenanceTag]int) // provenance -> index in buffer
	seenKey := make(map[string]int)                // full cell key -> index in buffer, fallback path

	for _, row := range input.Rows {
		mult := row.Multiplicity
		if mult == 0 {
			mult = 1
		}
		if row.Provenance != 0 {
			if idx, ok := seenProvenance[row.Provenance]; ok {
				e.buffer[idx].Multiplicity += mult
				continue
			}
		}
		key := rowKey(row)
		if idx, ok := seenKey[key]; ok {
			e.buffer[idx].Multiplicity += mult
			continue
		}
		e.buffer = append(e.buffer, row)
		idx := len(e.buffer) - 1
		seenKey[key] = idx
		if row.Provenance != 0 {
			seenProvenance[row.Provenance] = idx
		}
	}
}

func (e *DistinctExecutor) ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error) {
	return e.drain(interrupt)
}

func rowKey(row Row) string {
	key := ""
	for _, c := range row.Cells {
		switch c.Kind {
		case CellEmpty:
			key += "|_"
		case CellConcept:
			key += fmt.Sprintf("|c:%d", c.Concept.ID)
		case CellValue:
			if t, ok := c.AsType(); ok {
				key += fmt.Sprintf("|t:%d", t)
			} else if b, err := encodeValue(c.Value); err == nil {
				key += "|v:" + string(b)
			}
		case CellList:
			key += "|l:" + rowKey(Row{Cells: c.List})
		}
	}
	return key
}

// SortExecutor materializes its whole input and sorts by a sequence of
// (slot, descending) keys (§4.5's Sort: "the only guaranteed total
// ordering"), then passes it downstream in stable batch-sized chunks.
type SortExecutor struct {
	passthroughExecutor
	keys []SortKey
}

// SortKey is one column in a Sort's key sequence.
type SortKey struct {
	Slot       int
	Descending bool
}

func NewSortExecutor(keys []SortKey) *SortExecutor {
	return &SortExecutor{keys: keys}
}

func (e *SortExecutor) Prepare(input *FixedBatch) {
	e.width = input.Width
	rows := make([]Row, len(input.Rows))
	copy(rows, input.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return lessRows(rows[i], rows[j], e.keys)
	})
	e.buffer = rows
}

func (e *SortExecutor) ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error) {
	return e.drain(interrupt)
}

func lessRows(a, b Row, keys []SortKey) bool {
	for _, k := range keys {
		ca, cb := a.Get(k.Slot), b.Get(k.Slot)
		av, aok := cellValue(ca)
		bv, bok := cellValue(cb)
		if !aok || !bok {
			continue
		}
		cmp := value.Compare(av, bv)
		if cmp == 0 {
			continue
		}
		if k.Descending {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}
