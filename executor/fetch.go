package executor

import (
	"fmt"

	"github.com/wbrown/typeql-engine/concept"
)

// Document is one Fetch result: a JSON-shaped nested object. Values are
// either a plain value.Value, a nested Document, or a []any of either.
type Document map[string]any

// FetchSource is one field's data source within a FetchSpec.
type FetchSource interface{ isFetchSource() }

// FetchValue reads a single cell's value (or, for a concept cell
// referencing an attribute, its materialized value) directly into the
// field.
type FetchValue struct {
	Slot int
}

func (FetchValue) isFetchSource() {}

// FetchAttributeList dereferences every attribute of AttrType that
// OwnerSlot's thing owns into a list field -- the common "$x.name" /
// "$x.attribute" fetch projection, which fans out to however many
// values the owner actually has rather than assuming single-valued.
type FetchAttributeList struct {
	OwnerSlot int
	AttrType  concept.TypeID
}

func (FetchAttributeList) isFetchSource() {}

// FetchNested serializes a sub-document via a nested spec applied to
// the same row: the nested fields address the outer row's slots, and
// Slot is not read.
type FetchNested struct {
	Slot int
	Spec FetchSpec
}

func (FetchNested) isFetchSource() {}

// FetchField is one named entry of a FetchSpec.
type FetchField struct {
	Name   string
	Source FetchSource
}

// FetchSpec is an ordered list of named fields a Fetch stage projects
// each row into (§4.5's Fetch: "nested-document serialization").
type FetchSpec []FetchField

// FetchExecutor serializes each input row into a Document per a
// FetchSpec, the terminal stage of a fetch pipeline.
type FetchExecutor struct {
	spec    FetchSpec
	ctx     *ExecutionContext
	pending []Row
}

func NewFetchExecutor(spec FetchSpec, ctx *ExecutionContext) *FetchExecutor {
	return &FetchExecutor{spec: spec, ctx: ctx}
}

func (e *FetchExecutor) Prepare(input *FixedBatch) {
	if input != nil {
		e.pending = append(e.pending, input.Rows...)
	}
}

// ComputeNextDocuments returns up to DefaultBatchSize serialized
// documents, or nil once every pending row has been consumed.
func (e *FetchExecutor) ComputeNextDocuments(interrupt ExecutionInterrupt) ([]Document, error) {
	if len(e.pending) == 0 {
		return nil, nil
	}
	var out []Document
	count := 0
	for len(e.pending) > 0 && len(out) < DefaultBatchSize {
		row := e.pending[0]
		e.pending = e.pending[1:]
		doc, err := e.serializeRow(row, e.spec)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
		count++
		if count%CheckInterruptFrequencyRows == 0 && interrupt.Check() {
			return nil, &InterruptedError{}
		}
	}
	return out, nil
}

func (e *FetchExecutor) serializeRow(row Row, spec FetchSpec) (Document, error) {
	doc := make(Document, len(spec))
	for _, field := range spec {
		v, err := e.serializeField(row, field.Source)
		if err != nil {
			return nil, err
		}
		doc[field.Name] = v
	}
	return doc, nil
}

func (e *FetchExecutor) serializeField(row Row, src FetchSource) (any, error) {
	switch fs := src.(type) {
	case FetchValue:
		cell := row.Get(fs.Slot)
		if cell.IsEmpty() {
			return nil, nil
		}
		if v, ok := cellValue(cell); ok {
			return v, nil
		}
		if cell.Kind == CellConcept {
			return cell.Concept.ID, nil
		}
		return nil, nil

	case FetchAttributeList:
		owner := row.Get(fs.OwnerSlot).Concept
		var values []any
		err := e.ctx.Things.ScanHasForward(owner.ID, func(attr concept.ThingID) (bool, error) {
			thing, ok, err := e.ctx.Things.Get(attr)
			if err != nil || !ok {
				return err == nil, err
			}
			if thing.Type != fs.AttrType {
				return true, nil
			}
			values = append(values, thing.Value)
			return true, nil
		})
		return values, err

	case FetchNested:
		nestedRow := row.Clone()
		return e.serializeRow(nestedRow, fs.Spec)

	default:
		return nil, fmt.Errorf("executor: unknown fetch source %T", src)
	}
}
