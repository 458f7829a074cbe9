package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/lowering"
	"github.com/wbrown/typeql-engine/snapshot/badgerstore"
	"github.com/wbrown/typeql-engine/value"
)

// matchFixture wires a small person-owns-name schema with two people
// materialized over a real badger-backed snapshot, for the match
// executor tests below.
type matchFixture struct {
	ctx        *ExecutionContext
	personType concept.TypeID
	nameType   concept.TypeID
	alice      concept.Thing
	aliceName  concept.Thing
	bob        concept.Thing
	bobName    concept.Thing
}

func newMatchFixture(t *testing.T) *matchFixture {
	t.Helper()
	store, err := badgerstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	write, err := store.OpenWrite(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = write.Abort() })

	schema := concept.NewSchema()
	person, err := schema.DefineType(concept.EntityKind, concept.NewLabel("person"), concept.NoType)
	require.NoError(t, err)
	name, err := schema.DefineType(concept.AttributeKind, concept.NewLabel("name"), concept.NoType)
	require.NoError(t, err)
	require.NoError(t, schema.SetValueType(name.ID, value.String))
	require.NoError(t, schema.Owns(person.ID, name.ID, concept.Unordered))

	params := ir.NewParameterRegistry()
	ctx := NewWriteContext(write, schema, params)

	alice, err := ctx.Things.PutObject(person.ID)
	require.NoError(t, err)
	aliceName, err := ctx.Things.PutAttribute(name.ID, "alice")
	require.NoError(t, err)
	require.NoError(t, ctx.Things.Has(alice.ID, aliceName.ID))

	bob, err := ctx.Things.PutObject(person.ID)
	require.NoError(t, err)
	bobName, err := ctx.Things.PutAttribute(name.ID, "bob")
	require.NoError(t, err)
	require.NoError(t, ctx.Things.Has(bob.ID, bobName.ID))

	return &matchFixture{
		ctx: ctx, personType: person.ID, nameType: name.ID,
		alice: alice, aliceName: aliceName, bob: bob, bobName: bobName,
	}
}

func drainPattern(t *testing.T, p *PatternExecutor) []Row {
	t.Helper()
	interrupt := NewExecutionInterrupt()
	var out []Row
	for {
		batch, err := p.ComputeNextBatch(interrupt)
		require.NoError(t, err)
		if batch == nil {
			return out
		}
		out = append(out, batch.Rows...)
	}
}

func TestPatternExecutorLabelIsaHasFindsBothPeopleAndTheirNames(t *testing.T) {
	f := newMatchFixture(t)

	personVar := ir.VariableID(0)
	personTypeVar := ir.VariableID(1)
	nameVar := ir.VariableID(2)
	nameTypeVar := ir.VariableID(3)

	conj := &ir.Conjunction{Constraints: []ir.Constraint{
		ir.LabelConstraint{Type: personTypeVar, Label: concept.NewLabel("person")},
		ir.Isa{Thing: personVar, Type: personTypeVar, Mode: ir.IsaExact},
		ir.LabelConstraint{Type: nameTypeVar, Label: concept.NewLabel("name")},
		ir.Has{Owner: personVar, Attr: nameVar},
	}}

	rows := lowering.NewRowSchema()
	exec := lowering.LowerMatch(conj, rows)

	p := NewPatternExecutor(exec, f.ctx)
	personSlot, ok := rows.Slot(personVar)
	require.True(t, ok)
	nameSlot, ok := rows.Slot(nameVar)
	require.True(t, ok)

	seed := NewFixedBatch(rows.Width())
	seed.Append(seed.NewRow(0))
	p.Prepare(seed)

	rowsOut := drainPattern(t, p)
	require.Len(t, rowsOut, 2)

	names := make(map[concept.ThingID]value.Value)
	for _, r := range rowsOut {
		owner := r.Get(int(personSlot)).Concept
		attr := r.Get(int(nameSlot)).Concept
		names[owner.ID] = attr.Value
	}
	require.Equal(t, "alice", names[f.alice.ID])
	require.Equal(t, "bob", names[f.bob.ID])
}

func TestPatternExecutorHasWithBoundOwnerScansForwardOnly(t *testing.T) {
	f := newMatchFixture(t)

	ownerVar := ir.VariableID(0)
	attrVar := ir.VariableID(1)

	conj := &ir.Conjunction{Constraints: []ir.Constraint{
		ir.Has{Owner: ownerVar, Attr: attrVar},
	}}
	rows := lowering.NewRowSchema()
	ownerSlot := rows.Assign(ownerVar)
	exec := lowering.LowerMatch(conj, rows)

	p := NewPatternExecutor(exec, f.ctx)
	seed := NewFixedBatch(rows.Width())
	row := seed.NewRow(0)
	row.Cells[ownerSlot] = ConceptCell(f.alice)
	seed.Append(row)
	p.Prepare(seed)

	rowsOut := drainPattern(t, p)
	require.Len(t, rowsOut, 1)
	attrSlot, ok := rows.Slot(attrVar)
	require.True(t, ok)
	require.Equal(t, f.aliceName.ID, rowsOut[0].Get(int(attrSlot)).Concept.ID)
}

func TestPatternExecutorComparisonFiltersByParameter(t *testing.T) {
	f := newMatchFixture(t)

	personVar := ir.VariableID(0)
	personTypeVar := ir.VariableID(1)
	nameVar := ir.VariableID(2)
	nameTypeVar := ir.VariableID(3)

	lit := f.ctx.Parameters.Intern("bob")

	conj := &ir.Conjunction{Constraints: []ir.Constraint{
		ir.LabelConstraint{Type: personTypeVar, Label: concept.NewLabel("person")},
		ir.Isa{Thing: personVar, Type: personTypeVar, Mode: ir.IsaExact},
		ir.LabelConstraint{Type: nameTypeVar, Label: concept.NewLabel("name")},
		ir.Has{Owner: personVar, Attr: nameVar},
		ir.Comparison{Lhs: nameVar, Op: ir.Eq, RhsParam: lit, RhsIsParam: true},
	}}
	rows := lowering.NewRowSchema()
	exec := lowering.LowerMatch(conj, rows)

	p := NewPatternExecutor(exec, f.ctx)
	seed := NewFixedBatch(rows.Width())
	seed.Append(seed.NewRow(0))
	p.Prepare(seed)

	rowsOut := drainPattern(t, p)
	require.Len(t, rowsOut, 1)

	personSlot, ok := rows.Slot(personVar)
	require.True(t, ok)
	require.Equal(t, f.bob.ID, rowsOut[0].Get(int(personSlot)).Concept.ID)
}

func TestPatternExecutorIsaSubtypeIncludesSubtypes(t *testing.T) {
	f := newMatchFixture(t)

	// student is a subtype of person; a subtype-mode Isa over "person"
	// must still surface things materialized as the subtype.
	student, err := f.ctx.Schema.DefineType(concept.EntityKind, concept.NewLabel("student"), f.personType)
	require.NoError(t, err)
	carol, err := f.ctx.Things.PutObject(student.ID)
	require.NoError(t, err)

	thingVar := ir.VariableID(0)
	typeVar := ir.VariableID(1)

	conj := &ir.Conjunction{Constraints: []ir.Constraint{
		ir.LabelConstraint{Type: typeVar, Label: concept.NewLabel("person")},
		ir.Isa{Thing: thingVar, Type: typeVar, Mode: ir.IsaSubtype},
	}}
	rows := lowering.NewRowSchema()
	exec := lowering.LowerMatch(conj, rows)

	p := NewPatternExecutor(exec, f.ctx)
	seed := NewFixedBatch(rows.Width())
	seed.Append(seed.NewRow(0))
	p.Prepare(seed)

	rowsOut := drainPattern(t, p)
	thingSlot, ok := rows.Slot(thingVar)
	require.True(t, ok)

	var ids []concept.ThingID
	for _, r := range rowsOut {
		ids = append(ids, r.Get(int(thingSlot)).Concept.ID)
	}
	require.ElementsMatch(t, []concept.ThingID{f.alice.ID, f.bob.ID, carol.ID}, ids)
}
