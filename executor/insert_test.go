package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/annotator"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/lowering"
	"github.com/wbrown/typeql-engine/snapshot/badgerstore"
	"github.com/wbrown/typeql-engine/value"
)

func newInsertFixture(t *testing.T) (*ExecutionContext, concept.TypeID, concept.TypeID) {
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

	ctx := NewWriteContext(write, schema, ir.NewParameterRegistry())
	return ctx, person.ID, name.ID
}

func buildInsertLowering(t *testing.T, schema *concept.Schema, literalName string) *lowering.WriteLowering {
	t.Helper()
	block := ir.NewBlock()
	person := block.Variables.Declare("p")
	personType := block.Variables.Declare("PT")
	attr := block.Variables.Declare("n")
	attrType := block.Variables.Declare("NT")
	lit := block.Parameters.Intern(literalName)

	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: personType, Label: concept.NewLabel("person")},
		ir.Isa{Thing: person, Type: personType, Mode: ir.IsaExact},
		ir.LabelConstraint{Type: attrType, Label: concept.NewLabel("name")},
		ir.Isa{Thing: attr, Type: attrType, Mode: ir.IsaExact},
		ir.Has{Owner: person, Attr: attr},
		ir.Comparison{Lhs: attr, Op: ir.Eq, RhsParam: lit, RhsIsParam: true},
	}

	ann, err := annotator.InferBlock(block, schema, true)
	require.NoError(t, err)
	wl, err := lowering.LowerInsert(block, ann, schema)
	require.NoError(t, err)
	return wl
}

func TestInsertExecutorMaterializesObjectAttributeAndHasEdge(t *testing.T) {
	ctx, personType, nameType := newInsertFixture(t)
	wl := buildInsertLowering(t, ctx.Schema, "alice")

	exec := NewInsertExecutor(wl, ctx)
	exec.Prepare(nil)
	batch, err := exec.ComputeNextBatch(NewExecutionInterrupt())
	require.NoError(t, err)
	require.NotNil(t, batch)
	require.Len(t, batch.Rows, 1)

	var owners []concept.Thing
	require.NoError(t, ctx.Things.ScanType(personType, func(thing concept.Thing) (bool, error) {
		owners = append(owners, thing)
		return true, nil
	}))
	require.Len(t, owners, 1)

	var attrs []concept.Thing
	require.NoError(t, ctx.Things.ScanType(nameType, func(thing concept.Thing) (bool, error) {
		attrs = append(attrs, thing)
		return true, nil
	}))
	require.Len(t, attrs, 1)
	require.Equal(t, "alice", attrs[0].Value)

	var linked []concept.ThingID
	require.NoError(t, ctx.Things.ScanHasForward(owners[0].ID, func(a concept.ThingID) (bool, error) {
		linked = append(linked, a)
		return true, nil
	}))
	require.Equal(t, []concept.ThingID{attrs[0].ID}, linked)

	// exhausted after the single synthesized row
	next, err := exec.ComputeNextBatch(NewExecutionInterrupt())
	require.NoError(t, err)
	require.Nil(t, next)
}

func TestInsertExecutorRunsOncePerInputRowWhenUpstreamProvidesOne(t *testing.T) {
	ctx, personType, _ := newInsertFixture(t)
	wl := buildInsertLowering(t, ctx.Schema, "alice")

	exec := NewInsertExecutor(wl, ctx)
	seed := NewFixedBatch(0)
	seed.Append(Row{Multiplicity: 1})
	seed.Append(Row{Multiplicity: 1})
	exec.Prepare(seed)

	batch, err := exec.ComputeNextBatch(NewExecutionInterrupt())
	require.NoError(t, err)
	require.Len(t, batch.Rows, 2)

	var people []concept.Thing
	require.NoError(t, ctx.Things.ScanType(personType, func(thing concept.Thing) (bool, error) {
		people = append(people, thing)
		return true, nil
	}))
	require.Len(t, people, 2)
}
