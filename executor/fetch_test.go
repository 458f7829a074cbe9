package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/snapshot/badgerstore"
	"github.com/wbrown/typeql-engine/value"
)

func TestFetchExecutorSerializesValueAndAttributeListFields(t *testing.T) {
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
	require.NoError(t, schema.Owns(person.ID, name.ID, concept.Ordered))

	ctx := NewWriteContext(write, schema, ir.NewParameterRegistry())
	owner, err := ctx.Things.PutObject(person.ID)
	require.NoError(t, err)
	n1, err := ctx.Things.PutAttribute(name.ID, "alice")
	require.NoError(t, err)
	n2, err := ctx.Things.PutAttribute(name.ID, "ally")
	require.NoError(t, err)
	require.NoError(t, ctx.Things.Has(owner.ID, n1.ID))
	require.NoError(t, ctx.Things.Has(owner.ID, n2.ID))

	spec := FetchSpec{
		{Name: "names", Source: FetchAttributeList{OwnerSlot: 0, AttrType: name.ID}},
	}
	exec := NewFetchExecutor(spec, ctx)
	seed := NewFixedBatch(1)
	row := seed.NewRow(0)
	row.Cells[0] = ConceptCell(owner)
	seed.Append(row)
	exec.Prepare(seed)

	docs, err := exec.ComputeNextDocuments(NewExecutionInterrupt())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	names, ok := docs[0]["names"].([]any)
	require.True(t, ok)
	require.ElementsMatch(t, []any{"alice", "ally"}, names)
}

func TestFetchExecutorSerializesNestedSpec(t *testing.T) {
	ctx, personType, nameType := newInsertFixture(t)
	owner, err := ctx.Things.PutObject(personType)
	require.NoError(t, err)
	attr, err := ctx.Things.PutAttribute(nameType, "alice")
	require.NoError(t, err)

	spec := FetchSpec{
		{Name: "self", Source: FetchNested{Slot: 0, Spec: FetchSpec{
			{Name: "name", Source: FetchValue{Slot: 1}},
		}}},
	}
	exec := NewFetchExecutor(spec, ctx)
	seed := NewFixedBatch(2)
	row := seed.NewRow(0)
	row.Cells[0] = ConceptCell(owner)
	row.Cells[1] = ConceptCell(attr)
	seed.Append(row)
	exec.Prepare(seed)

	docs, err := exec.ComputeNextDocuments(NewExecutionInterrupt())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	nested, ok := docs[0]["self"].(Document)
	require.True(t, ok)
	require.Equal(t, "alice", nested["name"])
}
