package lowering

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/annotator"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/value"
)

func buildLoweringSchema(t *testing.T) (*concept.Schema, map[string]concept.TypeID) {
	t.Helper()
	s := concept.NewSchema()
	ids := make(map[string]concept.TypeID)

	person, err := s.DefineType(concept.EntityKind, concept.NewLabel("person"), concept.NoType)
	require.NoError(t, err)
	ids["person"] = person.ID

	name, err := s.DefineType(concept.AttributeKind, concept.NewLabel("name"), concept.NoType)
	require.NoError(t, err)
	require.NoError(t, s.SetValueType(name.ID, value.String))
	ids["name"] = name.ID
	require.NoError(t, s.Owns(person.ID, name.ID, concept.Unordered))

	return s, ids
}

func TestLowerInsertProducesPutObjectThenPutAttributeThenHas(t *testing.T) {
	schema, _ := buildLoweringSchema(t)

	block := ir.NewBlock()
	person := block.Variables.Declare("p")
	personType := block.Variables.Declare("PT")
	attr := block.Variables.Declare("n")
	attrType := block.Variables.Declare("NT")
	lit := block.Parameters.Intern("alice")

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

	wl, err := LowerInsert(block, ann, schema)
	require.NoError(t, err)
	require.Len(t, wl.Concepts, 2)

	personLabelType, ok := schema.Lookup(concept.NewLabel("person"))
	require.True(t, ok)

	putObject, ok := wl.Concepts[0].(PutObject)
	require.True(t, ok)
	require.False(t, putObject.TypeSource.FromSlot)
	require.Equal(t, personLabelType.ID, putObject.TypeSource.Literal)

	putAttr, ok := wl.Concepts[1].(PutAttribute)
	require.True(t, ok)
	require.True(t, putAttr.ValueSource.FromParam)
	require.Equal(t, lit, putAttr.ValueSource.Param)

	require.Len(t, wl.Connections, 1)
	has, ok := wl.Connections[0].(HasInstruction)
	require.True(t, ok)
	ownerSlot, _ := wl.Schema.Slot(person)
	attrSlot, _ := wl.Schema.Slot(attr)
	require.Equal(t, ownerSlot, has.OwnerSlot)
	require.Equal(t, attrSlot, has.AttributeSlot)
}

func TestLowerInsertRejectsAmbiguousType(t *testing.T) {
	schema, ids := buildLoweringSchema(t)
	_, err := schema.DefineType(concept.EntityKind, concept.NewLabel("robot"), concept.NoType)
	require.NoError(t, err)
	_ = ids

	block := ir.NewBlock()
	thing := block.Variables.Declare("x")
	typeVar := block.Variables.Declare("T")
	block.Root.Constraints = []ir.Constraint{
		ir.KindConstraintStruct{Type: typeVar, Kind: concept.EntityKind},
		ir.Isa{Thing: thing, Type: typeVar, Mode: ir.IsaExact},
	}

	ann, err := annotator.InferBlock(block, schema, true)
	require.NoError(t, err)

	_, err = LowerInsert(block, ann, schema)
	require.Error(t, err)
	var ambiguous *AmbiguousTypeError
	require.ErrorAs(t, err, &ambiguous)
}

func TestLowerUpdateRejectsPutObject(t *testing.T) {
	schema, _ := buildLoweringSchema(t)

	block := ir.NewBlock()
	thing := block.Variables.Declare("p")
	typeVar := block.Variables.Declare("T")
	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: typeVar, Label: concept.NewLabel("person")},
		ir.Isa{Thing: thing, Type: typeVar, Mode: ir.IsaExact},
	}

	ann, err := annotator.InferBlock(block, schema, true)
	require.NoError(t, err)

	_, err = LowerUpdate(block, ann, schema)
	require.Error(t, err)
}

func TestLowerMatchOrdersLabelBeforeIsaAndHasAfterOwner(t *testing.T) {
	block := ir.NewBlock()
	person := block.Variables.Declare("p")
	personType := block.Variables.Declare("PT")
	attr := block.Variables.Declare("n")

	block.Root.Constraints = []ir.Constraint{
		ir.Has{Owner: person, Attr: attr},
		ir.Isa{Thing: person, Type: personType, Mode: ir.IsaExact},
		ir.LabelConstraint{Type: personType, Label: concept.NewLabel("person")},
	}

	rows := NewRowSchema()
	exec := LowerMatch(&block.Root, rows)
	require.Len(t, exec.Steps, 3)

	positions := make(map[ir.ConstraintKind]int)
	for i, step := range exec.Steps {
		positions[step.Constraint.Kind()] = i
	}
	require.Less(t, positions[ir.LabelConstraintKind], positions[ir.IsaConstraint])
	require.Less(t, positions[ir.IsaConstraint], positions[ir.HasConstraint])
}

func TestLowerReduceAssignsGroupAndInputSlots(t *testing.T) {
	rows := NewRowSchema()
	block := ir.NewBlock()
	group := block.Variables.Declare("g")
	input := block.Variables.Declare("in")
	result := block.Variables.Declare("out")

	instr := LowerReduce(rows, annotator.ReduceSum, input, result, value.Integer, []ir.VariableID{group})

	groupSlot, _ := rows.Slot(group)
	inputSlot, _ := rows.Slot(input)
	resultSlot, _ := rows.Slot(result)
	require.Equal(t, []Slot{groupSlot}, instr.GroupKey)
	require.Equal(t, inputSlot, instr.Input)
	require.Equal(t, resultSlot, instr.WriteTo)
	require.Equal(t, annotator.ReduceSum, instr.Kind.Reducer)
	require.Equal(t, value.Integer, instr.Kind.Category)
}
