package annotator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/value"
)

func buildAnimalSchema(t *testing.T) (*concept.Schema, map[string]concept.TypeID) {
	t.Helper()
	s := concept.NewSchema()
	ids := make(map[string]concept.TypeID)

	animal, err := s.DefineType(concept.EntityKind, concept.NewLabel("animal"), concept.NoType)
	require.NoError(t, err)
	ids["animal"] = animal.ID

	dog, err := s.DefineType(concept.EntityKind, concept.NewLabel("dog"), animal.ID)
	require.NoError(t, err)
	ids["dog"] = dog.ID

	cat, err := s.DefineType(concept.EntityKind, concept.NewLabel("cat"), animal.ID)
	require.NoError(t, err)
	ids["cat"] = cat.ID

	name, err := s.DefineType(concept.AttributeKind, concept.NewLabel("name"), concept.NoType)
	require.NoError(t, err)
	require.NoError(t, s.SetValueType(name.ID, value.String))
	ids["name"] = name.ID

	require.NoError(t, s.Owns(animal.ID, name.ID, concept.Unordered))

	return s, ids
}

func TestInferBlockLabelSeedsExactType(t *testing.T) {
	schema, ids := buildAnimalSchema(t)

	block := ir.NewBlock()
	thing := block.Variables.Declare("x")
	typeVar := block.Variables.Declare("T")
	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: typeVar, Label: concept.NewLabel("dog")},
		ir.Isa{Thing: thing, Type: typeVar, Mode: ir.IsaExact},
	}

	ann, err := InferBlock(block, schema, false)
	require.NoError(t, err)

	root := ann.Root(block)
	require.NotNil(t, root)
	require.True(t, root.VertexTypes[typeVar].Contains(ids["dog"]))
	require.False(t, root.VertexTypes[typeVar].Contains(ids["animal"]))
	require.True(t, root.VertexTypes[thing].Contains(ids["dog"]))
}

func TestInferBlockIsaSubtypeIncludesDescendants(t *testing.T) {
	schema, ids := buildAnimalSchema(t)

	block := ir.NewBlock()
	thing := block.Variables.Declare("x")
	typeVar := block.Variables.Declare("T")
	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: typeVar, Label: concept.NewLabel("animal")},
		ir.Isa{Thing: thing, Type: typeVar, Mode: ir.IsaSubtype},
	}

	ann, err := InferBlock(block, schema, false)
	require.NoError(t, err)

	root := ann.Root(block)
	require.True(t, root.VertexTypes[thing].Contains(ids["dog"]))
	require.True(t, root.VertexTypes[thing].Contains(ids["cat"]))
	require.True(t, root.VertexTypes[thing].Contains(ids["animal"]))
}

func TestInferBlockHasPropagatesOwnsClosure(t *testing.T) {
	schema, ids := buildAnimalSchema(t)

	block := ir.NewBlock()
	owner := block.Variables.Declare("o")
	attr := block.Variables.Declare("a")
	ownerType := block.Variables.Declare("OT")
	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: ownerType, Label: concept.NewLabel("dog")},
		ir.Isa{Thing: owner, Type: ownerType, Mode: ir.IsaExact},
		ir.Has{Owner: owner, Attr: attr},
	}

	ann, err := InferBlock(block, schema, false)
	require.NoError(t, err)

	root := ann.Root(block)
	require.True(t, root.VertexTypes[attr].Contains(ids["name"]))
}

func TestInferBlockEmptyLabelFailsEmptinessCheck(t *testing.T) {
	schema, _ := buildAnimalSchema(t)

	block := ir.NewBlock()
	typeVar := block.Variables.Declare("T")
	thing := block.Variables.Declare("x")
	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: typeVar, Label: concept.NewLabel("nonexistent")},
		ir.Isa{Thing: thing, Type: typeVar, Mode: ir.IsaExact},
	}

	_, err := InferBlock(block, schema, false)
	require.Error(t, err)
	var inferErr *TypeInferenceError
	require.ErrorAs(t, err, &inferErr)
}

func TestInferBlockWriteModeStripsAbstractTypes(t *testing.T) {
	schema, ids := buildAnimalSchema(t)
	require.NoError(t, schema.Annotate(ids["animal"], concept.Abstract()))

	block := ir.NewBlock()
	typeVar := block.Variables.Declare("T")
	thing := block.Variables.Declare("x")
	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: typeVar, Label: concept.NewLabel("animal")},
		ir.Isa{Thing: thing, Type: typeVar, Mode: ir.IsaSubtype},
	}

	ann, err := InferBlock(block, schema, true)
	require.NoError(t, err)

	root := ann.Root(block)
	require.False(t, root.VertexTypes[thing].Contains(ids["animal"]))
	require.True(t, root.VertexTypes[thing].Contains(ids["dog"]))
}

func TestInferBlockDisjunctionUnionsBranches(t *testing.T) {
	schema, ids := buildAnimalSchema(t)

	block := ir.NewBlock()
	thing := block.Variables.Declare("x")
	dogType := block.Variables.Declare("DT")
	catType := block.Variables.Declare("CT")

	dogBranch := ir.Conjunction{Constraints: []ir.Constraint{
		ir.LabelConstraint{Type: dogType, Label: concept.NewLabel("dog")},
		ir.Isa{Thing: thing, Type: dogType, Mode: ir.IsaExact},
	}}
	catBranch := ir.Conjunction{Constraints: []ir.Constraint{
		ir.LabelConstraint{Type: catType, Label: concept.NewLabel("cat")},
		ir.Isa{Thing: thing, Type: catType, Mode: ir.IsaExact},
	}}
	block.Root.Nested = []ir.NestedPattern{ir.Disjunction{Branches: []ir.Conjunction{dogBranch, catBranch}}}

	ann, err := InferBlock(block, schema, false)
	require.NoError(t, err)

	root := ann.Root(block)
	require.True(t, root.VertexTypes[thing].Contains(ids["dog"]))
	require.True(t, root.VertexTypes[thing].Contains(ids["cat"]))
}
