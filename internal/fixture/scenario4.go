package fixture

import (
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/executor"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/value"
)

// BuildReduceGroupSchema defines: person, age value integer, person
// owns age.
func BuildReduceGroupSchema(schema *concept.Schema) (map[string]concept.TypeID, error) {
	person, err := schema.DefineType(concept.EntityKind, concept.NewLabel("person"), concept.NoType)
	if err != nil {
		return nil, err
	}
	age, err := schema.DefineType(concept.AttributeKind, concept.NewLabel("age"), concept.NoType)
	if err != nil {
		return nil, err
	}
	if err := schema.SetValueType(age.ID, value.Integer); err != nil {
		return nil, err
	}
	if err := schema.Owns(person.ID, age.ID, concept.Unordered); err != nil {
		return nil, err
	}
	return map[string]concept.TypeID{"person": person.ID, "age": age.ID}, nil
}

// SeedReduceGroup inserts three persons with ages 10, 10, 20, one Insert
// pipeline run per person (each Isa materializes a single fresh
// instance, so three distinct people need three separate inserts).
func SeedReduceGroup(ctx *executor.ExecutionContext, ids map[string]concept.TypeID) error {
	for _, age := range []int64{10, 10, 20} {
		if err := insertPersonWithAge(ctx, age); err != nil {
			return err
		}
	}
	return nil
}

func insertPersonWithAge(ctx *executor.ExecutionContext, age int64) error {
	block := ir.NewBlock()
	p := block.Variables.Declare("p")
	pt := block.Variables.Declare("PT")
	a := block.Variables.Declare("a")
	at := block.Variables.Declare("AT")
	lit := block.Parameters.Intern(age)

	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: pt, Label: concept.NewLabel("person")},
		ir.Isa{Thing: p, Type: pt, Mode: ir.IsaExact},
		ir.LabelConstraint{Type: at, Label: concept.NewLabel("age")},
		ir.Isa{Thing: a, Type: at, Mode: ir.IsaExact},
		ir.Has{Owner: p, Attr: a},
		ir.Comparison{Lhs: a, Op: ir.Eq, RhsParam: lit, RhsIsParam: true},
	}

	return runInsert(ctx, block)
}
