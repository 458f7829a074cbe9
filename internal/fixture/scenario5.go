package fixture

import (
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/executor"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/value"
)

// BuildSortSchema defines: person, name value string, age value
// integer, person owns name, person owns age. One schema serves both
// halves of the sort-comparability demonstration: sorting $n and $a
// independently (each individually keyable and comparable to itself)
// succeeds, but sorting a single variable ranging over an attribute
// type left unconstrained by Has (spanning both name's String category
// and age's Integer category) fails.
func BuildSortSchema(schema *concept.Schema) (map[string]concept.TypeID, error) {
	person, err := schema.DefineType(concept.EntityKind, concept.NewLabel("person"), concept.NoType)
	if err != nil {
		return nil, err
	}
	name, err := schema.DefineType(concept.AttributeKind, concept.NewLabel("name"), concept.NoType)
	if err != nil {
		return nil, err
	}
	if err := schema.SetValueType(name.ID, value.String); err != nil {
		return nil, err
	}
	age, err := schema.DefineType(concept.AttributeKind, concept.NewLabel("age"), concept.NoType)
	if err != nil {
		return nil, err
	}
	if err := schema.SetValueType(age.ID, value.Integer); err != nil {
		return nil, err
	}
	if err := schema.Owns(person.ID, name.ID, concept.Unordered); err != nil {
		return nil, err
	}
	if err := schema.Owns(person.ID, age.ID, concept.Unordered); err != nil {
		return nil, err
	}
	return map[string]concept.TypeID{"person": person.ID, "name": name.ID, "age": age.ID}, nil
}

// SeedSort inserts one person, has name "alice", has age 30.
func SeedSort(ctx *executor.ExecutionContext, ids map[string]concept.TypeID) error {
	block := ir.NewBlock()
	p := block.Variables.Declare("p")
	pt := block.Variables.Declare("PT")
	n := block.Variables.Declare("n")
	nt := block.Variables.Declare("NT")
	a := block.Variables.Declare("a")
	at := block.Variables.Declare("AT")
	litName := block.Parameters.Intern("alice")
	litAge := block.Parameters.Intern(int64(30))

	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: pt, Label: concept.NewLabel("person")},
		ir.Isa{Thing: p, Type: pt, Mode: ir.IsaExact},
		ir.LabelConstraint{Type: nt, Label: concept.NewLabel("name")},
		ir.Isa{Thing: n, Type: nt, Mode: ir.IsaExact},
		ir.Has{Owner: p, Attr: n},
		ir.Comparison{Lhs: n, Op: ir.Eq, RhsParam: litName, RhsIsParam: true},
		ir.LabelConstraint{Type: at, Label: concept.NewLabel("age")},
		ir.Isa{Thing: a, Type: at, Mode: ir.IsaExact},
		ir.Has{Owner: p, Attr: a},
		ir.Comparison{Lhs: a, Op: ir.Eq, RhsParam: litAge, RhsIsParam: true},
	}

	return runInsert(ctx, block)
}
