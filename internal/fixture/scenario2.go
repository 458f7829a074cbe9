package fixture

import (
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/executor"
	"github.com/wbrown/typeql-engine/ir"
)

// BuildRelationRolesSchema defines: person, group, membership relates
// member, relates group, person plays member, group plays group. The
// "group" role is scoped to its relation ("membership:group") so its
// label doesn't collide with the "group" entity type's own label.
func BuildRelationRolesSchema(schema *concept.Schema) (map[string]concept.TypeID, error) {
	person, err := schema.DefineType(concept.EntityKind, concept.NewLabel("person"), concept.NoType)
	if err != nil {
		return nil, err
	}
	group, err := schema.DefineType(concept.EntityKind, concept.NewLabel("group"), concept.NoType)
	if err != nil {
		return nil, err
	}
	membership, err := schema.DefineType(concept.RelationKind, concept.NewLabel("membership"), concept.NoType)
	if err != nil {
		return nil, err
	}
	memberRole, err := schema.DefineType(concept.RoleTypeKind, concept.NewScopedLabel("membership", "member"), concept.NoType)
	if err != nil {
		return nil, err
	}
	groupRole, err := schema.DefineType(concept.RoleTypeKind, concept.NewScopedLabel("membership", "group"), concept.NoType)
	if err != nil {
		return nil, err
	}

	if err := schema.Relates(membership.ID, memberRole.ID, concept.Unordered); err != nil {
		return nil, err
	}
	if err := schema.Relates(membership.ID, groupRole.ID, concept.Unordered); err != nil {
		return nil, err
	}
	if err := schema.Plays(person.ID, memberRole.ID); err != nil {
		return nil, err
	}
	if err := schema.Plays(group.ID, groupRole.ID); err != nil {
		return nil, err
	}

	return map[string]concept.TypeID{
		"person":     person.ID,
		"group":      group.ID,
		"membership": membership.ID,
		"member":     memberRole.ID,
		"group_role": groupRole.ID,
	}, nil
}

// SeedRelationRoles inserts $p isa person; $g isa group; ($p, $g) isa
// membership; -- the role each player fills is never named explicitly,
// it's inferred from which role each type is capable of playing
// (person can only ever fill "member", group can only ever fill
// "group" here), exactly as the annotator's Links propagation expects.
func SeedRelationRoles(ctx *executor.ExecutionContext, ids map[string]concept.TypeID) error {
	block := ir.NewBlock()
	p := block.Variables.Declare("p")
	pt := block.Variables.Declare("PT")
	g := block.Variables.Declare("g")
	gt := block.Variables.Declare("GT")
	m := block.Variables.Declare("m")
	mt := block.Variables.Declare("MT")
	r1 := block.Variables.Declare("R1")
	r2 := block.Variables.Declare("R2")

	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: pt, Label: concept.NewLabel("person")},
		ir.Isa{Thing: p, Type: pt, Mode: ir.IsaExact},
		ir.LabelConstraint{Type: gt, Label: concept.NewLabel("group")},
		ir.Isa{Thing: g, Type: gt, Mode: ir.IsaExact},
		ir.LabelConstraint{Type: mt, Label: concept.NewLabel("membership")},
		ir.Isa{Thing: m, Type: mt, Mode: ir.IsaExact},
		ir.Links{Relation: m, Player: p, Role: r1},
		ir.Links{Relation: m, Player: g, Role: r2},
	}

	return runInsert(ctx, block)
}
