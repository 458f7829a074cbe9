package fixture

import (
	"github.com/wbrown/typeql-engine/annotator"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/executor"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/lowering"
	"github.com/wbrown/typeql-engine/value"
	"github.com/wbrown/typeql-engine/writecheck"
)

// BuildEntityAttributeSchema defines: person @abstract, child sub
// person, age value integer, child owns age.
func BuildEntityAttributeSchema(schema *concept.Schema) (map[string]concept.TypeID, error) {
	person, err := schema.DefineType(concept.EntityKind, concept.NewLabel("person"), concept.NoType)
	if err != nil {
		return nil, err
	}
	if err := schema.Annotate(person.ID, concept.Abstract()); err != nil {
		return nil, err
	}

	child, err := schema.DefineType(concept.EntityKind, concept.NewLabel("child"), person.ID)
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
	if err := schema.Owns(child.ID, age.ID, concept.Unordered); err != nil {
		return nil, err
	}

	return map[string]concept.TypeID{
		"person": person.ID,
		"child":  child.ID,
		"age":    age.ID,
	}, nil
}

// SeedEntityAttribute inserts $p isa child, has age 10; through the
// real Insert pipeline.
func SeedEntityAttribute(ctx *executor.ExecutionContext, ids map[string]concept.TypeID) error {
	block := ir.NewBlock()
	p := block.Variables.Declare("p")
	pt := block.Variables.Declare("PT")
	a := block.Variables.Declare("a")
	at := block.Variables.Declare("AT")
	lit := block.Parameters.Intern(int64(10))

	block.Root.Constraints = []ir.Constraint{
		ir.LabelConstraint{Type: pt, Label: concept.NewLabel("child")},
		ir.Isa{Thing: p, Type: pt, Mode: ir.IsaExact},
		ir.LabelConstraint{Type: at, Label: concept.NewLabel("age")},
		ir.Isa{Thing: a, Type: at, Mode: ir.IsaExact},
		ir.Has{Owner: p, Attr: a},
		ir.Comparison{Lhs: a, Op: ir.Eq, RhsParam: lit, RhsIsParam: true},
	}

	return runInsert(ctx, block)
}

// runInsert annotates, write-checks and lowers block as an Insert
// stage, then drives an InsertExecutor to completion. Shared by every
// scenario whose seed is a single-stage insert.
//
// Each call builds its own ir.Block with its own ParameterRegistry, so
// the context handed to the executor binds Parameters to THIS block's
// registry rather than whatever ctx arrived with -- resolveValue looks
// up literals by ParameterID against ctx.Parameters, and those IDs
// are only meaningful within the block that interned them.
func runInsert(ctx *executor.ExecutionContext, block *ir.Block) error {
	ann, err := annotator.InferBlock(block, ctx.Schema, true)
	if err != nil {
		return err
	}
	if err := writecheck.CheckInsert(block, ann, ctx.Schema); err != nil {
		return err
	}
	wl, err := lowering.LowerInsert(block, ann, ctx.Schema)
	if err != nil {
		return err
	}
	blockCtx := &executor.ExecutionContext{
		Read:       ctx.Read,
		Write:      ctx.Write,
		Schema:     ctx.Schema,
		Parameters: block.Parameters,
		Things:     ctx.Things,
	}
	ins := executor.NewInsertExecutor(wl, blockCtx)
	ins.Prepare(nil)
	return drain(ins)
}
