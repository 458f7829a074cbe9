package lowering

import (
	"fmt"

	"github.com/wbrown/typeql-engine/annotator"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
)

// AmbiguousTypeError reports that a materializing variable's annotated
// candidate set isn't a singleton, so lowering has no single type id to
// bake into a ConceptInstruction.
type AmbiguousTypeError struct {
	Variable   ir.VariableID
	Candidates int
}

func (e *AmbiguousTypeError) Error() string {
	return fmt.Sprintf("lowering: variable %d has %d candidate types, need exactly one to materialize", e.Variable, e.Candidates)
}

// WriteLowering is the ordered instruction list a write stage lowers
// to: every ConceptInstruction runs before any ConnectionInstruction,
// matching the executor's create-then-connect order (§4.4, §4.5).
type WriteLowering struct {
	Schema      *RowSchema
	Concepts    []ConceptInstruction
	Connections []ConnectionInstruction
}

// LowerInsert compiles an Insert-stage block (already write-mode
// annotated) into a WriteLowering. Every Isa constraint in the root
// conjunction must have a singleton candidate type; Has/Links
// constraints reference the slots those Isa instructions populate.
func LowerInsert(block *ir.Block, ann *annotator.BlockAnnotations, schema *concept.Schema) (*WriteLowering, error) {
	root := ann.Root(block)
	if root == nil {
		return nil, fmt.Errorf("lowering: block has no root annotations")
	}

	rows := NewRowSchema()
	wl := &WriteLowering{Schema: rows}

	for _, c := range block.Root.Constraints {
		isa, ok := c.(ir.Isa)
		if !ok {
			continue
		}
		typeID, err := singletonType(root, isa.Thing)
		if err != nil {
			return nil, err
		}
		st, ok := schema.Type(typeID)
		if !ok {
			return nil, fmt.Errorf("lowering: unknown type id %d", typeID)
		}

		writeTo := rows.Assign(isa.Thing)
		if st.Kind == concept.AttributeKind {
			vs, err := valueSourceFor(block.Root, isa.Thing, rows)
			if err != nil {
				return nil, err
			}
			wl.Concepts = append(wl.Concepts, PutAttribute{
				TypeSource:  LiteralType(typeID),
				ValueSource: vs,
				WriteTo:     writeTo,
			})
		} else {
			wl.Concepts = append(wl.Concepts, PutObject{TypeSource: LiteralType(typeID), WriteTo: writeTo})
		}
	}

	for _, c := range block.Root.Constraints {
		switch tc := c.(type) {
		case ir.Has:
			ownerSlot, ok := rows.Slot(tc.Owner)
			if !ok {
				return nil, fmt.Errorf("lowering: has owner variable %d was never materialized", tc.Owner)
			}
			attrSlot, ok := rows.Slot(tc.Attr)
			if !ok {
				return nil, fmt.Errorf("lowering: has attribute variable %d was never materialized", tc.Attr)
			}
			wl.Connections = append(wl.Connections, HasInstruction{OwnerSlot: ownerSlot, AttributeSlot: attrSlot})

		case ir.Links:
			relSlot, ok := rows.Slot(tc.Relation)
			if !ok {
				return nil, fmt.Errorf("lowering: links relation variable %d was never materialized", tc.Relation)
			}
			playerSlot, ok := rows.Slot(tc.Player)
			if !ok {
				return nil, fmt.Errorf("lowering: links player variable %d was never materialized", tc.Player)
			}
			roleType, err := roleTypeSourceFor(tc.Role, root)
			if err != nil {
				return nil, err
			}
			wl.Connections = append(wl.Connections, LinksInstruction{
				RelationSlot: relSlot, PlayerSlot: playerSlot, RoleTypeSource: roleType,
			})
		}
	}

	return wl, nil
}

// LowerUpdate compiles an Update-stage block. PutObject is illegal
// under Update (§4.5: "like Insert but PutObject is illegal"), so any
// Isa materializing a non-Attribute type is rejected before lowering
// proceeds. writecheck.CheckUpdate does not check type kinds, so this
// is the one place the rule is enforced.
func LowerUpdate(block *ir.Block, ann *annotator.BlockAnnotations, schema *concept.Schema) (*WriteLowering, error) {
	root := ann.Root(block)
	if root == nil {
		return nil, fmt.Errorf("lowering: block has no root annotations")
	}
	for _, c := range block.Root.Constraints {
		isa, ok := c.(ir.Isa)
		if !ok {
			continue
		}
		typeID, err := singletonType(root, isa.Thing)
		if err != nil {
			return nil, err
		}
		st, ok := schema.Type(typeID)
		if ok && st.Kind != concept.AttributeKind {
			return nil, fmt.Errorf("lowering: PutObject is illegal under update (variable %d, type %s)", isa.Thing, st.Label)
		}
	}
	return LowerInsert(block, ann, schema)
}

func singletonType(root *annotator.TypeAnnotations, v ir.VariableID) (concept.TypeID, error) {
	set, ok := root.VertexTypes[v]
	if !ok || set.Cardinality() != 1 {
		card := 0
		if ok {
			card = int(set.Cardinality())
		}
		return 0, &AmbiguousTypeError{Variable: v, Candidates: card}
	}
	var id concept.TypeID
	for t := range set.Iter() {
		id = t
	}
	return id, nil
}

// valueSourceFor resolves attr's runtime value: a literal equality
// comparison bound to attr lowers to a literal ValueSource; otherwise
// attr's own slot is assumed already populated by an earlier Match or
// expression stage and is read from there.
func valueSourceFor(conj ir.Conjunction, attr ir.VariableID, rows *RowSchema) (ValueSource, error) {
	for _, c := range conj.Constraints {
		cmp, ok := c.(ir.Comparison)
		if !ok || !cmp.RhsIsParam || cmp.Op != ir.Eq || cmp.Lhs != attr {
			continue
		}
		return LiteralValue(cmp.RhsParam), nil
	}
	return ValueFromSlot(rows.Assign(attr)), nil
}

// roleTypeSourceFor resolves a Links constraint's role type: the role
// variable's annotated candidate set must be a singleton (seeded by a
// RoleName or Relates constraint upstream in inference).
func roleTypeSourceFor(role ir.VariableID, root *annotator.TypeAnnotations) (TypeSource, error) {
	if set, ok := root.VertexTypes[role]; ok && set.Cardinality() == 1 {
		var id concept.TypeID
		for t := range set.Iter() {
			id = t
		}
		return LiteralType(id), nil
	}
	return TypeSource{}, &AmbiguousTypeError{Variable: role, Candidates: candidateCount(root, role)}
}

func candidateCount(root *annotator.TypeAnnotations, v ir.VariableID) int {
	set, ok := root.VertexTypes[v]
	if !ok {
		return 0
	}
	return int(set.Cardinality())
}
