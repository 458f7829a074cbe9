package lowering

import (
	"github.com/wbrown/typeql-engine/annotator"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/value"
)

// TypeSource is either a literal schema type id fixed at lowering time
// or a slot carrying a type at runtime (§4.4).
type TypeSource struct {
	Literal  concept.TypeID
	FromSlot bool
	Slot     Slot
}

// LiteralType returns a TypeSource fixed to t at lowering time.
func LiteralType(t concept.TypeID) TypeSource { return TypeSource{Literal: t} }

// TypeFromSlot returns a TypeSource read from s at runtime.
func TypeFromSlot(s Slot) TypeSource { return TypeSource{FromSlot: true, Slot: s} }

// ValueSource is either a literal parameter or a slot carrying a value
// at runtime (§4.4).
type ValueSource struct {
	Param     ir.ParameterID
	FromParam bool
	FromSlot  bool
	Slot      Slot
}

// LiteralValue returns a ValueSource fixed to the parameter registry
// entry p.
func LiteralValue(p ir.ParameterID) ValueSource { return ValueSource{Param: p, FromParam: true} }

// ValueFromSlot returns a ValueSource read from s at runtime.
func ValueFromSlot(s Slot) ValueSource { return ValueSource{FromSlot: true, Slot: s} }

// ConceptInstruction is one of PutObject/PutAttribute (§4.4).
type ConceptInstruction interface{ isConceptInstruction() }

// PutObject creates an Entity or Relation instance of the type denoted
// by TypeSource and writes the new handle into WriteTo.
type PutObject struct {
	TypeSource TypeSource
	WriteTo    Slot
}

func (PutObject) isConceptInstruction() {}

// PutAttribute creates an Attribute instance of the type denoted by
// TypeSource holding ValueSource's value, writing the new handle into
// WriteTo.
type PutAttribute struct {
	TypeSource  TypeSource
	ValueSource ValueSource
	WriteTo     Slot
}

func (PutAttribute) isConceptInstruction() {}

// ConnectionInstruction is one of Has/Links (§4.4).
type ConnectionInstruction interface{ isConnectionInstruction() }

// HasInstruction adds (or, under Update, replaces) the owns-edge
// between the concepts in OwnerSlot and AttributeSlot.
type HasInstruction struct {
	OwnerSlot     Slot
	AttributeSlot Slot
}

func (HasInstruction) isConnectionInstruction() {}

// LinksInstruction adds a role-player edge: the concept in PlayerSlot
// plays the role denoted by RoleTypeSource in the relation in
// RelationSlot.
type LinksInstruction struct {
	RelationSlot   Slot
	PlayerSlot     Slot
	RoleTypeSource TypeSource
}

func (LinksInstruction) isConnectionInstruction() {}

// ReducerKind mirrors annotator.Reducer tagged by the value category it
// actually runs over, since the executor needs a concrete numeric/
// string/temporal comparison routine selected at lowering time rather
// than a category dispatch on every row (§4.4: "ReduceInstruction
// variant tagged by value type").
type ReducerKind struct {
	Reducer  annotator.Reducer
	Category value.Category
}

// ReduceInstruction reduces InputSlot's values across a group, via the
// routine ReducerKind.Reducer/Category selects, writing the aggregate
// into WriteTo.
type ReduceInstruction struct {
	Kind     ReducerKind
	Input    Slot
	WriteTo  Slot
	GroupKey []Slot
}
