package ir

import (
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/value"
)

// ConstraintKind discriminates the fixed set of constraint variants a
// Conjunction may hold (§3).
type ConstraintKind uint8

const (
	IsaConstraint ConstraintKind = iota
	SubConstraint
	LabelConstraintKind
	HasConstraint
	LinksConstraint
	RoleNameConstraint
	KindConstraintKind
	ValueTypeConstraintKind
	OwnsConstraint
	PlaysConstraint
	RelatesConstraint
	ExpressionBindingConstraint
	FunctionCallBindingConstraint
	ComparisonConstraint
	IidConstraint
	IsConstraint
)

// IsaKind distinguishes an exact-type Isa from a subtype-inclusive one
// (§4.1.1: "or its subtypes if Isa kind is Subtype").
type IsaKind uint8

const (
	IsaExact IsaKind = iota
	IsaSubtype
)

// Constraint is one atomic predicate within a Conjunction. Concrete
// variants below each embed Constraint for the common Kind() access;
// the annotator and write-checker type-switch on the concrete type.
type Constraint interface {
	Kind() ConstraintKind
}

// Isa constrains thing to be an instance of type (or its subtypes).
type Isa struct {
	Thing VariableID
	Type  VariableID
	Mode  IsaKind
}

func (Isa) Kind() ConstraintKind { return IsaConstraint }

// Sub constrains a type variable to be a (transitive or direct)
// subtype of another type variable.
type Sub struct {
	Subtype   VariableID
	Supertype VariableID
	Transitive bool
}

func (Sub) Kind() ConstraintKind { return SubConstraint }

// LabelConstraint fixes a type variable to a concrete schema Label.
type LabelConstraint struct {
	Type  VariableID
	Label concept.Label
}

func (LabelConstraint) Kind() ConstraintKind { return LabelConstraintKind }

// Has constrains owner to own the attribute instance attr.
type Has struct {
	Owner VariableID
	Attr  VariableID
}

func (Has) Kind() ConstraintKind { return HasConstraint }

// Links constrains player to play role in relation rel.
type Links struct {
	Relation VariableID
	Player   VariableID
	Role     VariableID
}

func (Links) Kind() ConstraintKind { return LinksConstraint }

// RoleName fixes a role variable's name (unscoped; the owning relation
// disambiguates scope).
type RoleName struct {
	Role VariableID
	Name string
}

func (RoleName) Kind() ConstraintKind { return RoleNameConstraint }

// KindConstraintStruct restricts a type variable to a schema Kind.
type KindConstraintStruct struct {
	Type VariableID
	Kind concept.Kind
}

func (KindConstraintStruct) Kind() ConstraintKind { return KindConstraintKind }

// ValueTypeConstraint restricts an attribute-type variable to a value
// category.
type ValueTypeConstraint struct {
	Type     VariableID
	Category value.Category
}

func (ValueTypeConstraint) Kind() ConstraintKind { return ValueTypeConstraintKind }

// Owns constrains an object-type variable to own an attribute-type
// variable.
type Owns struct {
	Owner TypeVar
	Attr  TypeVar
}

func (Owns) Kind() ConstraintKind { return OwnsConstraint }

// TypeVar is a variable known (by prior constraints) to range over
// schema types rather than things; kept distinct from VariableID only
// at the documentation level -- both are VariableRegistry entries.
type TypeVar = VariableID

// Plays constrains an object-type variable to play a role-type
// variable.
type Plays struct {
	Player TypeVar
	Role   TypeVar
}

func (Plays) Kind() ConstraintKind { return PlaysConstraint }

// Relates constrains a relation-type variable to relate a role-type
// variable.
type Relates struct {
	Relation TypeVar
	Role     TypeVar
}

func (Relates) Kind() ConstraintKind { return RelatesConstraint }

// ExpressionBinding assigns the result of a compiled expression (by
// index into the owning Block's expression list) to a variable.
type ExpressionBinding struct {
	Assigned   VariableID
	Expression int
}

func (ExpressionBinding) Kind() ConstraintKind { return ExpressionBindingConstraint }

// FunctionCallBinding assigns the result(s) of calling a function to
// one or more variables.
type FunctionCallBinding struct {
	Assigned   []VariableID
	FunctionID FunctionID
	Arguments  []VariableID
}

func (FunctionCallBinding) Kind() ConstraintKind { return FunctionCallBindingConstraint }

// FunctionID identifies a callable function, schema- or
// preamble-scoped (§4.6).
type FunctionID struct {
	Scoped bool // true = preamble-local, false = schema function
	Name   string
}

// ComparisonOp enumerates the comparison operators a Comparison
// constraint may apply.
type ComparisonOp uint8

const (
	Eq ComparisonOp = iota
	Neq
	Lt
	Lte
	Gt
	Gte
)

// Comparison constrains lhs against either a variable rhs or a
// parameter rhs (exactly one of RhsVar/RhsParam is meaningful,
// discriminated by RhsIsParam).
type Comparison struct {
	Lhs        VariableID
	Op         ComparisonOp
	RhsVar     VariableID
	RhsParam   ParameterID
	RhsIsParam bool
}

func (Comparison) Kind() ConstraintKind { return ComparisonConstraint }

// Iid constrains thing to the exact internal id encoded by param.
type Iid struct {
	Thing VariableID
	Param ParameterID
}

func (Iid) Kind() ConstraintKind { return IidConstraint }

// Is constrains two variables to denote the same thing or type.
type Is struct {
	Left  VariableID
	Right VariableID
}

func (Is) Kind() ConstraintKind { return IsConstraint }
