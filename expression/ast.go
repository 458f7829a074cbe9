// Package expression compiles the expression trees bound by
// ExpressionBinding constraints into typed, executable form (§4.2).
// Grounded on the teacher's query.Function interface
// (datalog/query/function.go): an ArithmeticOp enum plus a small
// closed set of node kinds, generalised from the teacher's untyped
// "number"/"string"/"any" return-type hint to the full value.Category
// lattice and its trivial-cast table.
package expression

import "github.com/wbrown/typeql-engine/ir"

// ArithmeticOp enumerates the binary arithmetic operators an
// expression tree may apply.
type ArithmeticOp uint8

const (
	OpAdd ArithmeticOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

func (o ArithmeticOp) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	default:
		return "?"
	}
}

// Expression is one node of an (uncompiled) expression tree bound by
// an ExpressionBinding constraint.
type Expression interface {
	// RequiredVariables returns every variable this node and its
	// children reference, for dependency ordering in lowering.
	RequiredVariables() []ir.VariableID
}

// Literal is a parameter-registry reference to a literal value.
type Literal struct {
	Param ir.ParameterID
}

func (Literal) RequiredVariables() []ir.VariableID { return nil }

// VariableRef reads a previously bound variable's value.
type VariableRef struct {
	Variable ir.VariableID
}

func (v VariableRef) RequiredVariables() []ir.VariableID { return []ir.VariableID{v.Variable} }

// BinaryOp applies an arithmetic operator to two subexpressions.
type BinaryOp struct {
	Op          ArithmeticOp
	Left, Right Expression
}

func (b BinaryOp) RequiredVariables() []ir.VariableID {
	return append(b.Left.RequiredVariables(), b.Right.RequiredVariables()...)
}

// Negate is unary numeric negation.
type Negate struct {
	Operand Expression
}

func (n Negate) RequiredVariables() []ir.VariableID { return n.Operand.RequiredVariables() }

// ListExpr constructs a List(VT) value from a fixed sequence of
// same-category element expressions.
type ListExpr struct {
	Elements []Expression
}

func (l ListExpr) RequiredVariables() []ir.VariableID {
	var out []ir.VariableID
	for _, e := range l.Elements {
		out = append(out, e.RequiredVariables()...)
	}
	return out
}
