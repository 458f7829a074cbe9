package expression

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/value"
)

func TestCompileLiteralTypesFromParameterValue(t *testing.T) {
	params := ir.NewParameterRegistry()
	id := params.Intern(int64(42))

	exec, err := Compile(Literal{Param: id}, params, nil)
	require.NoError(t, err)
	require.Equal(t, value.Integer, exec.Return.Category)
	require.False(t, exec.Return.IsList)
}

func TestCompileVariableRefUsesRunningValueTypes(t *testing.T) {
	params := ir.NewParameterRegistry()
	v := ir.VariableID(1)
	running := map[ir.VariableID]value.Category{v: value.String}

	exec, err := Compile(VariableRef{Variable: v}, params, running)
	require.NoError(t, err)
	require.Equal(t, value.String, exec.Return.Category)
}

func TestCompileVariableRefUnknownFails(t *testing.T) {
	params := ir.NewParameterRegistry()
	_, err := Compile(VariableRef{Variable: ir.VariableID(7)}, params, nil)
	require.Error(t, err)
}

func TestCompileBinaryOpWidensIntegerToDecimal(t *testing.T) {
	params := ir.NewParameterRegistry()
	intLit := params.Intern(int64(2))
	decLit := params.Intern(mustDecimal(t, "1.5"))

	expr := BinaryOp{Op: OpAdd, Left: Literal{Param: intLit}, Right: Literal{Param: decLit}}
	exec, err := Compile(expr, params, nil)
	require.NoError(t, err)
	require.Equal(t, value.Decimal, exec.Return.Category)
}

func TestCompileBinaryOpRejectsDecimalDivision(t *testing.T) {
	params := ir.NewParameterRegistry()
	a := params.Intern(mustDecimal(t, "1.0"))
	b := params.Intern(mustDecimal(t, "2.0"))

	expr := BinaryOp{Op: OpDiv, Left: Literal{Param: a}, Right: Literal{Param: b}}
	_, err := Compile(expr, params, nil)
	require.Error(t, err)
	var unsupported *UnsupportedOperatorError
	require.ErrorAs(t, err, &unsupported)
}

func TestCompileBinaryOpRejectsNonNumeric(t *testing.T) {
	params := ir.NewParameterRegistry()
	a := params.Intern("hello")
	b := params.Intern(int64(1))

	expr := BinaryOp{Op: OpAdd, Left: Literal{Param: a}, Right: Literal{Param: b}}
	_, err := Compile(expr, params, nil)
	require.Error(t, err)
}

func TestCompileNegateRequiresNumeric(t *testing.T) {
	params := ir.NewParameterRegistry()
	s := params.Intern("hello")
	_, err := Compile(Negate{Operand: Literal{Param: s}}, params, nil)
	require.Error(t, err)
}

func TestCompileListExprRequiresUniformCategory(t *testing.T) {
	params := ir.NewParameterRegistry()
	a := params.Intern(int64(1))
	b := params.Intern(int64(2))

	exec, err := Compile(ListExpr{Elements: []Expression{Literal{Param: a}, Literal{Param: b}}}, params, nil)
	require.NoError(t, err)
	require.True(t, exec.Return.IsList)
	require.Equal(t, value.Integer, exec.Return.Category)

	c := params.Intern("oops")
	_, err = Compile(ListExpr{Elements: []Expression{Literal{Param: a}, Literal{Param: c}}}, params, nil)
	require.Error(t, err)
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestTableAddAndGet(t *testing.T) {
	table := NewTable()
	idx := table.Add(Literal{Param: ir.ParameterID(0)})
	require.Equal(t, 0, idx)

	expr, ok := table.Get(idx)
	require.True(t, ok)
	require.Equal(t, Literal{Param: ir.ParameterID(0)}, expr)

	_, ok = table.Get(99)
	require.False(t, ok)
}

func TestCompileBlockExpressionsWritesBackRunningValueType(t *testing.T) {
	block := ir.NewBlock()
	out := block.Variables.Declare("r")
	lit := block.Parameters.Intern(int64(10))

	table := NewTable()
	idx := table.Add(Literal{Param: lit})
	block.Root.Constraints = []ir.Constraint{
		ir.ExpressionBinding{Assigned: out, Expression: idx},
	}

	running := map[ir.VariableID]value.Category{}
	results, err := CompileBlockExpressions(block, table, running)
	require.NoError(t, err)
	require.Equal(t, value.Integer, results[out].Return.Category)
	require.Equal(t, value.Integer, running[out])
}

func TestCompileBlockExpressionsRejectsDuplicateAssignment(t *testing.T) {
	block := ir.NewBlock()
	out := block.Variables.Declare("r")
	lit := block.Parameters.Intern(int64(10))

	table := NewTable()
	idx := table.Add(Literal{Param: lit})
	block.Root.Constraints = []ir.Constraint{
		ir.ExpressionBinding{Assigned: out, Expression: idx},
		ir.ExpressionBinding{Assigned: out, Expression: idx},
	}

	_, err := CompileBlockExpressions(block, table, map[ir.VariableID]value.Category{})
	require.Error(t, err)
	var dup *MultipleAssignmentsForVariableError
	require.ErrorAs(t, err, &dup)
}

func mustDecimal(t *testing.T, s string) value.Decimal {
	t.Helper()
	d, err := value.ParseDecimal(s)
	require.NoError(t, err)
	return d
}
