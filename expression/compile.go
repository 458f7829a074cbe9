package expression

import (
	"fmt"

	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/value"
)

// ReturnType is an expression's compiled result shape: a single
// value of Category, or a List of it (§4.2: "Single(VT) or List(VT)").
type ReturnType struct {
	Category value.Category
	IsList   bool
}

func (r ReturnType) String() string {
	if r.IsList {
		return fmt.Sprintf("list(%s)", r.Category)
	}
	return r.Category.String()
}

// ExecutableExpression is a typed expression tree ready for the
// executor to evaluate per input row.
type ExecutableExpression struct {
	Tree   Expression
	Return ReturnType
}

// MultipleAssignmentsForVariableError mirrors the annotator's own
// duplicate-binding check (§4.2), reported here when the same variable
// is the Assigned target of more than one ExpressionBinding compiled
// in the same Table.
type MultipleAssignmentsForVariableError struct {
	Variable ir.VariableID
}

func (e *MultipleAssignmentsForVariableError) Error() string {
	return fmt.Sprintf("expression: variable %d is assigned by more than one expression", e.Variable)
}

// UnsupportedOperatorError reports that an operator has no defined
// result category for the operand categories given.
type UnsupportedOperatorError struct {
	Op          ArithmeticOp
	Left, Right value.Category
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("expression: operator %s is not defined over %s and %s", e.Op, e.Left, e.Right)
}

// TypeMismatchError reports that an expression node's actual operand
// type didn't match what the surrounding context required (e.g. a
// ListExpr whose elements don't share a category).
type TypeMismatchError struct {
	Expected, Actual value.Category
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("expression: expected %s, found %s", e.Expected, e.Actual)
}

// Table holds the flat list of expression trees a Block's
// ExpressionBinding constraints index into by position (§3: "Expression
// int" is an index into the owning Block's expression list, which this
// Table materialises).
type Table struct {
	exprs []Expression
}

// NewTable returns an empty expression table.
func NewTable() *Table { return &Table{} }

// Add appends expr and returns its index for use as an
// ExpressionBinding.Expression value.
func (t *Table) Add(expr Expression) int {
	t.exprs = append(t.exprs, expr)
	return len(t.exprs) - 1
}

// Get returns the expression at index, if any.
func (t *Table) Get(index int) (Expression, bool) {
	if index < 0 || index >= len(t.exprs) {
		return nil, false
	}
	return t.exprs[index], true
}

// Compile type-checks expr bottom-up per §4.2: literals are typed by
// their parameter's dynamic category, variable references are typed
// from valueTypes (the running value-type map written by Match/a prior
// expression), and operators resolve via the trivial-cast table of
// value.TriviallyCastableTo.
func Compile(expr Expression, params *ir.ParameterRegistry, valueTypes map[ir.VariableID]value.Category) (*ExecutableExpression, error) {
	rt, err := typeOf(expr, params, valueTypes)
	if err != nil {
		return nil, err
	}
	return &ExecutableExpression{Tree: expr, Return: rt}, nil
}

func typeOf(expr Expression, params *ir.ParameterRegistry, valueTypes map[ir.VariableID]value.Category) (ReturnType, error) {
	switch e := expr.(type) {
	case Literal:
		v := params.Value(e.Param)
		return ReturnType{Category: value.CategoryOf(v)}, nil

	case VariableRef:
		cat, ok := valueTypes[e.Variable]
		if !ok {
			return ReturnType{}, fmt.Errorf("expression: variable %d has no known value type", e.Variable)
		}
		return ReturnType{Category: cat}, nil

	case BinaryOp:
		left, err := typeOf(e.Left, params, valueTypes)
		if err != nil {
			return ReturnType{}, err
		}
		right, err := typeOf(e.Right, params, valueTypes)
		if err != nil {
			return ReturnType{}, err
		}
		if left.IsList || right.IsList {
			return ReturnType{}, &TypeMismatchError{Expected: left.Category, Actual: right.Category}
		}
		return resolveBinaryType(e.Op, left.Category, right.Category)

	case Negate:
		operand, err := typeOf(e.Operand, params, valueTypes)
		if err != nil {
			return ReturnType{}, err
		}
		if operand.IsList || !isNumeric(operand.Category) {
			return ReturnType{}, &UnsupportedOperatorError{Op: OpSub, Left: operand.Category, Right: operand.Category}
		}
		return operand, nil

	case ListExpr:
		if len(e.Elements) == 0 {
			return ReturnType{}, fmt.Errorf("expression: empty list expression has no element type")
		}
		first, err := typeOf(e.Elements[0], params, valueTypes)
		if err != nil {
			return ReturnType{}, err
		}
		for _, elem := range e.Elements[1:] {
			rt, err := typeOf(elem, params, valueTypes)
			if err != nil {
				return ReturnType{}, err
			}
			if rt.Category != first.Category || rt.IsList {
				return ReturnType{}, &TypeMismatchError{Expected: first.Category, Actual: rt.Category}
			}
		}
		return ReturnType{Category: first.Category, IsList: true}, nil

	default:
		return ReturnType{}, fmt.Errorf("expression: unrecognised expression node %T", expr)
	}
}

// CompileBlockExpressions compiles every ExpressionBinding constraint
// in block against table, writing each result's return category back
// into valueTypes (§4.2: "written back into the running value-type
// map") so a later binding in the same block can reference an earlier
// one's result, and failing with MultipleAssignmentsForVariableError
// if two bindings target the same variable.
func CompileBlockExpressions(block *ir.Block, table *Table, valueTypes map[ir.VariableID]value.Category) (map[ir.VariableID]*ExecutableExpression, error) {
	results := make(map[ir.VariableID]*ExecutableExpression)
	for _, conj := range block.AllConjunctions() {
		for _, c := range conj.Constraints {
			eb, ok := c.(ir.ExpressionBinding)
			if !ok {
				continue
			}
			if _, exists := results[eb.Assigned]; exists {
				return nil, &MultipleAssignmentsForVariableError{Variable: eb.Assigned}
			}
			expr, ok := table.Get(eb.Expression)
			if !ok {
				return nil, fmt.Errorf("expression: no expression at table index %d", eb.Expression)
			}
			exec, err := Compile(expr, block.Parameters, valueTypes)
			if err != nil {
				return nil, err
			}
			results[eb.Assigned] = exec
			valueTypes[eb.Assigned] = exec.Return.Category
		}
	}
	return results, nil
}

func isNumeric(cat value.Category) bool {
	return cat == value.Integer || cat == value.Double || cat == value.Decimal
}

// resolveBinaryType widens left/right to their common numeric category
// via the trivial-cast table when they differ, and rejects
// Decimal/Decimal division outright -- there is no exact fixed-
// denominator result for it (the same rule value.Decimal.DivDecimal
// enforces at the value layer).
func resolveBinaryType(op ArithmeticOp, left, right value.Category) (ReturnType, error) {
	if !isNumeric(left) || !isNumeric(right) {
		return ReturnType{}, &UnsupportedOperatorError{Op: op, Left: left, Right: right}
	}

	if op == OpDiv && left == value.Decimal && right == value.Decimal {
		return ReturnType{}, &UnsupportedOperatorError{Op: op, Left: left, Right: right}
	}

	if left == right {
		return ReturnType{Category: left}, nil
	}
	if value.TriviallyCastableTo(left, right) {
		return ReturnType{Category: right}, nil
	}
	if value.TriviallyCastableTo(right, left) {
		return ReturnType{Category: left}, nil
	}
	return ReturnType{}, &UnsupportedOperatorError{Op: op, Left: left, Right: right}
}
