package annotator

import (
	"fmt"

	"github.com/wbrown/typeql-engine/value"
)

// Reducer identifies one of the fixed aggregation operators a Reduce
// stage may apply to a variable (§4.1).
type Reducer uint8

const (
	ReduceCount Reducer = iota
	ReduceCountVar
	ReduceSum
	ReduceMin
	ReduceMax
	ReduceMean
	ReduceMedian
	ReduceStd
)

func (r Reducer) String() string {
	switch r {
	case ReduceCount:
		return "count"
	case ReduceCountVar:
		return "count-var"
	case ReduceSum:
		return "sum"
	case ReduceMin:
		return "min"
	case ReduceMax:
		return "max"
	case ReduceMean:
		return "mean"
	case ReduceMedian:
		return "median"
	case ReduceStd:
		return "std"
	default:
		return fmt.Sprintf("reducer(%d)", uint8(r))
	}
}

// UnsupportedReducerError reports that a reducer has no defined output
// value category for the given input category (§4.1's reducer table).
type UnsupportedReducerError struct {
	Reducer Reducer
	Input   value.Category
}

func (e *UnsupportedReducerError) Error() string {
	return fmt.Sprintf("annotator: reducer %s is not defined over %s", e.Reducer, e.Input)
}

// ReducerOutputCategory implements the reducer x value-type support
// table from §4.1: Count/CountVar always yield Integer regardless of
// the input variable's category (counting doesn't touch the values);
// the rest are defined only over specific input categories and
// produce the category named in the table (numeric reducers widen
// Integer to Double for Mean/Median/Std since those results are
// generally non-integral; Sum and Min/Max instead preserve the
// input's own category).
func ReducerOutputCategory(r Reducer, input value.Category) (value.Category, error) {
	switch r {
	case ReduceCount, ReduceCountVar:
		return value.Integer, nil

	case ReduceSum:
		switch input {
		case value.Integer:
			return value.Integer, nil
		case value.Double:
			return value.Double, nil
		case value.Decimal:
			return value.Decimal, nil
		default:
			return 0, &UnsupportedReducerError{Reducer: r, Input: input}
		}

	case ReduceMin, ReduceMax:
		switch input {
		case value.Integer:
			return value.Integer, nil
		case value.Double:
			return value.Double, nil
		case value.Decimal:
			return value.Decimal, nil
		case value.String:
			return value.String, nil
		case value.Date:
			return value.Date, nil
		case value.DateTime:
			return value.DateTime, nil
		case value.DateTimeTZ:
			return value.DateTimeTZ, nil
		default:
			return 0, &UnsupportedReducerError{Reducer: r, Input: input}
		}

	case ReduceMean, ReduceMedian, ReduceStd:
		switch input {
		case value.Integer, value.Double:
			return value.Double, nil
		case value.Decimal:
			return value.Decimal, nil
		default:
			return 0, &UnsupportedReducerError{Reducer: r, Input: input}
		}

	default:
		return 0, &UnsupportedReducerError{Reducer: r, Input: input}
	}
}
