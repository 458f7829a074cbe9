package executor

import (
	"fmt"
	"math"
	"sort"

	"github.com/wbrown/typeql-engine/annotator"
	"github.com/wbrown/typeql-engine/lowering"
	"github.com/wbrown/typeql-engine/value"
)

// ReduceExecutor buffers its entire input, partitions by GroupKey, and
// applies the instruction's reducer per group (§4.5's Reduce executor).
// Unlike Match/Insert/Update/Delete, Reduce can't produce a result
// until every input row in a group has been seen, so it materializes
// the whole input up front rather than pulling row by row.
type ReduceExecutor struct {
	instr  lowering.ReduceInstruction
	width  int
	rows   []Row
	output []Row
	done   bool
}

func NewReduceExecutor(instr lowering.ReduceInstruction, width int) *ReduceExecutor {
	return &ReduceExecutor{instr: instr, width: width}
}

func (e *ReduceExecutor) Prepare(input *FixedBatch) {
	if input != nil {
		e.rows = append(e.rows, input.Rows...)
	}
}

func (e *ReduceExecutor) ComputeNextBatch(interrupt ExecutionInterrupt) (*FixedBatch, error) {
	if !e.done {
		out, err := e.reduceAll()
		if err != nil {
			return nil, err
		}
		e.output = out
		e.done = true
	}

	if len(e.output) == 0 {
		return nil, nil
	}

	batch := NewFixedBatch(e.width)
	count := 0
	for len(e.output) > 0 && !batch.Full() {
		batch.Append(e.output[0])
		e.output = e.output[1:]
		count++
		if count%CheckInterruptFrequencyRows == 0 && interrupt.Check() {
			return nil, &InterruptedError{}
		}
	}
	return batch, nil
}

type reduceGroup struct {
	key  string
	rep  Row // a representative row, carrying the group-key cells forward
	vals []value.Value
	n    uint64 // row-multiplicity-weighted count, for Count/CountVar
}

func (e *ReduceExecutor) reduceAll() ([]Row, error) {
	groups := make(map[string]*reduceGroup)
	var order []string

	for _, row := range e.rows {
		key := groupKeyOf(row, e.instr.GroupKey)
		g, ok := groups[key]
		if !ok {
			g = &reduceGroup{key: key, rep: row}
			groups[key] = g
			order = append(order, key)
		}

		cell := row.Get(int(e.instr.Input))
		mult := row.Multiplicity
		if mult == 0 {
			mult = 1
		}
		if e.instr.Kind.Reducer == annotator.ReduceCount {
			g.n += mult
			continue
		}
		v, ok := cellValue(cell)
		if !ok {
			continue // unbound input doesn't contribute -- ReduceCountVar also skips it below
		}
		if e.instr.Kind.Reducer == annotator.ReduceCountVar {
			g.n += mult
			continue
		}
		for i := uint64(0); i < mult; i++ {
			g.vals = append(g.vals, v)
		}
	}

	sort.Strings(order)

	out := make([]Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		result, err := applyReducer(e.instr.Kind.Reducer, e.instr.Kind.Category, g)
		if err != nil {
			return nil, err
		}
		row := g.rep.Clone()
		if len(row.Cells) < e.width {
			padded := make([]Cell, e.width)
			copy(padded, row.Cells)
			for i := len(row.Cells); i < e.width; i++ {
				padded[i] = EmptyCell()
			}
			row.Cells = padded
		}
		row.Cells[e.instr.WriteTo] = ValueCell(result)
		row.Multiplicity = 1
		out = append(out, row)
	}
	return out, nil
}

func groupKeyOf(row Row, slots []lowering.Slot) string {
	key := ""
	for _, s := range slots {
		c := row.Get(int(s))
		switch c.Kind {
		case CellConcept:
			key += fmt.Sprintf("|c:%d", c.Concept.ID)
		case CellValue:
			if t, ok := c.AsType(); ok {
				key += fmt.Sprintf("|t:%d", t)
			} else if b, err := encodeValue(c.Value); err == nil {
				key += "|v:" + string(b)
			}
		default:
			key += "|_"
		}
	}
	return key
}

func applyReducer(r annotator.Reducer, cat value.Category, g *reduceGroup) (value.Value, error) {
	switch r {
	case annotator.ReduceCount, annotator.ReduceCountVar:
		return int64(g.n), nil

	case annotator.ReduceSum:
		return sumValues(cat, g.vals)

	case annotator.ReduceMin:
		return extremeValue(g.vals, -1)
	case annotator.ReduceMax:
		return extremeValue(g.vals, 1)

	case annotator.ReduceMean:
		return meanValue(g.vals)

	case annotator.ReduceMedian:
		return medianValue(g.vals)

	case annotator.ReduceStd:
		return stdValue(g.vals)

	default:
		return nil, &annotator.UnsupportedReducerError{Reducer: r, Input: cat}
	}
}

func sumValues(cat value.Category, vals []value.Value) (value.Value, error) {
	switch cat {
	case value.Integer:
		var sum int64
		for _, v := range vals {
			sum += v.(int64)
		}
		return sum, nil
	case value.Double:
		var sum float64
		for _, v := range vals {
			sum += v.(float64)
		}
		return sum, nil
	case value.Decimal:
		sum := value.FromInt(0)
		for _, v := range vals {
			sum = sum.Add(v.(value.Decimal))
		}
		return sum, nil
	default:
		return nil, fmt.Errorf("executor: sum over %s is not supported", cat)
	}
}

func extremeValue(vals []value.Value, direction int) (value.Value, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	best := vals[0]
	for _, v := range vals[1:] {
		if (value.Compare(v, best) > 0) == (direction > 0) {
			best = v
		}
	}
	return best, nil
}

func meanValue(vals []value.Value) (value.Value, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	floats, isDecimal := toFloats(vals)
	var sum float64
	for _, f := range floats {
		sum += f
	}
	mean := sum / float64(len(floats))
	if isDecimal {
		return decimalFromFloat(mean), nil
	}
	return mean, nil
}

func medianValue(vals []value.Value) (value.Value, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	floats, isDecimal := toFloats(vals)
	sort.Float64s(floats)
	n := len(floats)
	var median float64
	if n%2 == 1 {
		median = floats[n/2]
	} else {
		median = (floats[n/2-1] + floats[n/2]) / 2
	}
	if isDecimal {
		return decimalFromFloat(median), nil
	}
	return median, nil
}

func stdValue(vals []value.Value) (value.Value, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	floats, isDecimal := toFloats(vals)
	var sum float64
	for _, f := range floats {
		sum += f
	}
	mean := sum / float64(len(floats))
	var variance float64
	for _, f := range floats {
		variance += (f - mean) * (f - mean)
	}
	variance /= float64(len(floats))
	std := math.Sqrt(variance)
	if isDecimal {
		return decimalFromFloat(std), nil
	}
	return std, nil
}

func toFloats(vals []value.Value) ([]float64, bool) {
	floats := make([]float64, len(vals))
	isDecimal := false
	for i, v := range vals {
		switch tv := v.(type) {
		case int64:
			floats[i] = float64(tv)
		case float64:
			floats[i] = tv
		case value.Decimal:
			floats[i] = tv.ToFloat64()
			isDecimal = true
		}
	}
	return floats, isDecimal
}

func decimalFromFloat(f float64) value.Decimal {
	integer := int64(math.Floor(f))
	frac := f - math.Floor(f)
	return value.NewDecimal(integer, uint64(frac*1e19))
}
