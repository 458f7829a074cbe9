// Package display renders executor output rows as markdown tables,
// the way datalog/executor's TableFormatter renders a Relation: a
// thin adapter from this engine's Row/Cell shape to the same
// tablewriter markdown renderer.
package display

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/executor"
)

// Formatter renders FixedBatch rows as markdown tables, resolving
// attribute cells to their underlying value and type cells to their
// schema label.
type Formatter struct {
	Schema *concept.Schema
}

// NewFormatter returns a Formatter that resolves type/attribute labels
// against schema.
func NewFormatter(schema *concept.Schema) *Formatter {
	return &Formatter{Schema: schema}
}

// Table renders rows, projecting the given slots under the given
// column headers, as a markdown table followed by a row-count footer
// line (mirroring datalog/executor/table_formatter.go's formatTable).
func (f *Formatter) Table(headers []string, slots []int, rows []executor.Row) string {
	if len(rows) == 0 {
		return fmt.Sprintf("_Columns: %v_\n\n_No rows_", headers)
	}

	var sb strings.Builder
	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(&sb,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)

	total := 0
	for _, row := range rows {
		cells := make([]string, len(slots))
		for i, slot := range slots {
			cells[i] = f.CellString(row.Get(slot))
		}
		table.Append(cells)
		total += int(row.Multiplicity)
	}
	table.Render()

	fmt.Fprintf(&sb, "\n_%d rows_\n", total)
	return sb.String()
}

// CellString renders a single cell for display: an attribute concept
// cell prints its value, an object concept cell prints a thing
// reference, a type-bound value cell prints the type's label, a plain
// value cell prints its value, and an empty cell prints nothing.
func (f *Formatter) CellString(c executor.Cell) string {
	switch c.Kind {
	case executor.CellEmpty:
		return ""
	case executor.CellConcept:
		if c.Concept.Kind == concept.AttributeThing {
			return formatValue(c.Concept.Value)
		}
		return fmt.Sprintf("%s#%d", f.typeLabel(c.Concept.Type), c.Concept.ID)
	case executor.CellValue:
		if id, ok := c.AsType(); ok {
			return f.typeLabel(id)
		}
		return formatValue(c.Value)
	case executor.CellList:
		parts := make([]string, len(c.List))
		for i, elem := range c.List {
			parts[i] = f.CellString(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}

func (f *Formatter) typeLabel(id concept.TypeID) string {
	if f.Schema == nil {
		return fmt.Sprintf("type%d", id)
	}
	t, ok := f.Schema.Type(id)
	if !ok {
		return fmt.Sprintf("type%d", id)
	}
	return t.Label.String()
}

func formatValue(v interface{}) string {
	if v == nil {
		return "nil"
	}
	switch val := v.(type) {
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
