package lowering

import "github.com/wbrown/typeql-engine/ir"

// ConstraintStep is one scheduled constraint evaluation within a
// ConjunctionExecutable's total order.
type ConstraintStep struct {
	Constraint ir.Constraint
	// Produces lists the variables this step binds for the first time
	// (newly occupied slots after the step runs).
	Produces []Slot
}

// ConjunctionExecutable is the Match stage's deterministic join plan
// (§4.4): constraints in iteration order, a Slot assignment covering
// every variable they touch. Ordering prefers constraints whose
// "natural" driving variable (the side a storage lookup indexes by --
// a Has's owner, a Links's relation, an Isa's type) is already bound,
// falling back to the constraint with the fewest unbound driving
// variables (ties by declaration order) since every constraint kind here
// also supports an unbound full-schema scan (mirrored by the
// annotator's own propagate* functions).
type ConjunctionExecutable struct {
	Schema *RowSchema
	Steps  []ConstraintStep
}

// LowerMatch builds a ConjunctionExecutable for a single conjunction
// scope. Nested patterns (Disjunction/Negation/Optional) are lowered
// recursively by the caller per branch/pattern, each into its own
// ConjunctionExecutable sharing the parent's RowSchema so slot
// positions line up across scopes.
func LowerMatch(conj *ir.Conjunction, rows *RowSchema) *ConjunctionExecutable {
	bound := make(map[ir.VariableID]bool)
	remaining := make([]ir.Constraint, len(conj.Constraints))
	copy(remaining, conj.Constraints)

	var steps []ConstraintStep
	for len(remaining) > 0 {
		idx := nextSchedulable(remaining, bound)
		c := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		var produced []Slot
		for _, v := range touches(c) {
			if !bound[v] {
				bound[v] = true
				produced = append(produced, rows.Assign(v))
			}
		}
		steps = append(steps, ConstraintStep{Constraint: c, Produces: produced})
	}

	return &ConjunctionExecutable{Schema: rows, Steps: steps}
}

// nextSchedulable returns the index of the first remaining constraint
// whose preferred driving variables are already bound, or -- if none
// qualifies -- the one with the fewest still-unbound preferred
// variables, breaking ties by declaration order. Every constraint kind
// can run with nothing bound (a full scan), so this always succeeds.
func nextSchedulable(remaining []ir.Constraint, bound map[ir.VariableID]bool) int {
	best := -1
	bestUnbound := -1
	for i, c := range remaining {
		unbound := 0
		for _, v := range requires(c) {
			if !bound[v] {
				unbound++
			}
		}
		if unbound == 0 {
			return i
		}
		if best == -1 || unbound < bestUnbound {
			best, bestUnbound = i, unbound
		}
	}
	return best
}

// requires returns the variables a constraint is best evaluated after
// (its storage-indexed driving side), not a hard precondition -- every
// listed kind also has an unbound fallback path.
func requires(c ir.Constraint) []ir.VariableID {
	switch tc := c.(type) {
	case ir.Isa:
		return []ir.VariableID{tc.Type}
	case ir.Sub:
		return []ir.VariableID{tc.Supertype}
	case ir.Has:
		return []ir.VariableID{tc.Owner}
	case ir.Links:
		return []ir.VariableID{tc.Relation}
	case ir.Owns:
		return []ir.VariableID{tc.Owner}
	case ir.Plays:
		return []ir.VariableID{tc.Player}
	case ir.Relates:
		return []ir.VariableID{tc.Relation}
	case ir.Comparison:
		if tc.RhsIsParam {
			return []ir.VariableID{tc.Lhs}
		}
		return []ir.VariableID{tc.Lhs, tc.RhsVar}
	case ir.FunctionCallBinding:
		return tc.Arguments
	default:
		return nil
	}
}

// touches returns every variable a constraint references, for
// tracking which slots a scheduled step newly binds.
func touches(c ir.Constraint) []ir.VariableID {
	switch tc := c.(type) {
	case ir.Isa:
		return []ir.VariableID{tc.Thing, tc.Type}
	case ir.Sub:
		return []ir.VariableID{tc.Subtype, tc.Supertype}
	case ir.LabelConstraint:
		return []ir.VariableID{tc.Type}
	case ir.Has:
		return []ir.VariableID{tc.Owner, tc.Attr}
	case ir.Links:
		return []ir.VariableID{tc.Relation, tc.Player, tc.Role}
	case ir.RoleName:
		return []ir.VariableID{tc.Role}
	case ir.KindConstraintStruct:
		return []ir.VariableID{tc.Type}
	case ir.ValueTypeConstraint:
		return []ir.VariableID{tc.Type}
	case ir.Owns:
		return []ir.VariableID{tc.Owner, tc.Attr}
	case ir.Plays:
		return []ir.VariableID{tc.Player, tc.Role}
	case ir.Relates:
		return []ir.VariableID{tc.Relation, tc.Role}
	case ir.ExpressionBinding:
		return []ir.VariableID{tc.Assigned}
	case ir.FunctionCallBinding:
		return append(append([]ir.VariableID{}, tc.Assigned...), tc.Arguments...)
	case ir.Comparison:
		if tc.RhsIsParam {
			return []ir.VariableID{tc.Lhs}
		}
		return []ir.VariableID{tc.Lhs, tc.RhsVar}
	case ir.Iid:
		return []ir.VariableID{tc.Thing}
	case ir.Is:
		return []ir.VariableID{tc.Left, tc.Right}
	default:
		return nil
	}
}
