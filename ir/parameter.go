package ir

import "github.com/wbrown/typeql-engine/value"

// ParameterID identifies a literal value referenced by a constraint
// (e.g. the right-hand side of a Comparison against a constant, or the
// value bound by an ExpressionBinding's literal operand).
type ParameterID uint32

// ParameterRegistry holds the literal values a Block's constraints
// reference by id, keeping constraints themselves free of embedded
// values (§3: "a ParameterRegistry holds literal values referenced by
// constraints").
type ParameterRegistry struct {
	values []value.Value
}

// NewParameterRegistry returns an empty registry.
func NewParameterRegistry() *ParameterRegistry {
	return &ParameterRegistry{}
}

// Intern registers v and returns its id. Values are not deduplicated:
// two constraints referencing syntactically identical literals still
// get distinct ids, since they may carry distinct source spans.
func (r *ParameterRegistry) Intern(v value.Value) ParameterID {
	id := ParameterID(len(r.values))
	r.values = append(r.values, v)
	return id
}

// Value resolves a ParameterID back to its literal value.
func (r *ParameterRegistry) Value(id ParameterID) value.Value {
	return r.values[id]
}

// Len returns the number of interned parameters.
func (r *ParameterRegistry) Len() int { return len(r.values) }
