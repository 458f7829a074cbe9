// Package ir is the intermediate representation compiled from a
// translated query: Block/Conjunction/Constraint, NestedPattern
// (Disjunction/Negation/Optional), and the VariableRegistry/
// ParameterRegistry a Block carries (§3).
package ir

import "fmt"

// VariableID is an opaque variable handle, analogous to the teacher's
// query.Symbol but an arena index rather than an interned string --
// the annotator and lowering stages key large maps off variables on
// every stage, so a small integer is worth the loss of the symbol
// being self-describing (VariableRegistry.Name recovers it when
// needed for error messages).
type VariableID uint32

// VariableCategory narrows what kind of thing a variable may be bound
// to, distinct from its schema Type set -- a variable is either a
// Thing (entity/relation/attribute instance), a scalar Value, or a
// list of either.
type VariableCategory uint8

const (
	CategoryUnbound VariableCategory = iota
	CategoryThing
	CategoryValue
	CategoryThingList
	CategoryValueList
)

func (c VariableCategory) String() string {
	switch c {
	case CategoryThing:
		return "thing"
	case CategoryValue:
		return "value"
	case CategoryThingList:
		return "thing-list"
	case CategoryValueList:
		return "value-list"
	default:
		return "unbound"
	}
}

// IsList reports whether c denotes a list-typed variable.
func (c VariableCategory) IsList() bool {
	return c == CategoryThingList || c == CategoryValueList
}

// variableEntry is a registry record: an optional name (anonymous
// variables introduced by the compiler have none) and category.
type variableEntry struct {
	name     string
	category VariableCategory
}

// VariableRegistry maps opaque variable ids to optional names and
// categories (§3).
type VariableRegistry struct {
	entries []variableEntry
}

// NewVariableRegistry returns an empty registry.
func NewVariableRegistry() *VariableRegistry {
	return &VariableRegistry{}
}

// Declare allocates a fresh VariableID, optionally named.
func (r *VariableRegistry) Declare(name string) VariableID {
	id := VariableID(len(r.entries))
	r.entries = append(r.entries, variableEntry{name: name})
	return id
}

// Name returns the declared name of id, or "" if anonymous.
func (r *VariableRegistry) Name(id VariableID) string {
	if int(id) >= len(r.entries) {
		return ""
	}
	return r.entries[id].name
}

// Category returns the declared category of id.
func (r *VariableRegistry) Category(id VariableID) VariableCategory {
	if int(id) >= len(r.entries) {
		return CategoryUnbound
	}
	return r.entries[id].category
}

// SetCategory records the category assigned to id, erroring if it
// would conflict with an already-assigned, different category
// (§7: "malformed IR... variable category mismatch").
func (r *VariableRegistry) SetCategory(id VariableID, cat VariableCategory) error {
	if int(id) >= len(r.entries) {
		return fmt.Errorf("ir: unknown variable id %d", id)
	}
	existing := r.entries[id].category
	if existing != CategoryUnbound && existing != cat {
		return fmt.Errorf("ir: variable %s has conflicting categories %s and %s", r.displayLocked(id), existing, cat)
	}
	r.entries[id].category = cat
	return nil
}

func (r *VariableRegistry) displayLocked(id VariableID) string {
	if name := r.entries[id].name; name != "" {
		return "?" + name
	}
	return fmt.Sprintf("_anon%d", id)
}

// Display returns a human-readable name for id, falling back to an
// anonymous placeholder.
func (r *VariableRegistry) Display(id VariableID) string {
	if int(id) >= len(r.entries) {
		return fmt.Sprintf("_unknown%d", id)
	}
	return r.displayLocked(id)
}

// Len returns the number of declared variables.
func (r *VariableRegistry) Len() int { return len(r.entries) }
