// Package concept implements the schema/type layer: Entity, Relation,
// Attribute, RoleType and Struct kinds, their supertype forests,
// capability edges (owns/plays/relates) and annotations.
package concept

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Label names a type, optionally scoped (e.g. a role type scoped by
// its relation type's name, "marriage:spouse").
type Label struct {
	Scope string
	Name  string
}

// NewLabel builds an unscoped label.
func NewLabel(name string) Label { return Label{Name: name} }

// NewScopedLabel builds a label scoped to a relation (role type labels).
func NewScopedLabel(scope, name string) Label { return Label{Scope: scope, Name: name} }

func (l Label) String() string {
	if l.Scope == "" {
		return l.Name
	}
	return l.Scope + ":" + l.Name
}

func (l Label) Scoped() bool { return l.Scope != "" }

// Hash returns a stable 64-bit hash of the label, used as the key
// into the type registry's name index.
func (l Label) Hash() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(l.Scope)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(l.Name)
	return h.Sum64()
}

// ParseLabel splits a "scope:name" string into a scoped Label, or an
// unscoped Label if there is no colon.
func ParseLabel(s string) Label {
	scope, name, ok := strings.Cut(s, ":")
	if !ok {
		return Label{Name: s}
	}
	return Label{Scope: scope, Name: name}
}
