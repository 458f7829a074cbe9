package concept

import "github.com/wbrown/typeql-engine/value"

// TypeID is the arena index of a schema type, unique across all kinds
// (grounded on the teacher's identity-arena pattern: a small integer
// handle backed by a central table, rather than re-hashing a label on
// every lookup).
type TypeID uint32

// NoType is the sentinel TypeID meaning "no supertype" (root of a
// kind's supertype forest).
const NoType TypeID = 0

// Type is a single schema type: its kind, label, optional value type
// (Attribute only), declared supertype and annotations. Derived
// supertype/subtype sets and capability edges are held in Schema, not
// here, since they depend on the whole type graph.
type Type struct {
	ID          TypeID
	Kind        Kind
	Label       Label
	ValueType   *value.Category // set only for Attribute types
	Supertype   TypeID          // NoType if this is a kind root
	Annotations []Annotation
}

// HasAnnotation reports whether t declares (not inherits) an
// annotation of the given kind.
func (t *Type) HasAnnotation(k AnnotationKind) bool {
	for _, a := range t.Annotations {
		if a.Kind == k {
			return true
		}
	}
	return false
}

// Annotation returns the first declared annotation of kind k, if any.
func (t *Type) Annotation(k AnnotationKind) (Annotation, bool) {
	for _, a := range t.Annotations {
		if a.Kind == k {
			return a, true
		}
	}
	return Annotation{}, false
}

// StructDefinition is a user-defined struct type: a fixed-order set of
// named fields addressed by FieldID slot (§3, §9). Retired fields
// leave a permanent hole in Fields rather than being reused, so that
// historic encoded values referencing a retired id still decode
// unambiguously (as "unknown field", not silently reinterpreted).
type StructDefinition struct {
	Key        value.StructKey
	Label      Label
	Fields     map[value.FieldID]FieldDef
	nextField  value.FieldID
	retiredIDs map[value.FieldID]bool
}

// FieldDef is one (name, value type, optional) triple of a struct
// definition (§3).
type FieldDef struct {
	Name      string
	ValueType value.Category
	Optional  bool
}

// AddField allocates the next unused FieldID slot and returns it.
func (d *StructDefinition) AddField(def FieldDef) value.FieldID {
	id := d.nextField
	d.nextField++
	d.Fields[id] = def
	return id
}

// RetireField removes a field definition but never reclaims its id
// (§9: "struct field-id retirement").
func (d *StructDefinition) RetireField(id value.FieldID) {
	delete(d.Fields, id)
	if d.retiredIDs == nil {
		d.retiredIDs = make(map[value.FieldID]bool)
	}
	d.retiredIDs[id] = true
}

// IsRetired reports whether id was once defined and has since been
// removed, as opposed to never having existed.
func (d *StructDefinition) IsRetired(id value.FieldID) bool {
	return d.retiredIDs != nil && d.retiredIDs[id]
}
