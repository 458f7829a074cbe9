package concept

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/wbrown/typeql-engine/value"
)

// Schema is the type manager: the single-supertype forest per kind,
// derived transitive supertype/subtype sets, and the Owns/Plays/Relates
// capability edges (§3). A Schema is owned by exactly one schema
// snapshot at a time; readers get an immutable view cached per
// read-timestamp (see package snapshot).
type Schema struct {
	mu sync.RWMutex

	types   map[TypeID]*Type
	byLabel map[uint64][]*Type // hash bucket, collision-checked by label equality
	nextID  TypeID

	children map[TypeID][]TypeID

	// subtypeClosure/supertypeClosure include the type itself. Lazily
	// computed, invalidated wholesale on any schema write -- schema
	// mutation is rare (DDL) relative to reads, so this trades a cheap
	// write-time invalidation for cheap, cached reads.
	subtypeClosure   map[TypeID]*roaring.Bitmap
	supertypeClosure map[TypeID]*roaring.Bitmap

	// Declared (non-inherited) capability edges.
	owns    map[TypeID]map[TypeID]Ordering // object type -> attribute type
	plays   map[TypeID]map[TypeID]bool     // object type -> role type
	relates map[TypeID]map[TypeID]Ordering // relation type -> role type

	// Every role type is Relates child of exactly one relation (§3).
	relatesOwner map[TypeID]TypeID

	structDefs    map[value.StructKey]*StructDefinition
	nextStructKey value.StructKey
}

// NewSchema returns an empty type manager.
func NewSchema() *Schema {
	return &Schema{
		types:        make(map[TypeID]*Type),
		byLabel:      make(map[uint64][]*Type),
		nextID:       1,
		children:     make(map[TypeID][]TypeID),
		owns:         make(map[TypeID]map[TypeID]Ordering),
		plays:        make(map[TypeID]map[TypeID]bool),
		relates:      make(map[TypeID]map[TypeID]Ordering),
		relatesOwner: make(map[TypeID]TypeID),
		structDefs:   make(map[value.StructKey]*StructDefinition),
	}
}

// DefineType registers a new type of the given kind under label, with
// an optional supertype (NoType for a new forest root).
func (s *Schema) DefineType(kind Kind, label Label, supertype TypeID) (*Type, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.lookupLocked(label); exists {
		return nil, fmt.Errorf("concept: type %s already defined", label)
	}
	if supertype != NoType {
		super, ok := s.types[supertype]
		if !ok {
			return nil, fmt.Errorf("concept: unknown supertype id %d", supertype)
		}
		if super.Kind != kind {
			return nil, fmt.Errorf("concept: supertype %s is kind %s, not %s", super.Label, super.Kind, kind)
		}
	}

	t := &Type{ID: s.nextID, Kind: kind, Label: label, Supertype: supertype}
	s.types[t.ID] = t
	s.byLabel[label.Hash()] = append(s.byLabel[label.Hash()], t)
	if supertype != NoType {
		s.children[supertype] = append(s.children[supertype], t.ID)
	}
	s.nextID++
	s.invalidateClosures()
	return t, nil
}

// Lookup resolves a label to its Type, if defined.
func (s *Schema) Lookup(label Label) (*Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(label)
}

func (s *Schema) lookupLocked(label Label) (*Type, bool) {
	for _, t := range s.byLabel[label.Hash()] {
		if t.Label == label {
			return t, true
		}
	}
	return nil, false
}

// Type returns the type for an id, if it exists.
func (s *Schema) Type(id TypeID) (*Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[id]
	return t, ok
}

// AttributeTypesWithValueType returns every Attribute type whose value
// category is cat, used by the annotator to seed a ValueType
// constraint's candidate set (§4.1.1 step 1).
func (s *Schema) AttributeTypesWithValueType(cat value.Category) []TypeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TypeID
	for id, t := range s.types {
		if t.Kind == AttributeKind && t.ValueType != nil && *t.ValueType == cat {
			out = append(out, id)
		}
	}
	return out
}

// AllOfKind returns every type id of the given kind.
func (s *Schema) AllOfKind(kind Kind) []TypeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TypeID
	for id, t := range s.types {
		if t.Kind == kind {
			out = append(out, id)
		}
	}
	return out
}

// SetValueType assigns an Attribute type's value category. Only legal
// on Attribute kind types (§3).
func (s *Schema) SetValueType(id TypeID, cat value.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.types[id]
	if !ok {
		return fmt.Errorf("concept: unknown type id %d", id)
	}
	if t.Kind != AttributeKind {
		return fmt.Errorf("concept: value type only applies to attribute types, got %s", t.Kind)
	}
	t.ValueType = &cat
	return nil
}

// Annotate attaches an annotation to a type, validating it against the
// type's value category when applicable.
func (s *Schema) Annotate(id TypeID, ann Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.types[id]
	if !ok {
		return fmt.Errorf("concept: unknown type id %d", id)
	}
	if t.Kind == AttributeKind && t.ValueType != nil && !ann.ValidOn(*t.ValueType) {
		return fmt.Errorf("concept: annotation not valid on value type %s", t.ValueType)
	}
	t.Annotations = append(t.Annotations, ann)
	return nil
}

// invalidateClosures drops the cached transitive closures; the next
// SubtypesOrSelf/SupertypesOrSelf call recomputes lazily. Must be
// called with s.mu held for writing.
func (s *Schema) invalidateClosures() {
	s.subtypeClosure = nil
	s.supertypeClosure = nil
}

// SubtypesOrSelf returns the bitmap of id's transitive subtype ids,
// including id itself (§3: "derived transitive supertypes/subtypes").
func (s *Schema) SubtypesOrSelf(id TypeID) *roaring.Bitmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureClosuresLocked()
	if bm, ok := s.subtypeClosure[id]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

// SupertypesOrSelf returns the bitmap of id's transitive supertype
// ids, including id itself.
func (s *Schema) SupertypesOrSelf(id TypeID) *roaring.Bitmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureClosuresLocked()
	if bm, ok := s.supertypeClosure[id]; ok {
		return bm.Clone()
	}
	return roaring.New()
}

// IsSubtypeOf reports whether sub is id or a transitive subtype of id.
func (s *Schema) IsSubtypeOf(sub, id TypeID) bool {
	return s.SupertypesOrSelf(sub).Contains(uint32(id))
}

func (s *Schema) ensureClosuresLocked() {
	if s.subtypeClosure != nil && s.supertypeClosure != nil {
		return
	}
	sub := make(map[TypeID]*roaring.Bitmap, len(s.types))
	for id := range s.types {
		sub[id] = s.computeSubtreeLocked(id)
	}
	super := make(map[TypeID]*roaring.Bitmap, len(s.types))
	for id := range s.types {
		super[id] = roaring.New()
	}
	for id, bm := range sub {
		it := bm.Iterator()
		for it.HasNext() {
			descendant := TypeID(it.Next())
			super[descendant].Add(uint32(id))
		}
	}
	s.subtypeClosure = sub
	s.supertypeClosure = super
}

func (s *Schema) computeSubtreeLocked(id TypeID) *roaring.Bitmap {
	bm := roaring.New()
	bm.Add(uint32(id))
	for _, child := range s.children[id] {
		bm.Or(s.computeSubtreeLocked(child))
	}
	return bm
}

// Owns declares an ownership capability edge from an object type to
// an attribute type, with an ordering mode.
func (s *Schema) Owns(owner, attr TypeID, ordering Ordering) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ownerType, ok := s.types[owner]
	if !ok || !ownerType.Kind.IsObjectKind() {
		return fmt.Errorf("concept: owns requires an entity or relation owner")
	}
	attrType, ok := s.types[attr]
	if !ok || attrType.Kind != AttributeKind {
		return fmt.Errorf("concept: owns requires an attribute target")
	}
	if s.owns[owner] == nil {
		s.owns[owner] = make(map[TypeID]Ordering)
	}
	s.owns[owner][attr] = ordering
	return nil
}

// Plays declares a role-play capability edge from an object type to a
// role type.
func (s *Schema) Plays(player, role TypeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	playerType, ok := s.types[player]
	if !ok || !playerType.Kind.IsObjectKind() {
		return fmt.Errorf("concept: plays requires an entity or relation player")
	}
	roleType, ok := s.types[role]
	if !ok || roleType.Kind != RoleTypeKind {
		return fmt.Errorf("concept: plays requires a role target")
	}
	if s.plays[player] == nil {
		s.plays[player] = make(map[TypeID]bool)
	}
	s.plays[player][role] = true
	return nil
}

// Relates declares a relation type's ownership of a role type; every
// role type belongs to exactly one relation this way (§3).
func (s *Schema) Relates(relation, role TypeID, ordering Ordering) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	relType, ok := s.types[relation]
	if !ok || relType.Kind != RelationKind {
		return fmt.Errorf("concept: relates requires a relation owner")
	}
	roleType, ok := s.types[role]
	if !ok || roleType.Kind != RoleTypeKind {
		return fmt.Errorf("concept: relates requires a role target")
	}
	if existing, has := s.relatesOwner[role]; has && existing != relation {
		return fmt.Errorf("concept: role %s already related by a different relation", roleType.Label)
	}
	if s.relates[relation] == nil {
		s.relates[relation] = make(map[TypeID]Ordering)
	}
	s.relates[relation][role] = ordering
	s.relatesOwner[role] = relation
	return nil
}

// OwnsClosure returns every (attribute type, ordering) pair object
// type id may own, the union of its declared set and all inherited
// ones (§3 invariant).
func (s *Schema) OwnsClosure(id TypeID) map[TypeID]Ordering {
	return s.closeCapability(id, s.owns)
}

// PlaysClosure returns every role type id may play, declared or
// inherited.
func (s *Schema) PlaysClosure(id TypeID) map[TypeID]bool {
	s.mu.Lock()
	s.ensureClosuresLocked()
	supers := s.supertypeClosure[id]
	s.mu.Unlock()

	out := make(map[TypeID]bool)
	if supers == nil {
		return out
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	it := supers.Iterator()
	for it.HasNext() {
		ancestor := TypeID(it.Next())
		for role := range s.plays[ancestor] {
			out[role] = true
		}
	}
	return out
}

// RelatesClosure returns every (role type, ordering) a relation type
// relates, declared or inherited (relation subtyping implies role
// specialisation, §3).
func (s *Schema) RelatesClosure(id TypeID) map[TypeID]Ordering {
	return s.closeCapability(id, s.relates)
}

func (s *Schema) closeCapability(id TypeID, edges map[TypeID]map[TypeID]Ordering) map[TypeID]Ordering {
	s.mu.Lock()
	s.ensureClosuresLocked()
	supers := s.supertypeClosure[id]
	s.mu.Unlock()

	out := make(map[TypeID]Ordering)
	if supers == nil {
		return out
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	it := supers.Iterator()
	for it.HasNext() {
		ancestor := TypeID(it.Next())
		for target, ordering := range edges[ancestor] {
			out[target] = ordering
		}
	}
	return out
}

// RelationOf returns the relation type that relates role, if any.
func (s *Schema) RelationOf(role TypeID) (TypeID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.relatesOwner[role]
	return id, ok
}

// DefineStruct registers a new struct definition and returns its key.
func (s *Schema) DefineStruct(label Label) *StructDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	def := &StructDefinition{
		Key:    s.nextStructKey,
		Label:  label,
		Fields: make(map[value.FieldID]FieldDef),
	}
	s.structDefs[def.Key] = def
	s.nextStructKey++
	return def
}

// StructDef resolves a struct definition key.
func (s *Schema) StructDef(key value.StructKey) (*StructDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.structDefs[key]
	return d, ok
}
