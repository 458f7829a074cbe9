package annotator

import (
	"fmt"

	roaring "github.com/RoaringBitmap/roaring/v2"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
)

// bitmapToIDs flattens a roaring bitmap of type ids into a slice, for
// callers that need to range over SubtypesOrSelf/SupertypesOrSelf.
func bitmapToIDs(bm *roaring.Bitmap) []concept.TypeID {
	out := make([]concept.TypeID, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, concept.TypeID(it.Next()))
	}
	return out
}

// maxFixpointRounds bounds the propagate/fixpoint loop (§4.1.1 step 3).
// A well formed schema and block converge in a handful of rounds --
// one per "layer" of constraints chained through shared variables --
// this is a defensive ceiling against a pathological block, not a
// tuning knob.
const maxFixpointRounds = 64

// TypeInferenceError reports that a variable's candidate type set
// became empty during inference (§4.1.1 step 5: emptiness check), or
// that write-mode stripped every remaining candidate as abstract.
type TypeInferenceError struct {
	Variable   ir.VariableID
	Constraint ir.Constraint
}

func (e *TypeInferenceError) Error() string {
	return fmt.Sprintf("annotator: variable %d has no satisfiable type under constraint %T", e.Variable, e.Constraint)
}

// InferBlock runs block type inference (§4.1.1) over every conjunction
// scope of block and returns the resulting BlockAnnotations. writeMode
// additionally strips abstract types from the candidate set of any
// variable that must materialize a concrete instance (Insert/Update/Put
// stages set writeMode true; Match/Delete leave it false since deleting
// doesn't require a concrete, non-abstract type to exist).
func InferBlock(block *ir.Block, schema *concept.Schema, writeMode bool) (*BlockAnnotations, error) {
	ann := newBlockAnnotations()
	_, err := inferConjunction(&block.Root, schema, ann, nil, writeMode)
	return ann, err
}

// inferConjunction seeds and propagates candidate type sets for a
// single conjunction scope, recursing into nested patterns, and
// returns the resulting per-variable candidate sets so a caller (a
// Negation/Optional wrapper) can fold them back per §4.1.1 step 4.
func inferConjunction(conj *ir.Conjunction, schema *concept.Schema, blockAnn *BlockAnnotations, inherited map[ir.VariableID]TypeSet, writeMode bool) (map[ir.VariableID]TypeSet, error) {
	ta := newTypeAnnotations()
	for v, set := range inherited {
		ta.VertexTypes[v] = set.Clone()
	}

	seed(conj, schema, ta)

	for round := 0; round < maxFixpointRounds; round++ {
		changed, err := propagateOnce(conj, schema, ta)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}

	for _, nested := range conj.Nested {
		if err := inferNested(nested, schema, blockAnn, ta, writeMode); err != nil {
			return nil, err
		}
	}

	if writeMode {
		stripAbstract(conj, ta, schema)
	}

	if err := checkNonEmpty(conj, ta); err != nil {
		return nil, err
	}

	blockAnn.scopes[conj] = ta
	return ta.VertexTypes, nil
}

// inferNested handles a single NestedPattern per §4.1.1 step 4:
// Disjunction's branch results union back into the parent scope (any
// of the branches may hold), Negation is annotated in its own scope
// without constraining the parent (§3: "a failed pattern"), and
// Optional unions the parent candidate set with "may be unbound".
func inferNested(n ir.NestedPattern, schema *concept.Schema, blockAnn *BlockAnnotations, parent *TypeAnnotations, writeMode bool) error {
	switch np := n.(type) {
	case ir.Disjunction:
		var union map[ir.VariableID]TypeSet
		for i := range np.Branches {
			branch := &np.Branches[i]
			result, err := inferConjunction(branch, schema, blockAnn, parent.VertexTypes, writeMode)
			if err != nil {
				return err
			}
			if union == nil {
				union = make(map[ir.VariableID]TypeSet, len(result))
				for v, set := range result {
					union[v] = set.Clone()
				}
				continue
			}
			for v, set := range result {
				if existing, ok := union[v]; ok {
					union[v] = existing.Union(set)
				} else {
					union[v] = set.Clone()
				}
			}
		}
		for v, set := range union {
			parent.VertexTypes[v] = set
		}
		return nil

	case ir.Negation:
		_, err := inferConjunction(&np.Pattern, schema, blockAnn, parent.VertexTypes, false)
		return err

	case ir.Optional:
		result, err := inferConjunction(&np.Pattern, schema, blockAnn, parent.VertexTypes, writeMode)
		if err != nil {
			return err
		}
		for v, set := range result {
			parent.VertexTypes[v] = parent.vertexSet(v).Union(set)
		}
		return nil

	default:
		return fmt.Errorf("annotator: unrecognised nested pattern %T", n)
	}
}

// seed implements §4.1.1 step 1: LabelConstraint and KindConstraint
// fix a type variable outright; ValueTypeConstraint seeds an
// attribute-type variable to every attribute type of that value
// category.
func seed(conj *ir.Conjunction, schema *concept.Schema, ta *TypeAnnotations) {
	for _, c := range conj.Constraints {
		switch tc := c.(type) {
		case ir.LabelConstraint:
			t, ok := schema.Lookup(tc.Label)
			if !ok {
				ta.VertexTypes[tc.Type] = mapset.NewSet[concept.TypeID]()
				continue
			}
			narrowTo(ta, tc.Type, []concept.TypeID{t.ID})

		case ir.KindConstraintStruct:
			narrowTo(ta, tc.Type, schema.AllOfKind(tc.Kind))

		case ir.ValueTypeConstraint:
			narrowTo(ta, tc.Type, schema.AttributeTypesWithValueType(tc.Category))
		}
	}
}

// narrowTo intersects v's existing candidate set (if any) with ids,
// or seeds it outright if this is the first constraint touching v.
func narrowTo(ta *TypeAnnotations, v ir.VariableID, ids []concept.TypeID) {
	fresh := mapset.NewSet(ids...)
	if existing, ok := ta.VertexTypes[v]; ok {
		ta.VertexTypes[v] = existing.Intersect(fresh)
		return
	}
	ta.VertexTypes[v] = fresh
}

// propagateOnce runs one round of §4.1.1 step 2's rules and reports
// whether any candidate set shrank, so the caller's fixpoint loop
// knows whether another round can still make progress.
func propagateOnce(conj *ir.Conjunction, schema *concept.Schema, ta *TypeAnnotations) (bool, error) {
	changed := false
	for _, c := range conj.Constraints {
		switch tc := c.(type) {
		case ir.Isa:
			if propagateIsa(tc, schema, ta) {
				changed = true
			}
		case ir.Has:
			if propagateHas(tc, schema, ta) {
				changed = true
			}
		case ir.Links:
			if propagateLinks(tc, schema, ta) {
				changed = true
			}
		case ir.Sub:
			if propagateSub(tc, schema, ta) {
				changed = true
			}
		case ir.Owns:
			if propagateOwns(tc, schema, ta) {
				changed = true
			}
		case ir.Plays:
			if propagatePlays(tc, schema, ta) {
				changed = true
			}
		case ir.Relates:
			if propagateRelates(tc, schema, ta) {
				changed = true
			}
		case ir.Is:
			if propagateIs(tc, ta) {
				changed = true
			}
		}
	}
	return changed, nil
}

// subtypesOrSelfSet unions SubtypesOrSelf(t) (or just {t} for an exact
// Isa) over every candidate in types.
func subtypesOrSelfSet(schema *concept.Schema, types TypeSet, mode ir.IsaKind) TypeSet {
	out := mapset.NewSet[concept.TypeID]()
	for t := range types.Iter() {
		if mode == ir.IsaExact {
			out.Add(t)
			continue
		}
		for _, s := range bitmapToIDs(schema.SubtypesOrSelf(t)) {
			out.Add(s)
		}
	}
	return out
}

func propagateIsa(c ir.Isa, schema *concept.Schema, ta *TypeAnnotations) bool {
	typeSet, hasType := ta.VertexTypes[c.Type]
	thingSet, hasThing := ta.VertexTypes[c.Thing]
	changed := false

	if hasType {
		derived := subtypesOrSelfSet(schema, typeSet, c.Mode)
		if hasThing {
			narrowed := thingSet.Intersect(derived)
			if narrowed.Cardinality() != thingSet.Cardinality() {
				changed = true
			}
			ta.VertexTypes[c.Thing] = narrowed
		} else {
			ta.VertexTypes[c.Thing] = derived
			changed = true
		}
	}

	// Narrow the type variable back down to types that are ancestors
	// of at least one surviving instance candidate.
	thingSet, hasThing = ta.VertexTypes[c.Thing]
	if hasType && hasThing {
		consistent := mapset.NewSet[concept.TypeID]()
		for t := range typeSet.Iter() {
			derived := subtypesOrSelfSet(schema, mapset.NewSet(t), c.Mode)
			if derived.Intersect(thingSet).Cardinality() > 0 {
				consistent.Add(t)
			}
		}
		if consistent.Cardinality() != typeSet.Cardinality() {
			changed = true
		}
		ta.VertexTypes[c.Type] = consistent
	}
	return changed
}

func propagateHas(c ir.Has, schema *concept.Schema, ta *TypeAnnotations) bool {
	ownerSet, hasOwner := ta.VertexTypes[c.Owner]
	attrSet, hasAttr := ta.VertexTypes[c.Attr]
	changed := false

	newOwner := mapset.NewSet[concept.TypeID]()
	newAttr := mapset.NewSet[concept.TypeID]()

	consider := func(owner concept.TypeID) {
		for attr := range schema.OwnsClosure(owner) {
			if hasAttr && !attrSet.Contains(attr) {
				continue
			}
			newOwner.Add(owner)
			newAttr.Add(attr)
			ta.addPair(c, TypePair{Left: owner, Right: attr})
		}
	}

	if hasOwner {
		for o := range ownerSet.Iter() {
			consider(o)
		}
	} else {
		for _, o := range schema.AllOfKind(concept.EntityKind) {
			consider(o)
		}
		for _, o := range schema.AllOfKind(concept.RelationKind) {
			consider(o)
		}
	}

	if !hasOwner || newOwner.Cardinality() != ownerSet.Cardinality() {
		changed = true
	}
	if !hasAttr || newAttr.Cardinality() != attrSet.Cardinality() {
		changed = true
	}
	ta.VertexTypes[c.Owner] = newOwner
	ta.VertexTypes[c.Attr] = newAttr
	return changed
}

func propagateLinks(c ir.Links, schema *concept.Schema, ta *TypeAnnotations) bool {
	relSet, hasRel := ta.VertexTypes[c.Relation]
	roleSet, hasRole := ta.VertexTypes[c.Role]
	playerSet, hasPlayer := ta.VertexTypes[c.Player]
	changed := false

	newRel := mapset.NewSet[concept.TypeID]()
	newRole := mapset.NewSet[concept.TypeID]()
	newPlayer := mapset.NewSet[concept.TypeID]()

	tryRole := func(relation concept.TypeID) {
		for role := range schema.RelatesClosure(relation) {
			if hasRole && !roleSet.Contains(role) {
				continue
			}
			players := schema.PlaysClosure(role)
			for player := range players {
				if hasPlayer && !playerSet.Contains(player) {
					continue
				}
				newRel.Add(relation)
				newRole.Add(role)
				newPlayer.Add(player)
				ta.addPair(c, TypePair{Left: relation, Right: role})
			}
		}
	}

	if hasRel {
		for r := range relSet.Iter() {
			tryRole(r)
		}
	} else {
		for _, r := range schema.AllOfKind(concept.RelationKind) {
			tryRole(r)
		}
	}

	if !hasRel || newRel.Cardinality() != relSet.Cardinality() {
		changed = true
	}
	if !hasRole || newRole.Cardinality() != roleSet.Cardinality() {
		changed = true
	}
	if !hasPlayer || newPlayer.Cardinality() != playerSet.Cardinality() {
		changed = true
	}
	ta.VertexTypes[c.Relation] = newRel
	ta.VertexTypes[c.Role] = newRole
	ta.VertexTypes[c.Player] = newPlayer
	return changed
}

func propagateSub(c ir.Sub, schema *concept.Schema, ta *TypeAnnotations) bool {
	superSet, hasSuper := ta.VertexTypes[c.Supertype]
	subSet, hasSub := ta.VertexTypes[c.Subtype]
	changed := false

	if hasSuper {
		derived := mapset.NewSet[concept.TypeID]()
		for s := range superSet.Iter() {
			var ids []concept.TypeID
			if c.Transitive {
				ids = bitmapToIDs(schema.SubtypesOrSelf(s))
			} else {
				ids = []concept.TypeID{s}
			}
			for _, id := range ids {
				derived.Add(id)
			}
		}
		if hasSub {
			narrowed := subSet.Intersect(derived)
			if narrowed.Cardinality() != subSet.Cardinality() {
				changed = true
			}
			ta.VertexTypes[c.Subtype] = narrowed
		} else {
			ta.VertexTypes[c.Subtype] = derived
			changed = true
		}
	}
	return changed
}

func propagateOwns(c ir.Owns, schema *concept.Schema, ta *TypeAnnotations) bool {
	ownerSet, hasOwner := ta.VertexTypes[c.Owner]
	attrSet, hasAttr := ta.VertexTypes[c.Attr]
	changed := false

	newOwner := mapset.NewSet[concept.TypeID]()
	newAttr := mapset.NewSet[concept.TypeID]()
	candidates := ownerSet
	if !hasOwner {
		candidates = mapset.NewSet(append(schema.AllOfKind(concept.EntityKind), schema.AllOfKind(concept.RelationKind)...)...)
	}
	for o := range candidates.Iter() {
		closure := schema.OwnsClosure(o)
		for attr := range closure {
			if hasAttr && !attrSet.Contains(attr) {
				continue
			}
			newOwner.Add(o)
			newAttr.Add(attr)
		}
	}
	if !hasOwner || newOwner.Cardinality() != ownerSet.Cardinality() {
		changed = true
	}
	if !hasAttr || newAttr.Cardinality() != attrSet.Cardinality() {
		changed = true
	}
	ta.VertexTypes[c.Owner] = newOwner
	ta.VertexTypes[c.Attr] = newAttr
	return changed
}

func propagatePlays(c ir.Plays, schema *concept.Schema, ta *TypeAnnotations) bool {
	playerSet, hasPlayer := ta.VertexTypes[c.Player]
	roleSet, hasRole := ta.VertexTypes[c.Role]
	changed := false

	newPlayer := mapset.NewSet[concept.TypeID]()
	newRole := mapset.NewSet[concept.TypeID]()
	candidates := playerSet
	if !hasPlayer {
		candidates = mapset.NewSet(append(schema.AllOfKind(concept.EntityKind), schema.AllOfKind(concept.RelationKind)...)...)
	}
	for p := range candidates.Iter() {
		closure := schema.PlaysClosure(p)
		for role := range closure {
			if hasRole && !roleSet.Contains(role) {
				continue
			}
			newPlayer.Add(p)
			newRole.Add(role)
		}
	}
	if !hasPlayer || newPlayer.Cardinality() != playerSet.Cardinality() {
		changed = true
	}
	if !hasRole || newRole.Cardinality() != roleSet.Cardinality() {
		changed = true
	}
	ta.VertexTypes[c.Player] = newPlayer
	ta.VertexTypes[c.Role] = newRole
	return changed
}

func propagateRelates(c ir.Relates, schema *concept.Schema, ta *TypeAnnotations) bool {
	relSet, hasRel := ta.VertexTypes[c.Relation]
	roleSet, hasRole := ta.VertexTypes[c.Role]
	changed := false

	newRel := mapset.NewSet[concept.TypeID]()
	newRole := mapset.NewSet[concept.TypeID]()
	candidates := relSet
	if !hasRel {
		candidates = mapset.NewSet(schema.AllOfKind(concept.RelationKind)...)
	}
	for r := range candidates.Iter() {
		closure := schema.RelatesClosure(r)
		for role := range closure {
			if hasRole && !roleSet.Contains(role) {
				continue
			}
			newRel.Add(r)
			newRole.Add(role)
		}
	}
	if !hasRel || newRel.Cardinality() != relSet.Cardinality() {
		changed = true
	}
	if !hasRole || newRole.Cardinality() != roleSet.Cardinality() {
		changed = true
	}
	ta.VertexTypes[c.Relation] = newRel
	ta.VertexTypes[c.Role] = newRole
	return changed
}

// propagateIs unifies two variables known to denote the same concept:
// their candidate sets collapse to the intersection.
func propagateIs(c ir.Is, ta *TypeAnnotations) bool {
	leftSet, hasLeft := ta.VertexTypes[c.Left]
	rightSet, hasRight := ta.VertexTypes[c.Right]
	if !hasLeft || !hasRight {
		return false
	}
	merged := leftSet.Intersect(rightSet)
	changed := merged.Cardinality() != leftSet.Cardinality() || merged.Cardinality() != rightSet.Cardinality()
	ta.VertexTypes[c.Left] = merged
	ta.VertexTypes[c.Right] = merged.Clone()
	return changed
}

// stripAbstract removes abstract types from the candidate sets of the
// variables in conj that denote things (an Isa's thing, a Has's owner
// and attribute, a Links's relation and player): a materializing write
// (Insert/Update/Put) can never instantiate an abstract type (§4.3).
// Type variables keep abstract candidates, so `isa animal` in subtype
// mode still resolves when animal itself is abstract.
func stripAbstract(conj *ir.Conjunction, ta *TypeAnnotations, schema *concept.Schema) {
	var things []ir.VariableID
	for _, c := range conj.Constraints {
		switch tc := c.(type) {
		case ir.Isa:
			things = append(things, tc.Thing)
		case ir.Has:
			things = append(things, tc.Owner, tc.Attr)
		case ir.Links:
			things = append(things, tc.Relation, tc.Player)
		}
	}
	for _, v := range things {
		set, ok := ta.VertexTypes[v]
		if !ok {
			continue
		}
		filtered := set.Clone()
		for t := range set.Iter() {
			st, ok := schema.Type(t)
			if ok && st.HasAnnotation(concept.AnnotationAbstract) {
				filtered.Remove(t)
			}
		}
		ta.VertexTypes[v] = filtered
	}
}

// checkNonEmpty implements §4.1.1 step 5: if a variable that was
// actually constrained ends up with zero candidates, inference fails
// naming the constraint that produced the empty set.
func checkNonEmpty(conj *ir.Conjunction, ta *TypeAnnotations) error {
	for _, c := range conj.Constraints {
		for _, v := range constrainedVariables(c) {
			set, ok := ta.VertexTypes[v]
			if ok && set.Cardinality() == 0 {
				return &TypeInferenceError{Variable: v, Constraint: c}
			}
		}
	}
	return nil
}

// constrainedVariables returns the type-bearing variables a
// constraint touches, for the emptiness check.
func constrainedVariables(c ir.Constraint) []ir.VariableID {
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
	case ir.Is:
		return []ir.VariableID{tc.Left, tc.Right}
	default:
		return nil
	}
}
