// Package writecheck implements the write type-checker (§4.3): the
// legality checks Insert/Update/Put/Delete stages apply against the
// write-mode BlockAnnotations the annotator produced for them.
package writecheck

import (
	"fmt"

	"github.com/wbrown/typeql-engine/annotator"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/value"
)

// ErrorKind discriminates the write-checker's fixed set of legality
// failures (§4.3, §7: "errors are structured (kind + offending
// constraint)").
type ErrorKind uint8

const (
	AbstractTypeInMaterializingPosition ErrorKind = iota
	NoConsistentOwnsPair
	AttributeAnnotationViolation
	NoConsistentLinksTriple
	UnboundRoleVariable
	VariableNotIntroducedByMatch
	MultiValuedOwnsForReplacement
	DeleteTargetNotAThing
)

func (k ErrorKind) String() string {
	switch k {
	case AbstractTypeInMaterializingPosition:
		return "abstract type in materializing position"
	case NoConsistentOwnsPair:
		return "no owns edge consistent with owner/attribute candidates"
	case AttributeAnnotationViolation:
		return "attribute value violates a schema annotation"
	case NoConsistentLinksTriple:
		return "no relates/plays edge consistent with relation/player/role candidates"
	case UnboundRoleVariable:
		return "role variable has no candidate inferable from a prior match"
	case VariableNotIntroducedByMatch:
		return "variable not introduced by a prior match"
	case MultiValuedOwnsForReplacement:
		return "attribute replacement requires a single-valued owns edge"
	case DeleteTargetNotAThing:
		return "delete target is a value, not a thing"
	default:
		return fmt.Sprintf("writecheck-error(%d)", uint8(k))
	}
}

// Error is the structured failure §4.3 requires: a kind plus the
// offending constraint. Source spans aren't tracked anywhere in this
// IR yet (no Constraint variant carries one), so Error stops at kind +
// constraint rather than inventing a span field nothing else populates.
type Error struct {
	Kind       ErrorKind
	Constraint ir.Constraint
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("writecheck: %s: %s", e.Kind, e.Detail)
}

// CheckInsert implements §4.3's Insert/Put legality rules: every
// Isa(v, T) materializes a non-abstract type (guaranteed by the
// annotator's write-mode candidate stripping; re-checked here as the
// dedicated legality gate the executor consults), every Has(o, a) has
// at least one owns-consistent (owner, attribute) pair whose literal
// value (if any) satisfies the attribute's Range/Values/Regex
// annotations, and every Links(r, p, role) has at least one
// relates/plays-consistent triple.
func CheckInsert(block *ir.Block, ann *annotator.BlockAnnotations, schema *concept.Schema) error {
	root := ann.Root(block)
	if root == nil {
		return fmt.Errorf("writecheck: block has no root annotations")
	}

	for _, c := range block.Root.Constraints {
		switch tc := c.(type) {
		case ir.Isa:
			set, ok := root.VertexTypes[tc.Thing]
			if !ok || set.Cardinality() == 0 {
				return &Error{Kind: AbstractTypeInMaterializingPosition, Constraint: c,
					Detail: fmt.Sprintf("variable %d has no non-abstract candidate type to materialize", tc.Thing)}
			}

		case ir.Has:
			if err := checkHas(tc, c, root, schema, block.Parameters, block.Root); err != nil {
				return err
			}

		case ir.Links:
			pairs, ok := root.Pairs[c]
			if !ok || pairs.Cardinality() == 0 {
				return &Error{Kind: NoConsistentLinksTriple, Constraint: c,
					Detail: fmt.Sprintf("no relates/plays edge is consistent with relation %d, player %d, role %d", tc.Relation, tc.Player, tc.Role)}
			}
			if _, ok := root.VertexTypes[tc.Role]; !ok {
				return &Error{Kind: UnboundRoleVariable, Constraint: c,
					Detail: fmt.Sprintf("role variable %d has no candidates from the match or relates/plays closure", tc.Role)}
			}
		}
	}
	return nil
}

func checkHas(tc ir.Has, c ir.Constraint, root *annotator.TypeAnnotations, schema *concept.Schema, params *ir.ParameterRegistry, conj ir.Conjunction) error {
	pairs, ok := root.Pairs[c]
	if !ok || pairs.Cardinality() == 0 {
		return &Error{Kind: NoConsistentOwnsPair, Constraint: c,
			Detail: fmt.Sprintf("no owns edge is consistent with owner %d and attribute %d", tc.Owner, tc.Attr)}
	}

	literal, hasLiteral := literalValueFor(conj, tc.Attr, params)
	if !hasLiteral {
		return nil
	}

	for pair := range pairs.Iter() {
		attrType, ok := schema.Type(pair.Right)
		if !ok {
			continue
		}
		for _, a := range attrType.Annotations {
			if a.Kind != concept.AnnotationRange && a.Kind != concept.AnnotationValues && a.Kind != concept.AnnotationRegex {
				continue
			}
			if !a.Satisfies(literal) {
				return &Error{Kind: AttributeAnnotationViolation, Constraint: c,
					Detail: fmt.Sprintf("value for attribute %s fails its annotation (kind %v)", attrType.Label, a.Kind)}
			}
		}
	}
	return nil
}

// literalValueFor looks for an equality Comparison against v whose
// right-hand side is a literal parameter, within conj's own
// constraints -- the Has constraint's attribute-value position is
// expressed as a separate Comparison constraint binding the same
// variable, not embedded in Has itself (§3 keeps Has to the
// owner/attribute-instance shape only).
func literalValueFor(conj ir.Conjunction, v ir.VariableID, params *ir.ParameterRegistry) (value.Value, bool) {
	for _, c := range conj.Constraints {
		cmp, ok := c.(ir.Comparison)
		if !ok || !cmp.RhsIsParam || cmp.Op != ir.Eq || cmp.Lhs != v {
			continue
		}
		return params.Value(cmp.RhsParam), true
	}
	return nil, false
}

// CheckUpdate runs CheckInsert's legality rules plus the Update-only
// requirements: every variable an Isa constraint of the block
// materializes must already have been introduced by a prior Match
// (boundByMatch, the set of variables known before this stage ran),
// and any Has constraint replacing an attribute value requires a
// single-valued (unordered) owns edge. Variables that appear only in
// non-Isa constraints are not checked here.
func CheckUpdate(block *ir.Block, ann *annotator.BlockAnnotations, schema *concept.Schema, boundByMatch map[ir.VariableID]bool) error {
	if err := CheckInsert(block, ann, schema); err != nil {
		return err
	}

	root := ann.Root(block)
	for _, c := range block.Root.Constraints {
		isa, isIsa := c.(ir.Isa)
		if isIsa {
			if !boundByMatch[isa.Thing] {
				return &Error{Kind: VariableNotIntroducedByMatch, Constraint: c,
					Detail: fmt.Sprintf("variable %d being updated was not bound by a prior match", isa.Thing)}
			}
			continue
		}

		if _, isHas := c.(ir.Has); !isHas {
			continue
		}
		pairs, ok := root.Pairs[c]
		if !ok {
			continue
		}
		for pair := range pairs.Iter() {
			ordering, ok := schema.OwnsClosure(pair.Left)[pair.Right]
			if ok && ordering == concept.Ordered {
				return &Error{Kind: MultiValuedOwnsForReplacement, Constraint: c,
					Detail: fmt.Sprintf("owns edge (%d owns %d) is ordered/multi-valued, cannot be replaced by Update", pair.Left, pair.Right)}
			}
		}
	}
	return nil
}

// CheckDelete implements §4.3's Delete rule: every deleted variable
// must be present in bound (the running map as of this stage) and
// must not be one of the pipeline's value-category variables (a
// Delete target is a thing, never an expression result).
func CheckDelete(deleted []ir.VariableID, bound map[ir.VariableID]bool, valueVariables map[ir.VariableID]bool) error {
	for _, v := range deleted {
		if !bound[v] {
			return fmt.Errorf("writecheck: delete target %d is not bound by the running match", v)
		}
		if valueVariables[v] {
			return &Error{Kind: DeleteTargetNotAThing, Detail: fmt.Sprintf("variable %d is a value, not a thing", v)}
		}
	}
	return nil
}
