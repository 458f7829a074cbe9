// Package annotator implements the type annotator (§4.1): block type
// inference over a Conjunction tree, and the per-stage annotation
// rules for Match/Insert/Update/Put/Delete/Sort/Reduce/Select/Offset/
// Limit/Require/Distinct.
package annotator

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
)

// TypeSet is the candidate-type-set representation used throughout
// block type inference: a real set type (rather than hand-rolled
// map[TypeID]struct{} bookkeeping) since the fixpoint repeatedly
// intersects/unions these per vertex (§4.1.1).
type TypeSet = mapset.Set[concept.TypeID]

// NewTypeSet returns a TypeSet containing ids.
func NewTypeSet(ids ...concept.TypeID) TypeSet {
	return mapset.NewSet(ids...)
}

// TypePair is a (owner, attribute) or (relation, role) or (player,
// role) consistent pair recorded against a constraint, per §3:
// "per-constraint annotation (e.g. for Has: the set of (owner_type,
// attribute_type) pairs consistent with schema)".
type TypePair struct {
	Left, Right concept.TypeID
}

// TypeAnnotations is the per-scope (per-Conjunction) record of vertex
// type sets and constraint-pair annotations (§3: BlockAnnotations maps
// each conjunction scope to a TypeAnnotations record).
type TypeAnnotations struct {
	VertexTypes map[ir.VariableID]TypeSet
	Pairs       map[ir.Constraint]mapset.Set[TypePair]
}

func newTypeAnnotations() *TypeAnnotations {
	return &TypeAnnotations{
		VertexTypes: make(map[ir.VariableID]TypeSet),
		Pairs:       make(map[ir.Constraint]mapset.Set[TypePair]),
	}
}

func (a *TypeAnnotations) vertexSet(v ir.VariableID) TypeSet {
	set, ok := a.VertexTypes[v]
	if !ok {
		set = mapset.NewSet[concept.TypeID]()
		a.VertexTypes[v] = set
	}
	return set
}

func (a *TypeAnnotations) addPair(c ir.Constraint, pair TypePair) {
	set, ok := a.Pairs[c]
	if !ok {
		set = mapset.NewSet[TypePair]()
		a.Pairs[c] = set
	}
	set.Add(pair)
}

// BlockAnnotations maps every conjunction scope within a Block (root
// plus every nested pattern's conjunction) to its TypeAnnotations.
type BlockAnnotations struct {
	scopes map[*ir.Conjunction]*TypeAnnotations
}

func newBlockAnnotations() *BlockAnnotations {
	return &BlockAnnotations{scopes: make(map[*ir.Conjunction]*TypeAnnotations)}
}

// For returns the TypeAnnotations for scope c, which must have been
// visited during inference.
func (b *BlockAnnotations) For(c *ir.Conjunction) (*TypeAnnotations, bool) {
	ann, ok := b.scopes[c]
	return ann, ok
}

// Root returns the root conjunction's TypeAnnotations.
func (b *BlockAnnotations) Root(block *ir.Block) *TypeAnnotations {
	ann := b.scopes[&block.Root]
	return ann
}
