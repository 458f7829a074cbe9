package annotator

import (
	"fmt"

	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/ir"
	"github.com/wbrown/typeql-engine/value"
)

// DuplicateAssignmentError reports that a pipeline stage tried to bind
// a variable that a prior stage already bound (§4.1: a variable may be
// assigned by at most one FunctionCallBinding/ExpressionBinding across
// the whole pipeline).
type DuplicateAssignmentError struct {
	Variable ir.VariableID
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("annotator: variable %d is assigned more than once across the pipeline", e.Variable)
}

// UnknownVariableError reports that a stage referenced a variable the
// running pipeline context has never seen bound.
type UnknownVariableError struct {
	Variable ir.VariableID
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("annotator: variable %d is not bound by any earlier stage", e.Variable)
}

// UncomparableValueTypesForSortVariable reports that a sort key has no
// single resolvable value type: its value category was never bound
// explicitly, and its running candidate types (e.g. several attribute
// types a Has constraint left unconstrained) don't agree on one.
type UncomparableValueTypesForSortVariable struct {
	Variable ir.VariableID
	First    value.Category
	Second   value.Category
}

func (e *UncomparableValueTypesForSortVariable) Error() string {
	return fmt.Sprintf("annotator: sort variable %d spans uncomparable value types %s and %s", e.Variable, e.First, e.Second)
}

// PipelineContext threads type knowledge across the stages of a query
// pipeline (§4.1): each stage narrows or extends a running map of
// variable -> candidate concept types (for Thing/Type category
// variables) and a parallel map of variable -> value category (for
// Value category variables, e.g. produced by an expression, a reducer
// or a Has constraint's attribute-value position).
type PipelineContext struct {
	schema          *concept.Schema
	running         map[ir.VariableID]TypeSet
	valueCategories map[ir.VariableID]value.Category
	assigned        map[ir.VariableID]bool
}

// NewPipelineContext returns an empty running context for a fresh
// pipeline compiled against schema.
func NewPipelineContext(schema *concept.Schema) *PipelineContext {
	return &PipelineContext{
		schema:          schema,
		running:         make(map[ir.VariableID]TypeSet),
		valueCategories: make(map[ir.VariableID]value.Category),
		assigned:        make(map[ir.VariableID]bool),
	}
}

// mergeRunning folds newly-derived vertex candidate sets into the
// running map: a variable seen for the first time is added outright;
// one already tracked is narrowed by intersection, since a later stage
// can only know as much or more than an earlier one.
func (p *PipelineContext) mergeRunning(vertexTypes map[ir.VariableID]TypeSet) {
	for v, set := range vertexTypes {
		if existing, ok := p.running[v]; ok {
			p.running[v] = existing.Intersect(set)
		} else {
			p.running[v] = set.Clone()
		}
	}
}

// recordAssignment registers that v was just bound by a
// FunctionCallBinding or ExpressionBinding, failing if it was already
// bound by an earlier one.
func (p *PipelineContext) recordAssignment(v ir.VariableID) error {
	if p.assigned[v] {
		return &DuplicateAssignmentError{Variable: v}
	}
	p.assigned[v] = true
	return nil
}

func collectFunctionCallAssignments(block *ir.Block, p *PipelineContext) error {
	for _, conj := range block.AllConjunctions() {
		for _, c := range conj.Constraints {
			fc, ok := c.(ir.FunctionCallBinding)
			if !ok {
				continue
			}
			for _, v := range fc.Assigned {
				if err := p.recordAssignment(v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func collectExpressionAssignments(block *ir.Block, p *PipelineContext) error {
	for _, conj := range block.AllConjunctions() {
		for _, c := range conj.Constraints {
			eb, ok := c.(ir.ExpressionBinding)
			if !ok {
				continue
			}
			if err := p.recordAssignment(eb.Assigned); err != nil {
				return err
			}
		}
	}
	return nil
}

// AnnotateMatch runs block type inference in read (non-materializing)
// mode and folds the root scope's candidate sets into the running
// context (§4.1: Match stage rule).
func (p *PipelineContext) AnnotateMatch(block *ir.Block) (*BlockAnnotations, error) {
	if err := collectFunctionCallAssignments(block, p); err != nil {
		return nil, err
	}
	if err := collectExpressionAssignments(block, p); err != nil {
		return nil, err
	}

	ann, err := InferBlock(block, p.schema, false)
	if err != nil {
		return nil, err
	}
	root := ann.Root(block)
	if root != nil {
		p.mergeRunning(root.VertexTypes)
	}
	return ann, nil
}

// annotateMaterializing is the shared core of Insert/Update/Put: run
// block inference in write mode (stripping abstract candidates) and
// fold the root scope's result into the running map, which adds every
// variable this block introduces and narrows the ones already there.
func (p *PipelineContext) annotateMaterializing(block *ir.Block) (*BlockAnnotations, error) {
	ann, err := InferBlock(block, p.schema, true)
	if err != nil {
		return nil, err
	}
	root := ann.Root(block)
	if root != nil {
		p.mergeRunning(root.VertexTypes)
	}
	return ann, nil
}

// AnnotateInsert runs the Insert stage rule (§4.1, §4.3): write-mode
// block inference, extending the running map with every variable this
// block's Isa/RoleName/Links constraints introduce. The legality
// checks themselves (ownership, cardinality, abstract-type rejection
// in materializing position) belong to the write type-checker, which
// consumes this stage's BlockAnnotations.
func (p *PipelineContext) AnnotateInsert(block *ir.Block) (*BlockAnnotations, error) {
	return p.annotateMaterializing(block)
}

// AnnotateUpdate runs the Update stage rule: identical candidate-set
// inference to Insert, but every variable touched by a constraint
// other than an Isa must already be present in the running map.
// Variables named only by an Isa are exempt here; a PutObject-shaped
// write in an Update pipeline (§12: "Update-stage PutObject
// rejection") is rejected by the write type-checker and by lowering,
// not by this stage.
func (p *PipelineContext) AnnotateUpdate(block *ir.Block) (*BlockAnnotations, error) {
	for _, conj := range block.AllConjunctions() {
		for _, c := range conj.Constraints {
			for _, v := range constrainedVariables(c) {
				if _, ok := p.running[v]; !ok {
					if _, isNewBinding := c.(ir.Isa); isNewBinding {
						continue // Isa introduces the updated thing itself
					}
					return nil, &UnknownVariableError{Variable: v}
				}
			}
		}
	}
	return p.annotateMaterializing(block)
}

// AnnotatePut runs the Put stage rule (§4.1): annotate as a Match
// first (the less strict pass, establishing what already exists), then
// as an Insert (the materializing pass used if nothing matched),
// merging the two BlockAnnotations' root vertex sets with the
// Match-derived (less restrictive) one taking precedence, since Put
// succeeds whether or not the insert branch executes.
func (p *PipelineContext) AnnotatePut(block *ir.Block) (*BlockAnnotations, error) {
	matchAnn, err := p.AnnotateMatch(block)
	if err != nil {
		return nil, err
	}

	// annotateMaterializing's merge would intersect the running map a
	// second time against the stricter Insert-mode candidates; Put's
	// running state belongs to the less-strict Match pass alone, so
	// the Match-derived running map is snapshotted and restored after
	// the Insert pass runs (the Insert pass's BlockAnnotations are
	// still needed below, for the write type-checker's benefit).
	saved := make(map[ir.VariableID]TypeSet, len(p.running))
	for v, set := range p.running {
		saved[v] = set
	}
	insertAnn, err := p.annotateMaterializing(block)
	if err != nil {
		return nil, err
	}
	p.running = saved

	merged := newBlockAnnotations()
	for c, ta := range insertAnn.scopes {
		merged.scopes[c] = ta
	}
	for c, ta := range matchAnn.scopes {
		merged.scopes[c] = ta
	}
	return merged, nil
}

// AnnotateDelete runs the Delete stage rule: the deleted variables
// must already be bound by a prior Match (things, not expression
// values -- §4.3), and are removed from the running map once deleted
// since later stages (e.g. a trailing Select) can no longer reference
// them.
func (p *PipelineContext) AnnotateDelete(deleted []ir.VariableID) error {
	for _, v := range deleted {
		if _, ok := p.running[v]; !ok {
			return &UnknownVariableError{Variable: v}
		}
		if _, isValue := p.valueCategories[v]; isValue {
			return fmt.Errorf("annotator: delete stage cannot delete value variable %d, only things", v)
		}
	}
	for _, v := range deleted {
		delete(p.running, v)
	}
	return nil
}

// resolveSortCategory resolves v's value category for the Sort stage
// rule: an explicitly bound value category (an expression result, a
// reducer output, or a Has constraint's attribute-value position once
// BindValueCategory has recorded it) wins outright; otherwise it's
// resolved from the running candidate type set, the case of a
// Has-bound variable whose value category was never bound directly.
// If the running candidates don't agree on a single value type, the
// variable has no one sort category and resolution fails.
func (p *PipelineContext) resolveSortCategory(v ir.VariableID) (value.Category, error) {
	if cat, ok := p.valueCategories[v]; ok {
		return cat, nil
	}
	types, ok := p.running[v]
	if !ok {
		return 0, &UnknownVariableError{Variable: v}
	}
	var cat value.Category
	have := false
	for _, id := range types.ToSlice() {
		t, ok := p.schema.Type(id)
		if !ok || t.ValueType == nil {
			continue
		}
		if !have {
			cat, have = *t.ValueType, true
			continue
		}
		if *t.ValueType != cat {
			return 0, &UncomparableValueTypesForSortVariable{Variable: v, First: cat, Second: *t.ValueType}
		}
	}
	if !have {
		return 0, &UnknownVariableError{Variable: v}
	}
	return cat, nil
}

// AnnotateSort validates that every sort key resolves to a known,
// comparable, keyable value category (§4.1: Sort stage rule; §3:
// Double and Struct are not keyable). Each key's category is resolved
// independently via resolveSortCategory, then checked for mutual
// comparability against the first key's class: the keys passed in one
// call must all lie in one comparability class, so Integer and String
// keys in the same call are rejected.
func (p *PipelineContext) AnnotateSort(keys []ir.VariableID) error {
	var class value.Category
	haveClass := false
	for _, v := range keys {
		cat, err := p.resolveSortCategory(v)
		if err != nil {
			return err
		}
		if !cat.Keyable() {
			return fmt.Errorf("annotator: sort key %d has non-keyable category %s", v, cat)
		}
		if !haveClass {
			class = cat
			haveClass = true
			continue
		}
		if !value.Comparable(class, cat) {
			return fmt.Errorf("annotator: sort keys mix incomparable categories %s and %s", class, cat)
		}
	}
	return nil
}

// AnnotateReduce looks up the output category for applying reducer to
// a variable of the given input category, records the result
// variable's category in the running context, and returns it.
func (p *PipelineContext) AnnotateReduce(result ir.VariableID, reducer Reducer, input ir.VariableID) (value.Category, error) {
	inputCat, ok := p.valueCategories[input]
	if !ok && reducer != ReduceCount && reducer != ReduceCountVar {
		return 0, &UnknownVariableError{Variable: input}
	}
	out, err := ReducerOutputCategory(reducer, inputCat)
	if err != nil {
		return 0, err
	}
	p.valueCategories[result] = out
	return out, nil
}

// AnnotatePassthrough validates that every variable a Select/Offset/
// Limit/Require/Distinct stage references is already bound, without
// altering the running context (§4.1: these stages don't add type
// information, they just constrain or reshape the row stream).
func (p *PipelineContext) AnnotatePassthrough(vars []ir.VariableID) error {
	for _, v := range vars {
		_, isType := p.running[v]
		_, isValue := p.valueCategories[v]
		if !isType && !isValue {
			return &UnknownVariableError{Variable: v}
		}
	}
	return nil
}

// BindValueCategory records that v holds a scalar value of category
// cat in the running context (used by the expression compiler and Has
// constraint handling to seed AnnotateSort/AnnotateReduce lookups).
func (p *PipelineContext) BindValueCategory(v ir.VariableID, cat value.Category) {
	p.valueCategories[v] = cat
}

// RunningTypes returns the current candidate type set for a
// Thing/Type category variable, if known.
func (p *PipelineContext) RunningTypes(v ir.VariableID) (TypeSet, bool) {
	set, ok := p.running[v]
	return set, ok
}
