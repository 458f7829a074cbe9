package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVariableRegistryDeclareAndDisplay(t *testing.T) {
	r := NewVariableRegistry()
	x := r.Declare("x")
	anon := r.Declare("")

	require.Equal(t, "x", r.Name(x))
	require.Equal(t, "?x", r.Display(x))
	require.Contains(t, r.Display(anon), "_anon")
	require.Equal(t, 2, r.Len())
}

func TestVariableRegistryCategoryConflict(t *testing.T) {
	r := NewVariableRegistry()
	x := r.Declare("x")

	require.NoError(t, r.SetCategory(x, CategoryThing))
	require.NoError(t, r.SetCategory(x, CategoryThing), "re-setting the same category is not a conflict")
	require.Error(t, r.SetCategory(x, CategoryValue), "changing an assigned category is a conflict")
}

func TestParameterRegistryInternAndResolve(t *testing.T) {
	r := NewParameterRegistry()
	id := r.Intern(int64(42))
	require.Equal(t, int64(42), r.Value(id))
	require.Equal(t, 1, r.Len())
}

func TestAllConjunctionsVisitsNestedPatterns(t *testing.T) {
	block := NewBlock()
	x := block.Variables.Declare("x")
	y := block.Variables.Declare("y")

	inner := Conjunction{Constraints: []Constraint{Is{Left: x, Right: y}}}
	block.Root.Nested = append(block.Root.Nested, Negation{Pattern: inner})
	block.Root.Nested = append(block.Root.Nested, Disjunction{Branches: []Conjunction{
		{Constraints: []Constraint{Is{Left: x, Right: x}}},
		{Constraints: []Constraint{Is{Left: y, Right: y}}},
	}})

	all := block.AllConjunctions()
	// root + 1 negation + 2 disjunction branches = 4
	require.Len(t, all, 4)
}
