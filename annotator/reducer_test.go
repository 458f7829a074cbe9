package annotator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/value"
)

func TestReducerOutputCategoryCountIgnoresInput(t *testing.T) {
	cat, err := ReducerOutputCategory(ReduceCount, value.String)
	require.NoError(t, err)
	require.Equal(t, value.Integer, cat)
}

func TestReducerOutputCategorySumPreservesNumericCategory(t *testing.T) {
	cat, err := ReducerOutputCategory(ReduceSum, value.Decimal)
	require.NoError(t, err)
	require.Equal(t, value.Decimal, cat)

	_, err = ReducerOutputCategory(ReduceSum, value.String)
	require.Error(t, err)
}

func TestReducerOutputCategoryMinMaxSupportsOrderedScalars(t *testing.T) {
	cat, err := ReducerOutputCategory(ReduceMax, value.DateTimeTZ)
	require.NoError(t, err)
	require.Equal(t, value.DateTimeTZ, cat)

	_, err = ReducerOutputCategory(ReduceMin, value.Boolean)
	require.Error(t, err)
}

func TestReducerOutputCategoryMeanWidensIntegerToDouble(t *testing.T) {
	cat, err := ReducerOutputCategory(ReduceMean, value.Integer)
	require.NoError(t, err)
	require.Equal(t, value.Double, cat)

	cat, err = ReducerOutputCategory(ReduceStd, value.Decimal)
	require.NoError(t, err)
	require.Equal(t, value.Decimal, cat)
}
