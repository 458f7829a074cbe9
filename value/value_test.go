package value

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCategoryOfScalars(t *testing.T) {
	require.Equal(t, Boolean, CategoryOf(true))
	require.Equal(t, Integer, CategoryOf(int64(5)))
	require.Equal(t, Double, CategoryOf(float64(5)))
	require.Equal(t, Decimal, CategoryOf(FromInt(5)))
	require.Equal(t, String, CategoryOf("hi"))
	require.Equal(t, Date, CategoryOf(DateOnly{2024, 1, 1}))
}

func TestCategoryOfPanicsOnUnknownType(t *testing.T) {
	require.Panics(t, func() { CategoryOf(struct{}{}) })
}

func TestCompareNumericCrossCategory(t *testing.T) {
	require.Equal(t, 0, Compare(int64(5), FromInt(5)))
	require.Equal(t, -1, Compare(int64(1), int64(2)))
	require.Equal(t, 1, Compare(float64(3.5), FromInt(1)))
}

func TestEncodingRoundTripScalars(t *testing.T) {
	cases := []Value{
		true,
		false,
		int64(42),
		int64(-42),
		float64(3.25),
		FromInt(-7),
		NewDecimal(1, 5_000_000_000_000_000_000),
		"hello world",
		DateOnly{2024, 6, 15},
	}
	for _, v := range cases {
		cat := CategoryOf(v)
		encoded := ToBytes(v)
		require.Equal(t, cat, CategoryFromBytes(encoded[0]))
		decoded, err := FromBytes(cat, encoded[1:])
		require.NoError(t, err)
		require.True(t, Equal(v, decoded), "round trip %v -> %v", v, decoded)
	}
}

func TestEncodingRoundTripDateTime(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	encoded := ToBytes(now)
	decoded, err := FromBytes(DateTime, encoded[1:])
	require.NoError(t, err)
	require.True(t, decoded.(time.Time).Equal(now))
}

func TestCastTrivial(t *testing.T) {
	out, ok := Cast(int64(5), Decimal, true)
	require.True(t, ok)
	require.True(t, out.(Decimal).Equal(FromInt(5)))

	_, ok = Cast("hi", Integer, true)
	require.False(t, ok)
}

func TestCastApproximate(t *testing.T) {
	out, ok := Cast(float64(5.9), Integer, false)
	require.True(t, ok)
	require.Equal(t, int64(5), out)

	_, ok = Cast(float64(5.9), Integer, true)
	require.False(t, ok, "double->integer is not a trivial cast")
}

func TestStructEquality(t *testing.T) {
	a := &Struct{Definition: 1, Fields: map[FieldID]Value{0: int64(1), 1: "x"}}
	b := &Struct{Definition: 1, Fields: map[FieldID]Value{0: int64(1), 1: "x"}}
	c := &Struct{Definition: 1, Fields: map[FieldID]Value{0: int64(2), 1: "x"}}
	require.True(t, Equal(a, b))
	require.False(t, Equal(a, c))
}
