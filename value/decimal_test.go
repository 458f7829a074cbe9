package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecimalAddSubRoundTrip(t *testing.T) {
	a := NewDecimal(10, 5)
	b := NewDecimal(3, 7)
	require.True(t, a.Add(b).Sub(b).Equal(a), "(a + b) - b == a")
}

func TestDecimalMulIdentity(t *testing.T) {
	a := NewDecimal(42, 123456789)
	one := FromInt(1)
	require.True(t, a.Mul(one).Equal(a), "a * 1 == a")
}

func TestDecimalAddNegation(t *testing.T) {
	a := NewDecimal(7, 5_000_000_000_000_000_000)
	require.True(t, a.Add(a.Neg()).Equal(Decimal{}), "a + (-a) == 0")
}

func TestDecimalStringRoundTrip(t *testing.T) {
	cases := []Decimal{
		FromInt(0),
		FromInt(5),
		FromInt(-5),
		NewDecimal(1, 5_000_000_000_000_000_000),  // 1.5
		NewDecimal(-2, 5_000_000_000_000_000_000), // -1.5
		NewDecimal(0, 1),                          // smallest positive fraction
	}
	for _, d := range cases {
		s := d.String()
		parsed, err := ParseDecimal(s)
		require.NoError(t, err)
		require.Truef(t, d.Equal(parsed), "round trip %s -> %s -> %s", d, s, parsed)
	}
}

func TestDecimalCanonicalForm(t *testing.T) {
	require.Equal(t, "5.0dec", FromInt(5).String())
	require.Equal(t, "1.5dec", NewDecimal(1, 5_000_000_000_000_000_000).String())
	require.Equal(t, "-1.5dec", NewDecimal(-2, 5_000_000_000_000_000_000).String())
}

func TestDecimalDivInt(t *testing.T) {
	d, err := NewDecimal(10, 0).DivInt(7)
	require.NoError(t, err)
	require.InDelta(t, 10.0/7.0, d.ToFloat64(), 1e-9)

	_, err = NewDecimal(1, 0).DivInt(0)
	require.Error(t, err)
}

func TestDecimalSubOne(t *testing.T) {
	// fractional_part_overflow_is_handled_correctly from the original:
	// 1 - 0.000...1 should borrow correctly.
	subOne := FromInt(1).Sub(NewDecimal(0, 1))
	require.True(t, subOne.Equal(NewDecimal(0, uint64FractionalDenominator-1)))
}
