package value

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// fractionalDigits is FRACTIONAL_PART_DENOMINATOR_LOG10: the Decimal
// denominator is 10^19.
const fractionalDigits = 19

var bigDenominator = new(big.Int).Exp(big.NewInt(10), big.NewInt(fractionalDigits), nil)

// Decimal is a fixed-precision rational, represented as
// (integer_part, fractional_part) with an implicit denominator of
// 10^19 (§3). The invariant 0 <= fractional_part < denominator always
// holds; negative values use the "borrow" convention, i.e. the pair
// (integer, fractional) always denotes integer + fractional/10^19,
// even when integer is negative (so -1.5 is (-2, 5*10^18), not
// (-1, -5*10^18)).
type Decimal struct {
	integer    int64
	fractional uint64
}

// NewDecimal constructs a Decimal from its raw parts. fractionalParts
// must be < 10^19; callers that don't already hold a normalised pair
// should go through ParseDecimal or FromInt instead.
func NewDecimal(integer int64, fractionalParts uint64) Decimal {
	if fractionalParts >= uint64FractionalDenominator {
		panic(fmt.Sprintf("decimal fractional part out of range: %d", fractionalParts))
	}
	return Decimal{integer: integer, fractional: fractionalParts}
}

const uint64FractionalDenominator uint64 = 10_000_000_000_000_000_000 // 10^19

// FromInt builds an integer-valued Decimal.
func FromInt(i int64) Decimal { return Decimal{integer: i} }

// IntegerPart returns the whole-number part.
func (d Decimal) IntegerPart() int64 { return d.integer }

// FractionalPart returns the raw fractional numerator (over 10^19).
func (d Decimal) FractionalPart() uint64 { return d.fractional }

// ToFloat64 converts to a double, approximately (this is the
// Decimal->Double trivial cast from §3).
func (d Decimal) ToFloat64() float64 {
	return float64(d.integer) + float64(d.fractional)/float64(uint64FractionalDenominator)
}

// numerator returns integer*10^19 + fractional as an exact big.Int,
// i.e. the value of d scaled up by the denominator. This single
// invariant (numerator = value * 10^19) makes add/sub/mul/div exact
// bigint operations instead of hand-rolled carry/borrow bit-twiddling.
func (d Decimal) numerator() *big.Int {
	n := new(big.Int).Mul(big.NewInt(d.integer), bigDenominator)
	n.Add(n, new(big.Int).SetUint64(d.fractional))
	return n
}

// fromNumerator reconstructs a Decimal from a scaled-by-10^19 big.Int,
// normalising via Euclidean division so fractional always lands in
// [0, 10^19) regardless of sign.
func fromNumerator(n *big.Int) Decimal {
	q, r := new(big.Int), new(big.Int)
	q.DivMod(n, bigDenominator, r) // Euclidean: 0 <= r < bigDenominator
	return Decimal{integer: q.Int64(), fractional: r.Uint64()}
}

// Add returns d + other.
func (d Decimal) Add(other Decimal) Decimal {
	return fromNumerator(new(big.Int).Add(d.numerator(), other.numerator()))
}

// Sub returns d - other.
func (d Decimal) Sub(other Decimal) Decimal {
	return fromNumerator(new(big.Int).Sub(d.numerator(), other.numerator()))
}

// Neg returns -d, via the borrow convention (0 - d).
func (d Decimal) Neg() Decimal {
	return Decimal{}.Sub(d)
}

// Mul returns d * other, rounding the sub-denominator tail to
// nearest (ties round toward positive infinity, i.e. standard
// round-half-up on the Euclidean remainder).
func (d Decimal) Mul(other Decimal) Decimal {
	product := new(big.Int).Mul(d.numerator(), other.numerator())
	return fromNumerator(roundDiv(product, bigDenominator))
}

// MulInt returns d * n for an integer multiplier (exact, no rounding).
func (d Decimal) MulInt(n int64) Decimal {
	return fromNumerator(new(big.Int).Mul(d.numerator(), big.NewInt(n)))
}

// DivInt returns d / n for an integer divisor (§9: "the source allows
// only integer divisors"). The scaled numerator is divided by n with
// truncating (round-toward-zero) division, then renormalised via
// fromNumerator -- matching the original's
// `(numerator / rhs).div_euclid(D)` / `.rem_euclid(D)` reconstruction.
func (d Decimal) DivInt(n int64) (Decimal, error) {
	if n == 0 {
		return Decimal{}, fmt.Errorf("value: division by zero")
	}
	truncated := new(big.Int).Quo(d.numerator(), big.NewInt(n))
	return fromNumerator(truncated), nil
}

// ErrDecimalDivisionUnsupported is returned by DivDecimal: dividing one
// Decimal by another has no exact fixed-denominator representation in
// general (§9 open question), so it is rejected rather than silently
// rounded. Callers wanting an approximate result should cast both
// operands to Double first.
var ErrDecimalDivisionUnsupported = fmt.Errorf("value: decimal/decimal division is not supported, cast to double first")

// DivDecimal always fails with ErrDecimalDivisionUnsupported. It exists
// so call sites (the expression compiler) have a named entry point to
// reject at, rather than rejecting the operator pair ad hoc.
func (d Decimal) DivDecimal(Decimal) (Decimal, error) {
	return Decimal{}, ErrDecimalDivisionUnsupported
}

// Equal reports exact equality of the normalised (integer, fractional)
// pair, equivalent to numerator equality.
func (d Decimal) Equal(other Decimal) bool {
	return d.integer == other.integer && d.fractional == other.fractional
}

// Compare returns -1, 0, or 1 comparing d to other.
func (d Decimal) Compare(other Decimal) int {
	return d.numerator().Cmp(other.numerator())
}

// roundDiv computes round(num/den) with ties rounding up, using
// Euclidean division so the rule is sign-independent.
func roundDiv(num, den *big.Int) *big.Int {
	q, r := new(big.Int), new(big.Int)
	q.DivMod(num, den, r)
	twiceR := new(big.Int).Lsh(r, 1)
	if twiceR.Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// String renders the canonical form [-]I.Fdec, trimming trailing
// zeros from the fractional part; an integer-only value renders as
// "I.0dec" (§3, §6).
func (d Decimal) String() string {
	if d.fractional == 0 {
		return fmt.Sprintf("%d.0dec", d.integer)
	}

	var negative bool
	var intPart int64
	var frac uint64
	if d.integer < 0 {
		// Borrow convention: (-2, 5e18) denotes -1.5, displayed as
		// "-1.5dec" -- uncomplement by taking (D - fractional) and
		// integer+1, absolute valued.
		negative = true
		frac = uint64FractionalDenominator - d.fractional
		intPart = absInt64(d.integer + 1)
	} else {
		intPart = d.integer
		frac = d.fractional
	}

	tailZeros := 0
	for frac%10 == 0 {
		tailZeros++
		frac /= 10
	}
	width := fractionalDigits - tailZeros

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%0*ddec", sign, intPart, width, frac)
}

func absInt64(i int64) int64 {
	if i < 0 {
		return -i
	}
	return i
}

// ParseDecimal parses the canonical string form produced by String,
// also accepting the form without the trailing "dec" suffix.
func ParseDecimal(s string) (Decimal, error) {
	orig := s
	s = strings.TrimSuffix(s, "dec")

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if !hasFrac {
		fracPart = "0"
	}

	integer, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Decimal{}, fmt.Errorf("value: invalid decimal %q: %w", orig, err)
	}

	fracDigits, err := strconv.ParseUint(fracPart, 10, 64)
	if err != nil {
		return Decimal{}, fmt.Errorf("value: invalid decimal %q: %w", orig, err)
	}
	if len(fracPart) > fractionalDigits {
		return Decimal{}, fmt.Errorf("value: invalid decimal %q: too many fractional digits", orig)
	}
	scale := fractionalDigits - len(fracPart)
	fractional := fracDigits
	for i := 0; i < scale; i++ {
		fractional *= 10
	}

	d := Decimal{integer: integer, fractional: fractional}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
