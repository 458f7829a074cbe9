// Package value implements the closed set of value categories (§3), a
// fixed-precision Decimal, and the comparability/castability rules that the
// annotator, expression compiler and write type-checker all depend on.
package value

import "fmt"

// Category is one of the ten value categories in the closed set.
// Tag bytes are normative (§6) and must never be renumbered: on-disk
// encodings and wire formats key off these exact values.
type Category uint8

const (
	Boolean Category = iota
	Integer
	Double
	Decimal
	Date
	DateTime
	DateTimeTZ
	Duration
	String
	// Struct is assigned the out-of-band tag 40 rather than 9 so that
	// future scalar categories can be slotted in between without
	// colliding with the struct tag.
	Struct Category = 40
)

// Name returns the lowercase category name used in error messages and
// schema introspection.
func (c Category) Name() string {
	switch c {
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Double:
		return "double"
	case Decimal:
		return "decimal"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	case DateTimeTZ:
		return "datetime-tz"
	case Duration:
		return "duration"
	case String:
		return "string"
	case Struct:
		return "struct"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

func (c Category) String() string { return c.Name() }

// ToBytes returns the 1-byte wire tag for the category (§6).
func (c Category) ToBytes() byte { return byte(c) }

// CategoryFromBytes decodes a 1-byte wire tag, panicking on an
// unrecognised byte the same way the original's `from_bytes` does --
// a malformed tag byte means storage corruption, not a recoverable
// query error.
func CategoryFromBytes(b byte) Category {
	c := Category(b)
	switch c {
	case Boolean, Integer, Double, Decimal, Date, DateTime, DateTimeTZ, Duration, String, Struct:
		return c
	default:
		panic(fmt.Sprintf("unrecognised value category byte: %d", b))
	}
}

// Keyable reports whether the category may be used as a sort or index
// key. Every category is keyable except Double (unordered equality due
// to NaN/rounding) and Struct (no total order over nested fields).
func (c Category) Keyable() bool {
	switch c {
	case Double, Struct:
		return false
	default:
		return true
	}
}

// ComparableCategories returns the categories a value of category c may be
// compared against. Numerics form one mutually comparable class; every
// other category is comparable only to itself.
func ComparableCategories(c Category) []Category {
	switch c {
	case Integer, Double, Decimal:
		return []Category{Integer, Double, Decimal}
	default:
		return []Category{c}
	}
}

// Comparable reports whether a and b belong to the same comparability
// class (§3, §8: reflexive on its class and symmetric).
func Comparable(a, b Category) bool {
	for _, c := range ComparableCategories(a) {
		if c == b {
			return true
		}
	}
	return false
}

// TriviallyCastableTo reports the "trivially castable" relation from §3:
// Integer->{Double,Decimal}, Decimal->Double, Date->DateTime.
func TriviallyCastableTo(from, to Category) bool {
	if from == to {
		return true
	}
	switch from {
	case Integer:
		return to == Double || to == Decimal
	case Decimal:
		return to == Double
	case Date:
		return to == DateTime
	default:
		return false
	}
}

// ApproximatelyCastableTo adds the reverse numeric casts to
// TriviallyCastableTo: any numeric category is approximately castable to
// any other numeric category.
func ApproximatelyCastableTo(from, to Category) bool {
	if from == to {
		return true
	}
	switch from {
	case Integer:
		return to == Double || to == Decimal
	case Decimal:
		return to == Double || to == Integer
	case Double:
		return to == Decimal || to == Integer
	case Date:
		return to == DateTime
	default:
		return false
	}
}
