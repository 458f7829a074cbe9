package concept

import "github.com/wbrown/typeql-engine/value"

// AnnotationKind identifies which of the fixed annotation variants an
// Annotation carries (§3: Abstract, Range, Values, Card, Key, Unique,
// Regex).
type AnnotationKind uint8

const (
	AnnotationAbstract AnnotationKind = iota
	AnnotationRange
	AnnotationValues
	AnnotationCard
	AnnotationKey
	AnnotationUnique
	AnnotationRegex
)

// Annotation is a declared constraint on a type or a capability edge.
// Only one field set is meaningful per Kind; the others are zero.
type Annotation struct {
	Kind AnnotationKind

	// Range: Lo/Hi are nil when unbounded on that side.
	RangeLo, RangeHi *value.Value

	// Values: an ordered list (order matters for equality, §3).
	ValuesSet []value.Value

	// Card: Max nil means unbounded.
	CardMin int
	CardMax *int

	// Regex.
	Pattern string
}

func Abstract() Annotation { return Annotation{Kind: AnnotationAbstract} }

func Key() Annotation { return Annotation{Kind: AnnotationKey} }

func Unique() Annotation { return Annotation{Kind: AnnotationUnique} }

func RangeAnnotation(lo, hi *value.Value) Annotation {
	return Annotation{Kind: AnnotationRange, RangeLo: lo, RangeHi: hi}
}

func ValuesAnnotation(vs []value.Value) Annotation {
	return Annotation{Kind: AnnotationValues, ValuesSet: vs}
}

func CardAnnotation(min int, max *int) Annotation {
	return Annotation{Kind: AnnotationCard, CardMin: min, CardMax: max}
}

func RegexAnnotation(pattern string) Annotation {
	return Annotation{Kind: AnnotationRegex, Pattern: pattern}
}

// ValidOn reports whether this annotation kind is legal on a value of
// the given category, per §3's "Range/Values annotations are legal
// only on attribute types... whose value type supports them". Range
// requires a Keyable, orderable category; Values requires Keyable
// (equality-comparable without the Double/Struct ambiguity).
func (a Annotation) ValidOn(cat value.Category) bool {
	switch a.Kind {
	case AnnotationRange:
		return cat.Keyable() && cat != value.Boolean
	case AnnotationValues:
		return cat.Keyable()
	case AnnotationRegex:
		return cat == value.String
	default:
		return true
	}
}

// Satisfies reports whether v satisfies this annotation. Only
// Range/Values/Regex are checked here; Abstract/Key/Unique/Card are
// cardinality-level constraints checked by the write type-checker
// against the snapshot, not against a single value.
func (a Annotation) Satisfies(v value.Value) bool {
	switch a.Kind {
	case AnnotationRange:
		if a.RangeLo != nil && value.Compare(v, *a.RangeLo) < 0 {
			return false
		}
		if a.RangeHi != nil && value.Compare(v, *a.RangeHi) > 0 {
			return false
		}
		return true
	case AnnotationValues:
		for _, candidate := range a.ValuesSet {
			if value.Equal(v, candidate) {
				return true
			}
		}
		return false
	case AnnotationRegex:
		s, ok := v.(string)
		if !ok {
			return false
		}
		return regexCache.matches(a.Pattern, s)
	default:
		return true
	}
}
