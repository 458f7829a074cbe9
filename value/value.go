package value

import (
	"fmt"
	"strings"
	"time"
)

// Value is any concrete value a variable can bind to. Like the teacher's
// `datalog.Value`, this is `interface{}` with a closed set of concrete Go
// types rather than a tagged union struct -- Go has no sum types, and the
// category is recoverable from the dynamic type via CategoryOf.
//
// Valid dynamic types:
//   - bool            (Boolean)
//   - int64           (Integer)
//   - float64         (Double)
//   - Decimal         (Decimal)
//   - civil Date      (Date)        -- DateOnly
//   - time.Time       (DateTime, no zone attached)
//   - ZonedDateTime   (DateTimeTZ)
//   - time.Duration-like calendar Duration
//   - string          (String)
//   - *Struct         (Struct)
type Value interface{}

// DateOnly represents a Date value: a calendar date without a time
// component (§3). Stored separately from DateTime because the two are
// not in the same comparability class.
type DateOnly struct {
	Year, Month, Day int
}

func (d DateOnly) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d DateOnly) toTime() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Compare orders DateOnly chronologically.
func (d DateOnly) Compare(other DateOnly) int {
	a, b := d.toTime(), other.toTime()
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// ZonedDateTime is a DateTimeTZ value: an instant plus the originating
// IANA zone name, kept distinct from plain DateTime (no zone) per §3.
type ZonedDateTime struct {
	Instant time.Time
	Zone    string
}

func (z ZonedDateTime) String() string {
	return z.Instant.Format(time.RFC3339) + "[" + z.Zone + "]"
}

// CalendarDuration is a Duration value: a mixed months/days/nanos
// duration (calendar durations don't have a fixed length, unlike
// time.Duration, so months and days are tracked separately from the
// sub-day nanosecond component).
type CalendarDuration struct {
	Months int64
	Days   int64
	Nanos  int64
}

func (d CalendarDuration) String() string {
	var sb strings.Builder
	sb.WriteByte('P')
	if d.Months != 0 {
		years := d.Months / 12
		months := d.Months % 12
		if years != 0 {
			fmt.Fprintf(&sb, "%dY", years)
		}
		if months != 0 {
			fmt.Fprintf(&sb, "%dM", months)
		}
	}
	if d.Days != 0 {
		fmt.Fprintf(&sb, "%dD", d.Days)
	}
	if d.Nanos != 0 {
		sb.WriteByte('T')
		secs := d.Nanos / int64(time.Second)
		fmt.Fprintf(&sb, "%dS", secs)
	}
	return sb.String()
}

// StructKey identifies a user-defined struct type definition (§3: "a
// definition key (identity of a user-defined record type)"). It is a
// small sequentially assigned integer, matching §6's "Struct
// definition ids are small sequentially-assigned integers".
type StructKey uint32

// Struct is a Struct value: a fixed-order set of named fields, each
// optional, addressed by a per-definition field-id slot (§6: "field
// insertion order is preserved via per-struct field-id slots").
type Struct struct {
	Definition StructKey
	// Fields is indexed by FieldID, not by declaration order directly;
	// a retired (deleted) field id leaves a permanent hole.
	Fields map[FieldID]Value
}

// FieldID is a per-struct-definition field slot id. Ids are never
// reused once retired (§9).
type FieldID uint16

// CategoryOf returns the Category of a dynamic Value. Panics on an
// unrecognised dynamic type, mirroring the closed-set invariant: every
// value in this system must have been constructed through this
// package's constructors.
func CategoryOf(v Value) Category {
	switch v.(type) {
	case bool:
		return Boolean
	case int64:
		return Integer
	case float64:
		return Double
	case Decimal:
		return Decimal
	case DateOnly:
		return Date
	case time.Time:
		return DateTime
	case ZonedDateTime:
		return DateTimeTZ
	case CalendarDuration:
		return Duration
	case string:
		return String
	case *Struct:
		return Struct
	default:
		panic(fmt.Sprintf("value: unrecognised dynamic type %T", v))
	}
}

// Compare orders two values of possibly-different-but-comparable
// categories, returning -1/0/1. It panics if the categories are not
// Comparable -- callers (the annotator, sort executor) must have
// already validated comparability before calling this.
func Compare(a, b Value) int {
	ca, cb := CategoryOf(a), CategoryOf(b)
	if !Comparable(ca, cb) {
		panic(fmt.Sprintf("value: %s and %s are not comparable", ca, cb))
	}

	switch ca {
	case Boolean:
		ab, bb := a.(bool), b.(bool)
		return boolCompare(ab, bb)
	case String:
		return strings.Compare(a.(string), b.(string))
	case Date:
		return a.(DateOnly).Compare(b.(DateOnly))
	case DateTime:
		at, bt := a.(time.Time), b.(time.Time)
		return timeCompare(at, bt)
	case DateTimeTZ:
		at, bt := a.(ZonedDateTime).Instant, b.(ZonedDateTime).Instant
		return timeCompare(at, bt)
	case Duration:
		ad, bd := durationNanos(a.(CalendarDuration)), durationNanos(b.(CalendarDuration))
		return int64Compare(ad, bd)
	case Integer, Double, Decimal:
		return compareNumeric(a, b)
	default:
		panic(fmt.Sprintf("value: %s is not comparable", ca))
	}
}

// Equal reports value equality (same rules as Compare == 0, but
// defined separately so Struct equality -- not orderable -- can be
// supported without going through Compare).
func Equal(a, b Value) bool {
	ca, cb := CategoryOf(a), CategoryOf(b)
	if ca == Struct || cb == Struct {
		if ca != Struct || cb != Struct {
			return false
		}
		return structEqual(a.(*Struct), b.(*Struct))
	}
	if !Comparable(ca, cb) {
		return false
	}
	return Compare(a, b) == 0
}

func structEqual(a, b *Struct) bool {
	if a.Definition != b.Definition || len(a.Fields) != len(b.Fields) {
		return false
	}
	for id, av := range a.Fields {
		bv, ok := b.Fields[id]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

func compareNumeric(a, b Value) int {
	// Promote both to Decimal when either is Decimal (exact); otherwise
	// promote to float64. This mirrors the trivial-cast table: Integer
	// and Decimal compare exactly, Double compares approximately.
	_, aIsDec := a.(Decimal)
	_, bIsDec := b.(Decimal)
	if aIsDec || bIsDec {
		return toDecimal(a).Compare(toDecimal(b))
	}
	af, bf := toFloat64(a), toFloat64(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func toDecimal(v Value) Decimal {
	switch x := v.(type) {
	case Decimal:
		return x
	case int64:
		return FromInt(x)
	case float64:
		// Approximate cast, per §3.
		d, _ := ParseDecimal(fmt.Sprintf("%f", x))
		return d
	default:
		panic(fmt.Sprintf("value: cannot cast %T to decimal", v))
	}
}

func toFloat64(v Value) float64 {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case float64:
		return x
	case Decimal:
		return x.ToFloat64()
	default:
		panic(fmt.Sprintf("value: cannot cast %T to double", v))
	}
}

func durationNanos(d CalendarDuration) int64 {
	// Approximate ordering: 30-day months, for sort purposes only.
	return d.Months*30*24*int64(time.Hour) + d.Days*24*int64(time.Hour) + d.Nanos
}

func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a && b:
		return -1
	default:
		return 1
	}
}

func timeCompare(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func int64Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Cast converts v to the target category if a trivial or approximate
// cast exists (§3), returning (nil, false) otherwise. exact controls
// whether only trivial casts are allowed.
func Cast(v Value, to Category, exact bool) (Value, bool) {
	from := CategoryOf(v)
	if from == to {
		return v, true
	}
	castable := TriviallyCastableTo(from, to)
	if !exact {
		castable = castable || ApproximatelyCastableTo(from, to)
	}
	if !castable {
		return nil, false
	}

	switch to {
	case Double:
		return toFloat64(v), true
	case Decimal:
		return toDecimal(v), true
	case Integer:
		switch x := v.(type) {
		case Decimal:
			return x.IntegerPart(), true
		case float64:
			return int64(x), true
		}
	case DateTime:
		if d, ok := v.(DateOnly); ok {
			return d.toTime(), true
		}
	}
	return nil, false
}
