package value

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// ToBytes serialises v for storage, tag byte first (§6), followed by
// the category-specific payload. Struct values append the definition
// key as a tail, matching the original's ValueTypeBytes tail
// convention (§3: "Structs carry a definition key").
func ToBytes(v Value) []byte {
	cat := CategoryOf(v)
	buf := []byte{cat.ToBytes()}

	switch x := v.(type) {
	case bool:
		if x {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case int64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(x))
		buf = append(buf, b[:]...)
	case float64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(x))
		buf = append(buf, b[:]...)
	case Decimal:
		var b [16]byte
		binary.BigEndian.PutUint64(b[0:8], uint64(x.IntegerPart()))
		binary.BigEndian.PutUint64(b[8:16], x.FractionalPart())
		buf = append(buf, b[:]...)
	case DateOnly:
		var b [8]byte
		binary.BigEndian.PutUint16(b[0:2], uint16(x.Year))
		b[2] = byte(x.Month)
		b[3] = byte(x.Day)
		buf = append(buf, b[:4]...)
	case time.Time:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(x.UnixNano()))
		buf = append(buf, b[:]...)
	case ZonedDateTime:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(x.Instant.UnixNano()))
		buf = append(buf, b[:]...)
		buf = append(buf, []byte(x.Zone)...)
	case CalendarDuration:
		var b [24]byte
		binary.BigEndian.PutUint64(b[0:8], uint64(x.Months))
		binary.BigEndian.PutUint64(b[8:16], uint64(x.Days))
		binary.BigEndian.PutUint64(b[16:24], uint64(x.Nanos))
		buf = append(buf, b[:]...)
	case string:
		buf = append(buf, []byte(x)...)
	case *Struct:
		var key [4]byte
		binary.BigEndian.PutUint32(key[:], uint32(x.Definition))
		buf = append(buf, key[:]...)
		buf = append(buf, encodeStructFields(x)...)
	default:
		panic(fmt.Sprintf("value: cannot encode %T", v))
	}
	return buf
}

func encodeStructFields(s *Struct) []byte {
	ids := make([]FieldID, 0, len(s.Fields))
	for id := range s.Fields {
		ids = append(ids, id)
	}
	sortFieldIDs(ids)

	var out []byte
	for _, id := range ids {
		var idBuf [2]byte
		binary.BigEndian.PutUint16(idBuf[:], uint16(id))
		out = append(out, idBuf[:]...)
		fieldBytes := ToBytes(s.Fields[id])
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(fieldBytes)))
		out = append(out, lenBuf[:]...)
		out = append(out, fieldBytes...)
	}
	return out
}

func sortFieldIDs(ids []FieldID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// FromBytes deserialises a value given its declared category, the
// inverse of ToBytes for scalar categories. Struct decoding requires
// the schema (to resolve field ids to value types) and lives in
// package concept, not here.
func FromBytes(cat Category, payload []byte) (Value, error) {
	switch cat {
	case Boolean:
		if len(payload) != 1 {
			return nil, fmt.Errorf("value: boolean payload must be 1 byte, got %d", len(payload))
		}
		return payload[0] != 0, nil
	case Integer:
		if len(payload) != 8 {
			return nil, fmt.Errorf("value: integer payload must be 8 bytes, got %d", len(payload))
		}
		return int64(binary.BigEndian.Uint64(payload)), nil
	case Double:
		if len(payload) != 8 {
			return nil, fmt.Errorf("value: double payload must be 8 bytes, got %d", len(payload))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(payload)), nil
	case Decimal:
		if len(payload) != 16 {
			return nil, fmt.Errorf("value: decimal payload must be 16 bytes, got %d", len(payload))
		}
		integer := int64(binary.BigEndian.Uint64(payload[0:8]))
		fractional := binary.BigEndian.Uint64(payload[8:16])
		return NewDecimal(integer, fractional), nil
	case Date:
		if len(payload) != 4 {
			return nil, fmt.Errorf("value: date payload must be 4 bytes, got %d", len(payload))
		}
		return DateOnly{
			Year:  int(binary.BigEndian.Uint16(payload[0:2])),
			Month: int(payload[2]),
			Day:   int(payload[3]),
		}, nil
	case DateTime:
		if len(payload) != 8 {
			return nil, fmt.Errorf("value: datetime payload must be 8 bytes, got %d", len(payload))
		}
		return time.Unix(0, int64(binary.BigEndian.Uint64(payload))).UTC(), nil
	case DateTimeTZ:
		if len(payload) < 8 {
			return nil, fmt.Errorf("value: datetime-tz payload too short")
		}
		instant := time.Unix(0, int64(binary.BigEndian.Uint64(payload[0:8]))).UTC()
		return ZonedDateTime{Instant: instant, Zone: string(payload[8:])}, nil
	case Duration:
		if len(payload) != 24 {
			return nil, fmt.Errorf("value: duration payload must be 24 bytes, got %d", len(payload))
		}
		return CalendarDuration{
			Months: int64(binary.BigEndian.Uint64(payload[0:8])),
			Days:   int64(binary.BigEndian.Uint64(payload[8:16])),
			Nanos:  int64(binary.BigEndian.Uint64(payload[16:24])),
		}, nil
	case String:
		return string(payload), nil
	default:
		return nil, fmt.Errorf("value: category %s requires schema-aware decoding", cat)
	}
}
