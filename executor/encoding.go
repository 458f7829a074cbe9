package executor

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/wbrown/typeql-engine/value"
)

// encodeValue serialises a materialized attribute's value for storage
// as a thing record payload and as an attribute-value index key
// segment. There is no ecosystem serialization library in the
// example pool that targets a ten-case closed value enum like this
// one (the nearby protobuf/flatbuffers deps pulled in transitively by
// badger require generated schemas this package has no .proto/.fbs
// source for) -- a small tagged binary encoder is the straightforward
// fit, in the same spirit as the adapted L85 id codec.
func encodeValue(v value.Value) ([]byte, error) {
	cat := value.CategoryOf(v)
	buf := []byte{byte(cat)}

	switch val := v.(type) {
	case bool:
		if val {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case int64:
		buf = binary.BigEndian.AppendUint64(buf, uint64(val))
	case float64:
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(val))
	case value.Decimal:
		buf = binary.BigEndian.AppendUint64(buf, uint64(val.IntegerPart()))
		buf = binary.BigEndian.AppendUint64(buf, val.FractionalPart())
	case value.DateOnly:
		buf = binary.BigEndian.AppendUint32(buf, uint32(val.Year))
		buf = append(buf, byte(val.Month), byte(val.Day))
	case time.Time:
		buf = binary.BigEndian.AppendUint64(buf, uint64(val.UnixNano()))
	case value.ZonedDateTime:
		buf = binary.BigEndian.AppendUint64(buf, uint64(val.Instant.UnixNano()))
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(val.Zone)))
		buf = append(buf, val.Zone...)
	case value.CalendarDuration:
		buf = binary.BigEndian.AppendUint64(buf, uint64(val.Months))
		buf = binary.BigEndian.AppendUint64(buf, uint64(val.Days))
		buf = binary.BigEndian.AppendUint64(buf, uint64(val.Nanos))
	case string:
		buf = append(buf, val...)
	default:
		return nil, fmt.Errorf("executor: value of category %s cannot be materialized as an attribute value", cat.Name())
	}
	return buf, nil
}

func decodeValue(raw []byte) (value.Value, error) {
	if len(raw) < 1 {
		return nil, fmt.Errorf("executor: empty encoded value")
	}
	cat := value.Category(raw[0])
	body := raw[1:]

	switch cat {
	case value.Boolean:
		if len(body) < 1 {
			return nil, fmt.Errorf("executor: truncated boolean value")
		}
		return body[0] != 0, nil
	case value.Integer:
		if len(body) < 8 {
			return nil, fmt.Errorf("executor: truncated integer value")
		}
		return int64(binary.BigEndian.Uint64(body)), nil
	case value.Double:
		if len(body) < 8 {
			return nil, fmt.Errorf("executor: truncated double value")
		}
		return math.Float64frombits(binary.BigEndian.Uint64(body)), nil
	case value.Decimal:
		if len(body) < 16 {
			return nil, fmt.Errorf("executor: truncated decimal value")
		}
		return value.NewDecimal(int64(binary.BigEndian.Uint64(body)), binary.BigEndian.Uint64(body[8:])), nil
	case value.Date:
		if len(body) < 6 {
			return nil, fmt.Errorf("executor: truncated date value")
		}
		return value.DateOnly{Year: int(binary.BigEndian.Uint32(body)), Month: int(body[4]), Day: int(body[5])}, nil
	case value.DateTime:
		if len(body) < 8 {
			return nil, fmt.Errorf("executor: truncated datetime value")
		}
		return time.Unix(0, int64(binary.BigEndian.Uint64(body))).UTC(), nil
	case value.DateTimeTZ:
		if len(body) < 10 {
			return nil, fmt.Errorf("executor: truncated zoned datetime value")
		}
		instant := time.Unix(0, int64(binary.BigEndian.Uint64(body)))
		zoneLen := int(binary.BigEndian.Uint16(body[8:10]))
		if len(body) < 10+zoneLen {
			return nil, fmt.Errorf("executor: truncated zoned datetime zone name")
		}
		return value.ZonedDateTime{Instant: instant, Zone: string(body[10 : 10+zoneLen])}, nil
	case value.Duration:
		if len(body) < 24 {
			return nil, fmt.Errorf("executor: truncated duration value")
		}
		return value.CalendarDuration{
			Months: int64(binary.BigEndian.Uint64(body)),
			Days:   int64(binary.BigEndian.Uint64(body[8:])),
			Nanos:  int64(binary.BigEndian.Uint64(body[16:])),
		}, nil
	case value.String:
		return string(body), nil
	default:
		return nil, fmt.Errorf("executor: cannot decode value of category %d", cat)
	}
}
