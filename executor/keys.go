package executor

import (
	"encoding/binary"

	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/internal/codec"
)

// Key layout adapted from the teacher's per-index L85 key encoder
// (datalog/storage/key_encoder_l85.go): that encoder built one of
// EAVT/AEVT/AVET/VAET/TAEV datom-store keys, keyed around a 20-byte
// entity id, a 32-byte attribute id and a per-datom transaction stamp.
// This storage model has no per-key tx stamp (MVCC lives in the
// snapshot layer, §3/§6) and only two id widths (4-byte TypeID,
// 8-byte ThingID), so the five-index datom scheme doesn't transplant
// directly -- what's reused is the underlying codec (L85, extended
// here with Fixed4/Fixed8 helpers) as the sortable id encoding this
// namespace's own, smaller key set is built from.
const (
	prefixThingRecord byte = 'T' // T + thing            -> kind, type, [value]
	prefixTypeIndex    byte = 'I' // I + type + thing      -> "" (unbound Isa scan)
	prefixHasForward   byte = 'H' // H + owner + attr      -> "" (has, scan by owner)
	prefixHasReverse   byte = 'h' // h + attr + owner      -> "" (has, scan by attribute)
	prefixLinksForward byte = 'L' // L + relation + role + player -> "" (scan by relation)
	prefixLinksReverse byte = 'l' // l + player + role + relation -> "" (scan by player)
	prefixAttrValue    byte = 'V' // V + type + value      -> thing (Put dedup lookup)
)

var idCounterKey = []byte{'#', 'n', 'e', 'x', 't', '-', 'i', 'd'}

func encodeThingID(id concept.ThingID) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(id))
	return codec.EncodeFixed8(b)
}

func encodeTypeID(id concept.TypeID) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(id))
	return codec.EncodeFixed4(b)
}

func decodeThingID(s string) (concept.ThingID, error) {
	b, err := codec.DecodeFixed8(s)
	if err != nil {
		return 0, err
	}
	return concept.ThingID(binary.BigEndian.Uint64(b[:])), nil
}

func decodeTypeL85(s string) (concept.TypeID, error) {
	b, err := codec.DecodeFixed4(s)
	if err != nil {
		return 0, err
	}
	return concept.TypeID(binary.BigEndian.Uint32(b[:])), nil
}

func thingRecordKey(id concept.ThingID) []byte {
	return append([]byte{prefixThingRecord}, encodeThingID(id)...)
}

func typeIndexKey(typ concept.TypeID, thing concept.ThingID) []byte {
	key := append([]byte{prefixTypeIndex}, encodeTypeID(typ)...)
	return append(key, encodeThingID(thing)...)
}

func typeIndexPrefix(typ concept.TypeID) []byte {
	return append([]byte{prefixTypeIndex}, encodeTypeID(typ)...)
}

func hasForwardKey(owner, attr concept.ThingID) []byte {
	key := append([]byte{prefixHasForward}, encodeThingID(owner)...)
	return append(key, encodeThingID(attr)...)
}

func hasForwardPrefix(owner concept.ThingID) []byte {
	return append([]byte{prefixHasForward}, encodeThingID(owner)...)
}

func hasReverseKey(attr, owner concept.ThingID) []byte {
	key := append([]byte{prefixHasReverse}, encodeThingID(attr)...)
	return append(key, encodeThingID(owner)...)
}

func hasReversePrefix(attr concept.ThingID) []byte {
	return append([]byte{prefixHasReverse}, encodeThingID(attr)...)
}

func linksForwardKey(relation concept.ThingID, role concept.TypeID, player concept.ThingID) []byte {
	key := append([]byte{prefixLinksForward}, encodeThingID(relation)...)
	key = append(key, encodeTypeID(role)...)
	return append(key, encodeThingID(player)...)
}

func linksForwardPrefix(relation concept.ThingID) []byte {
	return append([]byte{prefixLinksForward}, encodeThingID(relation)...)
}

func linksReverseKey(player concept.ThingID, role concept.TypeID, relation concept.ThingID) []byte {
	key := append([]byte{prefixLinksReverse}, encodeThingID(player)...)
	key = append(key, encodeTypeID(role)...)
	return append(key, encodeThingID(relation)...)
}

func linksReversePrefix(player concept.ThingID) []byte {
	return append([]byte{prefixLinksReverse}, encodeThingID(player)...)
}

func attrValueKey(typ concept.TypeID, valueBytes []byte) []byte {
	key := append([]byte{prefixAttrValue}, encodeTypeID(typ)...)
	return append(key, valueBytes...)
}

// keyRangeEnd returns the exclusive upper bound of a prefix scan: the
// prefix with its final byte incremented (codec.EncodeL85 never
// produces 0xFF, so this never needs to carry into an extra byte for
// any key built in this package).
func keyRangeEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	end[len(end)-1]++
	return end
}
