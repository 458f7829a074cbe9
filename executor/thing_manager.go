package executor

import (
	"encoding/binary"
	"fmt"

	"github.com/wbrown/typeql-engine/concept"
	"github.com/wbrown/typeql-engine/snapshot"
	"github.com/wbrown/typeql-engine/value"
)

// ThingManager materializes, looks up, connects and deletes things
// against a snapshot, maintaining the forward/reverse has and links
// indexes and the attribute value-dedup index that Match's prefix
// scans and Put's probe both rely on. Named after the original
// concept/thing/thing_manager.go ThingManager this engine's pipeline
// (executor/match_executor.rs, executor/pipeline/update.rs) is handed
// alongside a snapshot.
type ThingManager struct {
	read  snapshot.ReadSnapshot
	write snapshot.WriteSnapshot // nil if this manager is read-only
}

func NewThingManager(read snapshot.ReadSnapshot, write snapshot.WriteSnapshot) *ThingManager {
	return &ThingManager{read: read, write: write}
}

func (m *ThingManager) mustWrite() (snapshot.WriteSnapshot, error) {
	if m.write == nil {
		return nil, fmt.Errorf("executor: thing manager is read-only")
	}
	return m.write, nil
}

func (m *ThingManager) nextID() (concept.ThingID, error) {
	w, err := m.mustWrite()
	if err != nil {
		return 0, err
	}
	var next uint64 = 1
	if raw, err := w.Get(idCounterKey); err != nil {
		return 0, err
	} else if raw != nil {
		next = binary.BigEndian.Uint64(raw) + 1
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	if err := w.Put(idCounterKey, buf[:]); err != nil {
		return 0, err
	}
	return concept.ThingID(next), nil
}

// PutObject materializes a new object (entity or relation) of typ,
// always allocating a fresh id -- objects have no value-based identity
// (§4.5's PutObject).
func (m *ThingManager) PutObject(typ concept.TypeID) (concept.Thing, error) {
	w, err := m.mustWrite()
	if err != nil {
		return concept.Thing{}, err
	}
	id, err := m.nextID()
	if err != nil {
		return concept.Thing{}, err
	}
	record := append([]byte{byte(concept.ObjectThing)}, encodeTypeID(typ)...)
	if err := w.Put(thingRecordKey(id), record); err != nil {
		return concept.Thing{}, err
	}
	if err := w.Put(typeIndexKey(typ, id), []byte{}); err != nil {
		return concept.Thing{}, err
	}
	return concept.NewObject(id, typ), nil
}

// PutAttribute materializes an attribute value of typ, or returns the
// existing thing if an attribute of that type and value already
// exists (§4.5's PutAttribute / the Put stage's witness semantics:
// attributes are identified by type+value, not by an independent id).
func (m *ThingManager) PutAttribute(typ concept.TypeID, v value.Value) (concept.Thing, error) {
	w, err := m.mustWrite()
	if err != nil {
		return concept.Thing{}, err
	}
	valueBytes, err := encodeValue(v)
	if err != nil {
		return concept.Thing{}, err
	}
	dedupKey := attrValueKey(typ, valueBytes)
	if existing, err := w.Get(dedupKey); err != nil {
		return concept.Thing{}, err
	} else if existing != nil {
		id, err := decodeThingID(string(existing))
		if err != nil {
			return concept.Thing{}, err
		}
		return concept.NewAttribute(id, typ, v), nil
	}

	id, err := m.nextID()
	if err != nil {
		return concept.Thing{}, err
	}
	record := append([]byte{byte(concept.AttributeThing)}, encodeTypeID(typ)...)
	record = append(record, valueBytes...)
	if err := w.Put(thingRecordKey(id), record); err != nil {
		return concept.Thing{}, err
	}
	if err := w.Put(typeIndexKey(typ, id), []byte{}); err != nil {
		return concept.Thing{}, err
	}
	if err := w.Put(dedupKey, []byte(encodeThingID(id))); err != nil {
		return concept.Thing{}, err
	}
	return concept.NewAttribute(id, typ, v), nil
}

// Get resolves a thing's current record.
func (m *ThingManager) Get(id concept.ThingID) (concept.Thing, bool, error) {
	raw, err := m.read.Get(thingRecordKey(id))
	if err != nil {
		return concept.Thing{}, false, err
	}
	if raw == nil {
		return concept.Thing{}, false, nil
	}
	return decodeThingRecord(id, raw)
}

func decodeThingRecord(id concept.ThingID, raw []byte) (concept.Thing, bool, error) {
	if len(raw) < 1+5 {
		return concept.Thing{}, false, fmt.Errorf("executor: truncated thing record for %d", id)
	}
	kind := concept.ThingKind(raw[0])
	typ, err := decodeTypeL85(string(raw[1:6]))
	if err != nil {
		return concept.Thing{}, false, err
	}
	if kind == concept.ObjectThing {
		return concept.NewObject(id, typ), true, nil
	}
	v, err := decodeValue(raw[6:])
	if err != nil {
		return concept.Thing{}, false, err
	}
	return concept.NewAttribute(id, typ, v), true, nil
}

// Has records an owner-owns-attribute edge in both the forward and
// reverse indexes (§4.5's Has connection instruction).
func (m *ThingManager) Has(owner, attr concept.ThingID) error {
	w, err := m.mustWrite()
	if err != nil {
		return err
	}
	if err := w.Put(hasForwardKey(owner, attr), []byte{}); err != nil {
		return err
	}
	return w.Put(hasReverseKey(attr, owner), []byte{})
}

// RemoveHas deletes an owner-owns-attribute edge.
func (m *ThingManager) RemoveHas(owner, attr concept.ThingID) error {
	w, err := m.mustWrite()
	if err != nil {
		return err
	}
	if err := w.Delete(hasForwardKey(owner, attr)); err != nil {
		return err
	}
	return w.Delete(hasReverseKey(attr, owner))
}

// Links records a relation-role-player edge (§4.5's Links connection
// instruction).
func (m *ThingManager) Links(relation concept.ThingID, role concept.TypeID, player concept.ThingID) error {
	w, err := m.mustWrite()
	if err != nil {
		return err
	}
	if err := w.Put(linksForwardKey(relation, role, player), []byte{}); err != nil {
		return err
	}
	return w.Put(linksReverseKey(player, role, relation), []byte{})
}

// RemoveLinks deletes a relation-role-player edge.
func (m *ThingManager) RemoveLinks(relation concept.ThingID, role concept.TypeID, player concept.ThingID) error {
	w, err := m.mustWrite()
	if err != nil {
		return err
	}
	if err := w.Delete(linksForwardKey(relation, role, player)); err != nil {
		return err
	}
	return w.Delete(linksReverseKey(player, role, relation))
}

// DeleteThing removes a thing's own record and its type index entry.
// Callers must remove its has/links edges first (§4.5's Delete
// executor: "edges first then concepts").
func (m *ThingManager) DeleteThing(id concept.ThingID, typ concept.TypeID) error {
	w, err := m.mustWrite()
	if err != nil {
		return err
	}
	if err := w.Delete(typeIndexKey(typ, id)); err != nil {
		return err
	}
	return w.Delete(thingRecordKey(id))
}

// ScanType iterates every thing of exactly typ (an unbound Isa scan).
func (m *ThingManager) ScanType(typ concept.TypeID, fn func(concept.Thing) (bool, error)) error {
	prefix := typeIndexPrefix(typ)
	it := m.read.Iterate(prefix, keyRangeEnd(prefix))
	defer it.Close()
	for it.Next() {
		id, err := decodeThingID(string(it.Key()[len(prefix):]))
		if err != nil {
			return err
		}
		thing, ok, err := m.Get(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		cont, err := fn(thing)
		if err != nil || !cont {
			return err
		}
	}
	return it.Err()
}

// ScanHasForward iterates every attribute owner owns.
func (m *ThingManager) ScanHasForward(owner concept.ThingID, fn func(attr concept.ThingID) (bool, error)) error {
	prefix := hasForwardPrefix(owner)
	it := m.read.Iterate(prefix, keyRangeEnd(prefix))
	defer it.Close()
	for it.Next() {
		attr, err := decodeThingID(string(it.Key()[len(prefix):]))
		if err != nil {
			return err
		}
		cont, err := fn(attr)
		if err != nil || !cont {
			return err
		}
	}
	return it.Err()
}

// ScanHasReverse iterates every owner that owns attr.
func (m *ThingManager) ScanHasReverse(attr concept.ThingID, fn func(owner concept.ThingID) (bool, error)) error {
	prefix := hasReversePrefix(attr)
	it := m.read.Iterate(prefix, keyRangeEnd(prefix))
	defer it.Close()
	for it.Next() {
		owner, err := decodeThingID(string(it.Key()[len(prefix):]))
		if err != nil {
			return err
		}
		cont, err := fn(owner)
		if err != nil || !cont {
			return err
		}
	}
	return it.Err()
}

// ScanAllHas iterates every owner/attribute edge in the store. Used
// only when a Has constraint's Match-time binding state leaves both
// sides unbound -- a full-namespace scan, not an indexed lookup.
func (m *ThingManager) ScanAllHas(fn func(owner, attr concept.ThingID) (bool, error)) error {
	prefix := []byte{prefixHasForward}
	it := m.read.Iterate(prefix, keyRangeEnd(prefix))
	defer it.Close()
	for it.Next() {
		rest := it.Key()[1:]
		owner, err := decodeThingID(string(rest[:10]))
		if err != nil {
			return err
		}
		attr, err := decodeThingID(string(rest[10:]))
		if err != nil {
			return err
		}
		cont, err := fn(owner, attr)
		if err != nil || !cont {
			return err
		}
	}
	return it.Err()
}

// ScanAllLinks iterates every relation/role/player edge in the store,
// the full-namespace fallback for a Links constraint with both
// relation and player unbound.
func (m *ThingManager) ScanAllLinks(fn func(relation concept.ThingID, role concept.TypeID, player concept.ThingID) (bool, error)) error {
	prefix := []byte{prefixLinksForward}
	it := m.read.Iterate(prefix, keyRangeEnd(prefix))
	defer it.Close()
	for it.Next() {
		rest := it.Key()[1:]
		relation, err := decodeThingID(string(rest[:10]))
		if err != nil {
			return err
		}
		role, err := decodeTypeL85(string(rest[10:15]))
		if err != nil {
			return err
		}
		player, err := decodeThingID(string(rest[15:]))
		if err != nil {
			return err
		}
		cont, err := fn(relation, role, player)
		if err != nil || !cont {
			return err
		}
	}
	return it.Err()
}

// ScanLinksForward iterates every (role, player) pair linked into relation.
func (m *ThingManager) ScanLinksForward(relation concept.ThingID, fn func(role concept.TypeID, player concept.ThingID) (bool, error)) error {
	prefix := linksForwardPrefix(relation)
	it := m.read.Iterate(prefix, keyRangeEnd(prefix))
	defer it.Close()
	for it.Next() {
		rest := it.Key()[len(prefix):]
		role, err := decodeTypeL85(string(rest[:5]))
		if err != nil {
			return err
		}
		player, err := decodeThingID(string(rest[5:]))
		if err != nil {
			return err
		}
		cont, err := fn(role, player)
		if err != nil || !cont {
			return err
		}
	}
	return it.Err()
}

// ScanLinksReverse iterates every (role, relation) pair player plays into.
func (m *ThingManager) ScanLinksReverse(player concept.ThingID, fn func(role concept.TypeID, relation concept.ThingID) (bool, error)) error {
	prefix := linksReversePrefix(player)
	it := m.read.Iterate(prefix, keyRangeEnd(prefix))
	defer it.Close()
	for it.Next() {
		rest := it.Key()[len(prefix):]
		role, err := decodeTypeL85(string(rest[:5]))
		if err != nil {
			return err
		}
		relation, err := decodeThingID(string(rest[5:]))
		if err != nil {
			return err
		}
		cont, err := fn(role, relation)
		if err != nil || !cont {
			return err
		}
	}
	return it.Err()
}
