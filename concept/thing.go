package concept

import "github.com/wbrown/typeql-engine/value"

// ThingID identifies a materialized instance within a single store's
// keyspace. Zero is never issued by an allocator and is used as the
// "no thing" sentinel.
type ThingID uint64

// ThingKind distinguishes the two materializable instance shapes (§3):
// objects (entities and relations, identified purely by ID) and
// attributes (additionally identified by their value).
type ThingKind uint8

const (
	ObjectThing ThingKind = iota
	AttributeThing
)

func (k ThingKind) String() string {
	if k == AttributeThing {
		return "attribute"
	}
	return "object"
}

// Thing is a materialized instance: an object or an attribute. Two
// Put calls for the same type and value resolve to the same ThingID
// (§4.5's Put semantics), so Value is part of an attribute's identity
// rather than just a payload.
type Thing struct {
	ID    ThingID
	Type  TypeID
	Kind  ThingKind
	Value value.Value
}

func NewObject(id ThingID, typ TypeID) Thing {
	return Thing{ID: id, Type: typ, Kind: ObjectThing}
}

func NewAttribute(id ThingID, typ TypeID, v value.Value) Thing {
	return Thing{ID: id, Type: typ, Kind: AttributeThing, Value: v}
}
