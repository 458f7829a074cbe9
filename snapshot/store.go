// Package snapshot defines the MVCC storage contract (§6): read,
// write and schema snapshots over an externally-provided ordered
// byte-keyed store, plus a TypeCache that shares an immutable Schema
// view per read sequence number.
package snapshot

import "context"

// SeqNum is a monotonically increasing snapshot sequence number (§3,
// §6: "a monotonic sequence number").
type SeqNum uint64

// Store is the storage contract consumers must provide (§6):
// open_snapshot_{read,write,schema} plus get/iterate/put/delete/commit.
type Store interface {
	OpenRead(ctx context.Context) (ReadSnapshot, error)
	OpenWrite(ctx context.Context) (WriteSnapshot, error)
	OpenSchema(ctx context.Context) (SchemaSnapshot, error)
	Close() error
}

// Iterator walks an ordered byte-key range [start, end) (§6: "ordered
// byte-keyed storage with prefix iteration").
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// ReadSnapshot is an immutable view of the store as of SequenceNumber
// (§3: "Read snapshots are immutable views").
type ReadSnapshot interface {
	Get(key []byte) ([]byte, error)
	Iterate(start, end []byte) Iterator
	SequenceNumber() SeqNum
	Close() error
}

// WriteSnapshot buffers writes and commits them atomically at a new
// sequence number, or discards them on Abort (§3, §5).
type WriteSnapshot interface {
	ReadSnapshot
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() (SeqNum, error)
	Abort() error
}

// SchemaSnapshot is a write snapshot additionally permitted to mutate
// the schema (§3: "A schema snapshot is a write snapshot that may
// mutate the schema"). Schema commits take an exclusive lock against
// concurrent schema writers (§5).
type SchemaSnapshot interface {
	WriteSnapshot
}
