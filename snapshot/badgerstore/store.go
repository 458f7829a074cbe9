// Package badgerstore is a concrete snapshot.Store backed by
// dgraph-io/badger/v4, grounded on the teacher's
// datalog/storage.BadgerStore (same db.NewTransaction/txn.Set/
// txn.Commit shape), generalised from a fixed datom key scheme to an
// opaque byte-keyed store since this layer knows nothing about the
// type/thing encoding above it.
package badgerstore

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/wbrown/typeql-engine/snapshot"
)

// Store is a badger-backed snapshot.Store.
type Store struct {
	db *badger.DB

	seq atomic.Uint64

	// schemaMu serialises schema snapshots: "exclusive lock-on-commit
	// against concurrent schema writers" (§5). Ordinary write
	// snapshots do not take this lock.
	schemaMu sync.Mutex
}

// Open opens (creating if absent) a badger database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) OpenRead(ctx context.Context) (snapshot.ReadSnapshot, error) {
	txn := s.db.NewTransaction(false)
	return &readSnapshot{txn: txn, seq: snapshot.SeqNum(s.seq.Load())}, nil
}

func (s *Store) OpenWrite(ctx context.Context) (snapshot.WriteSnapshot, error) {
	txn := s.db.NewTransaction(true)
	return &writeSnapshot{
		readSnapshot: readSnapshot{txn: txn, seq: snapshot.SeqNum(s.seq.Load())},
		store:        s,
		buf:          snapshot.NewWriteBuffer(),
	}, nil
}

func (s *Store) OpenSchema(ctx context.Context) (snapshot.SchemaSnapshot, error) {
	s.schemaMu.Lock()
	txn := s.db.NewTransaction(true)
	return &schemaSnapshot{
		writeSnapshot: writeSnapshot{
			readSnapshot: readSnapshot{txn: txn, seq: snapshot.SeqNum(s.seq.Load())},
			store:        s,
			buf:          snapshot.NewWriteBuffer(),
		},
	}, nil
}

type readSnapshot struct {
	txn *badger.Txn
	seq snapshot.SeqNum
}

func (r *readSnapshot) Get(key []byte) ([]byte, error) {
	item, err := r.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (r *readSnapshot) Iterate(start, end []byte) snapshot.Iterator {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := r.txn.NewIterator(opts)
	it.Seek(start)
	return &iterator{it: it, end: end, first: true}
}

func (r *readSnapshot) SequenceNumber() snapshot.SeqNum { return r.seq }

func (r *readSnapshot) Close() error {
	r.txn.Discard()
	return nil
}

// writeSnapshot stages every Put/Delete in an in-memory
// snapshot.WriteBuffer rather than against the badger transaction
// directly: Get and Iterate consult the buffer first so a read within
// the same snapshot sees its own pending writes (ThingManager.nextID
// and PutAttribute's dedup lookup both depend on this), and Commit
// replays the buffer into the transaction immediately before
// txn.Commit so the two stay atomic together.
type writeSnapshot struct {
	readSnapshot
	store *Store
	buf   *snapshot.WriteBuffer
}

func (w *writeSnapshot) Put(key, value []byte) error {
	w.buf.Put(key, value)
	return nil
}

func (w *writeSnapshot) Delete(key []byte) error {
	w.buf.Delete(key)
	return nil
}

// Get resolves key against the pending write buffer before falling
// through to the committed transaction view, so a write snapshot
// observes its own not-yet-flushed writes.
func (w *writeSnapshot) Get(key []byte) ([]byte, error) {
	if value, deleted, found := w.buf.Get(key); found {
		if deleted {
			return nil, nil
		}
		return value, nil
	}
	return w.readSnapshot.Get(key)
}

// Iterate merges the buffered range over the underlying transaction's
// view, in key order, with a buffered entry (put or tombstone)
// shadowing a committed entry of the same key.
func (w *writeSnapshot) Iterate(start, end []byte) snapshot.Iterator {
	var staged []stagedEntry
	w.buf.Range(start, end, func(key, value []byte, deleted bool) bool {
		staged = append(staged, stagedEntry{key: key, value: value, deleted: deleted})
		return true
	})
	return &mergedIterator{staged: staged, under: w.readSnapshot.Iterate(start, end)}
}

// txnWriter adapts a badger transaction to snapshot.Writer, the
// narrow interface WriteBuffer.Flush replays staged entries into.
type txnWriter struct{ txn *badger.Txn }

func (t txnWriter) Put(key, value []byte) error {
	return t.txn.Set(key, value)
}

func (t txnWriter) Delete(key []byte) error {
	err := t.txn.Delete(key)
	if err == badger.ErrKeyNotFound {
		return nil
	}
	return err
}

func (w *writeSnapshot) Commit() (snapshot.SeqNum, error) {
	if err := w.buf.Flush(txnWriter{txn: w.txn}); err != nil {
		return 0, err
	}
	if err := w.txn.Commit(); err != nil {
		return 0, err
	}
	next := w.store.seq.Add(1)
	return snapshot.SeqNum(next), nil
}

func (w *writeSnapshot) Abort() error {
	w.txn.Discard()
	return nil
}

type schemaSnapshot struct {
	writeSnapshot
}

func (s *schemaSnapshot) Commit() (snapshot.SeqNum, error) {
	defer s.store.schemaMu.Unlock()
	return s.writeSnapshot.Commit()
}

func (s *schemaSnapshot) Abort() error {
	defer s.store.schemaMu.Unlock()
	return s.writeSnapshot.Abort()
}

type iterator struct {
	it    *badger.Iterator
	end   []byte
	first bool
	key   []byte
	value []byte
	err   error
}

func (i *iterator) Next() bool {
	if !i.first {
		i.it.Next()
	}
	i.first = false

	if !i.it.Valid() {
		return false
	}
	item := i.it.Item()
	key := item.KeyCopy(nil)
	if i.end != nil && bytes.Compare(key, i.end) >= 0 {
		return false
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		i.err = err
		return false
	}
	i.key, i.value = key, val
	return true
}

func (i *iterator) Key() []byte   { return i.key }
func (i *iterator) Value() []byte { return i.value }
func (i *iterator) Err() error    { return i.err }
func (i *iterator) Close() error {
	i.it.Close()
	return nil
}

type stagedEntry struct {
	key     []byte
	value   []byte
	deleted bool
}

// mergedIterator walks a write snapshot's staged buffer entries
// (already ordered ascending by snapshot.WriteBuffer.Range) merged
// with the underlying committed-transaction iterator, also ascending.
// On a key present in both, the staged entry wins and the underlying
// one is silently consumed; a staged tombstone is skipped rather than
// surfaced as a key.
type mergedIterator struct {
	staged []stagedEntry
	sIdx   int

	under         snapshot.Iterator
	underOK       bool
	underAdvanced bool

	key, value []byte
}

func (m *mergedIterator) Next() bool {
	for {
		if !m.underAdvanced {
			m.underOK = m.under.Next()
			m.underAdvanced = true
		}

		haveStaged := m.sIdx < len(m.staged)
		if !haveStaged && !m.underOK {
			return false
		}

		fromStaged := haveStaged && (!m.underOK || bytes.Compare(m.staged[m.sIdx].key, m.under.Key()) <= 0)
		if !fromStaged {
			m.key, m.value = m.under.Key(), m.under.Value()
			m.underAdvanced = false
			return true
		}

		entry := m.staged[m.sIdx]
		m.sIdx++
		if m.underOK && bytes.Equal(entry.key, m.under.Key()) {
			// Same key staged and committed: staged wins, committed
			// entry is consumed without being emitted.
			m.underAdvanced = false
		}
		if entry.deleted {
			continue
		}
		m.key, m.value = entry.key, entry.value
		return true
	}
}

func (m *mergedIterator) Key() []byte   { return m.key }
func (m *mergedIterator) Value() []byte { return m.value }
func (m *mergedIterator) Err() error    { return m.under.Err() }
func (m *mergedIterator) Close() error  { return m.under.Close() }
