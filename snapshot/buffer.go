package snapshot

import (
	"bytes"

	"github.com/google/btree"
)

// WriteBuffer is an ordered in-memory overlay of pending key/value
// writes, used inside a WriteSnapshot implementation (badgerstore's)
// to stage mutations before they are flushed into its backing
// transaction at commit. Keeping pending writes in key order (rather than an
// unordered map) means a range read over "buffered + committed" state
// can merge the two ordered sequences in a single pass, the same way
// the on-disk keyspace is already ordered (§6: "ordered byte-keyed
// storage").
type WriteBuffer struct {
	tree *btree.BTreeG[bufferedEntry]
}

type bufferedEntry struct {
	key     []byte
	value   []byte
	deleted bool
}

func bufferedEntryLess(a, b bufferedEntry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// NewWriteBuffer returns an empty buffer.
func NewWriteBuffer() *WriteBuffer {
	return &WriteBuffer{tree: btree.NewG(32, bufferedEntryLess)}
}

// Put stages a write.
func (b *WriteBuffer) Put(key, value []byte) {
	b.tree.ReplaceOrInsert(bufferedEntry{key: key, value: value})
}

// Delete stages a tombstone. Unlike simply removing any prior Put,
// this must be visible over an underlying committed value of the same
// key, so it is kept as an explicit tombstone entry rather than a
// tree deletion.
func (b *WriteBuffer) Delete(key []byte) {
	b.tree.ReplaceOrInsert(bufferedEntry{key: key, deleted: true})
}

// Get returns the buffered value for key and whether it is staged at
// all (found=false means "fall through to the underlying snapshot");
// when found is true and deleted is true, the key has been staged for
// deletion.
func (b *WriteBuffer) Get(key []byte) (value []byte, deleted bool, found bool) {
	entry, ok := b.tree.Get(bufferedEntry{key: key})
	if !ok {
		return nil, false, false
	}
	return entry.value, entry.deleted, true
}

// Len returns the number of staged entries (puts and deletes).
func (b *WriteBuffer) Len() int { return b.tree.Len() }

// Writer is the narrow write surface Flush needs: just enough to
// replay staged entries into an underlying transaction, without
// pulling in the rest of the WriteSnapshot contract (a WriteSnapshot
// that embeds its own WriteBuffer flushes into its backing
// transaction, not into itself).
type Writer interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Flush applies every staged entry to w, in key order, and clears the
// buffer. Errors abort the flush immediately, leaving the remaining
// entries staged.
func (b *WriteBuffer) Flush(w Writer) error {
	var flushErr error
	var applied []bufferedEntry
	b.tree.Ascend(func(entry bufferedEntry) bool {
		if entry.deleted {
			flushErr = w.Delete(entry.key)
		} else {
			flushErr = w.Put(entry.key, entry.value)
		}
		if flushErr != nil {
			return false
		}
		applied = append(applied, entry)
		return true
	})
	for _, entry := range applied {
		b.tree.Delete(entry)
	}
	return flushErr
}

// Range iterates staged entries in [start, end) key order. A nil end
// means unbounded above.
func (b *WriteBuffer) Range(start, end []byte, fn func(key, value []byte, deleted bool) bool) {
	visit := func(entry bufferedEntry) bool {
		return fn(entry.key, entry.value, entry.deleted)
	}
	if end == nil {
		b.tree.AscendGreaterOrEqual(bufferedEntry{key: start}, visit)
		return
	}
	b.tree.AscendRange(bufferedEntry{key: start}, bufferedEntry{key: end}, visit)
}
