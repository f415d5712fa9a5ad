package todostore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"iter"
)

const (
	todosBucket = "todos"
	metaBucket  = "meta"
)

var nextIDKey = []byte("next_id")

func prepareBuckets(tx *Tx) error {
	tx.markWritten()
	for _, name := range []string{todosBucket, metaBucket} {
		if _, err := tx.stx.CreateBucket(name); err != nil {
			return fmt.Errorf("creating bucket %s: %w", name, err)
		}
	}
	return nil
}

func (tx *Tx) todos() storageBucket {
	return nonNil(tx.stx.Bucket(todosBucket))
}

func (tx *Tx) meta() storageBucket {
	return nonNil(tx.stx.Bucket(metaBucket))
}

func (tx *Tx) idKey(id uint64) []byte {
	return appendIDKey(tx.keyBuf[:0], id)
}

func (tx *Tx) isVerboseLoggingEnabled() bool {
	return tx.db.verbose
}

// Get returns the todo with the given id, or nil if there is none.
func (tx *Tx) Get(id uint64) (*Todo, error) {
	raw := tx.todos().Get(tx.idKey(id))
	if raw == nil {
		if tx.isVerboseLoggingEnabled() {
			tx.db.logf("db: GET.NOTFOUND %s/%d", todosBucket, id)
		}
		return nil, nil
	}
	t, err := decodeStoredTodo(id, raw)
	if err != nil {
		return nil, err
	}
	if tx.isVerboseLoggingEnabled() {
		tx.db.logf("db: GET %s/%d => %s", todosBucket, id, loggableTodo(t))
	}
	return t, nil
}

// Exists reports whether a todo with the given id is present.
func (tx *Tx) Exists(id uint64) bool {
	return tx.todos().Get(tx.idKey(id)) != nil
}

// Insert stores t under t.ID, replacing any existing todo with that id.
func (tx *Tx) Insert(t *Todo) error {
	// Bolt keeps a reference to the value until commit, so each put gets a fresh buffer.
	valueRaw, err := EncodeTodo(nil, t, tx.db.maxValueSize)
	if err != nil {
		return err
	}

	tx.markWritten()
	err = tx.todos().Put(tx.idKey(t.ID), valueRaw)
	if err != nil {
		return recordErr(todosBucket, t.ID, "put", err)
	}
	if tx.isVerboseLoggingEnabled() {
		tx.db.logf("db: PUT %s/%d => %s", todosBucket, t.ID, loggableTodo(t))
	}
	return nil
}

// Remove deletes the todo with the given id. Removing a missing id is a
// no-op and returns false.
func (tx *Tx) Remove(id uint64) (bool, error) {
	keyRaw := tx.idKey(id)
	buck := tx.todos()
	if buck.Get(keyRaw) == nil {
		if tx.isVerboseLoggingEnabled() {
			tx.db.logf("db: DELETE.NOOP %s/%d", todosBucket, id)
		}
		return false, nil
	}

	tx.markWritten()
	err := buck.Delete(keyRaw)
	if err != nil {
		return false, recordErr(todosBucket, id, "delete", err)
	}
	if tx.isVerboseLoggingEnabled() {
		tx.db.logf("db: DELETE %s/%d", todosBucket, id)
	}
	return true, nil
}

// Clear removes every todo and returns how many there were. The id counter
// is kept, so ids are not reused afterwards.
func (tx *Tx) Clear() (int, error) {
	n := tx.Len()
	next := tx.NextID()

	tx.markWritten()
	if err := tx.stx.DeleteBucket(todosBucket); err != nil {
		return 0, fmt.Errorf("deleting bucket %s: %w", todosBucket, err)
	}
	if _, err := tx.stx.CreateBucket(todosBucket); err != nil {
		return 0, fmt.Errorf("creating bucket %s: %w", todosBucket, err)
	}
	// NextID falls back on LastID, which is gone now.
	var buf [binary.MaxVarintLen64]byte
	if err := tx.meta().Put(nextIDKey, appendUvarint(buf[:0], next)); err != nil {
		return 0, fmt.Errorf("todostore: saving %s: %w", nextIDKey, err)
	}
	if tx.isVerboseLoggingEnabled() {
		tx.db.logf("db: CLEAR %s (%d rows)", todosBucket, n)
	}
	return n, nil
}

// Len returns the number of todos in the store.
func (tx *Tx) Len() int {
	return tx.todos().KeyCount()
}

// Iterate returns all todos in ascending id order. The sequence reads
// lazily from the transaction's snapshot and can be ranged over repeatedly
// while the transaction is open.
func (tx *Tx) Iterate() iter.Seq2[uint64, *Todo] {
	return tx.IterateRange(AllIDs())
}

// LastID returns the largest id present in the store, or 0 when it's empty.
func (tx *Tx) LastID() uint64 {
	k, _ := tx.todos().Cursor().Last()
	if k == nil {
		return 0
	}
	return must(decodeIDKey(k))
}

// NextID returns the id the next created todo will get. Ids are never
// reused, even after the todo holding the largest id is deleted.
func (tx *Tx) NextID() uint64 {
	next := uint64(1)
	if raw := tx.meta().Get(nextIDKey); raw != nil {
		v, n := binary.Uvarint(raw)
		if n <= 0 {
			panic(dataErrf(raw, 0, nil, "invalid %s/%s", metaBucket, nextIDKey))
		}
		next = v
	}
	// Guards against a counter older than the data, e.g. a file written
	// before the counter existed.
	if last := tx.LastID(); last >= next {
		next = last + 1
	}
	return next
}

func (tx *Tx) allocateID() (uint64, error) {
	id := tx.NextID()
	if id == 0 {
		return 0, fmt.Errorf("todostore: id space exhausted")
	}
	tx.markWritten()
	var buf [binary.MaxVarintLen64]byte
	err := tx.meta().Put(nextIDKey, appendUvarint(buf[:0], id+1))
	if err != nil {
		return 0, fmt.Errorf("todostore: saving %s: %w", nextIDKey, err)
	}
	return id, nil
}

func decodeStoredTodo(id uint64, raw []byte) (*Todo, error) {
	t, err := DecodeTodo(raw)
	if err != nil {
		return nil, recordErr(todosBucket, id, "decode", err)
	}
	if t.ID != id {
		return nil, recordErr(todosBucket, id, "decode", dataErrf(raw, 0, nil, "stored todo has id %d", t.ID))
	}
	return t, nil
}

func loggableTodo(t *Todo) string {
	if t == nil {
		return "<none>"
	}
	return string(must(json.Marshal(t)))
}
