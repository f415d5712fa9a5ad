package todostore

import (
	"context"
	"iter"
	"log/slog"
	"math"
)

const (
	debugLogScans = false
)

// IDRange is an inclusive range of ids, optionally walked in descending order.
// The zero value covers only id 0; use AllIDs for a full scan.
type IDRange struct {
	Min     uint64
	Max     uint64
	Reverse bool
}

func AllIDs() IDRange                        { return IDRange{Min: 0, Max: math.MaxUint64} }
func IDsFrom(lower uint64) IDRange           { return IDRange{Min: lower, Max: math.MaxUint64} }
func IDsUpTo(upper uint64) IDRange           { return IDRange{Min: 0, Max: upper} }
func IDsBetween(lower, upper uint64) IDRange { return IDRange{Min: lower, Max: upper} }
func (r IDRange) Reversed() IDRange          { r.Reverse = true; return r }

func (r IDRange) Contains(id uint64) bool {
	return id >= r.Min && id <= r.Max
}

func (r *IDRange) start(c storageCursor, logger *slog.Logger) ([]byte, []byte) {
	if r.Reverse && r.Max == math.MaxUint64 || !r.Reverse && r.Min == 0 {
		return firstLast(c, r.Reverse)
	}
	var k, v []byte
	if r.Reverse {
		limit := appendIDKey(nil, r.Max+1)
		k, v = c.Seek(limit)
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		if debugLogScans {
			logger.LogAttrs(context.Background(), slog.LevelDebug, "SEEK before", hexAttr("limit", limit), hexAttr("key", k))
		}
	} else {
		lower := appendIDKey(nil, r.Min)
		k, v = c.Seek(lower)
		if debugLogScans {
			logger.LogAttrs(context.Background(), slog.LevelDebug, "SEEK to lower", hexAttr("lower", lower), hexAttr("key", k))
		}
	}
	return k, v
}

// IterateRange returns the todos whose ids fall into r, in ascending id order
// (descending if r.Reverse). Corrupted values make the iteration panic with
// a *RecordError; Tx-managed calls turn that back into an error.
func (tx *Tx) IterateRange(r IDRange) iter.Seq2[uint64, *Todo] {
	return func(yield func(uint64, *Todo) bool) {
		if r.Min > r.Max {
			return
		}
		logger := tx.db.logger
		c := tx.todos().Cursor()
		for k, v := r.start(c, logger); k != nil; k, v = advance(c, r.Reverse) {
			id := must(decodeIDKey(k))
			if !r.Contains(id) {
				if debugLogScans {
					logger.LogAttrs(context.Background(), slog.LevelDebug, "BAIL on bound", slog.Uint64("id", id))
				}
				return
			}
			t := must(decodeStoredTodo(id, v))
			if !yield(id, t) {
				return
			}
		}
	}
}

// RemoveWhere deletes the todos in r for which pred returns true, or all of
// them when pred is nil, and returns the number removed. r.Reverse is ignored.
func (tx *Tx) RemoveWhere(r IDRange, pred func(*Todo) bool) (int, error) {
	if r.Min > r.Max {
		return 0, nil
	}
	c := tx.todos().Cursor()
	var n int
	for k, v := c.Seek(appendIDKey(nil, r.Min)); k != nil; {
		id, err := decodeIDKey(k)
		if err != nil {
			return n, err
		}
		if !r.Contains(id) {
			break
		}
		if pred != nil {
			t, err := decodeStoredTodo(id, v)
			if err != nil {
				return n, err
			}
			if !pred(t) {
				k, v = c.Next()
				continue
			}
		}

		tx.markWritten()
		if err := c.Delete(); err != nil {
			return n, recordErr(todosBucket, id, "delete", err)
		}
		n++
		if tx.isVerboseLoggingEnabled() {
			tx.db.logf("db: DELETE %s/%d", todosBucket, id)
		}
		// Bolt cursors may skip an item when Next follows Delete, so reposition.
		if id == math.MaxUint64 {
			break
		}
		k, v = c.Seek(appendIDKey(nil, id+1))
	}
	return n, nil
}
