package todostore

import (
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpHeaders = DumpFlags(1 << iota)
	DumpRows
	DumpStats
	DumpRaw

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the store contents for debugging. Undecodable values are
// reported inline instead of failing the dump.
func (tx *Tx) Dump(f DumpFlags) string {
	var buf strings.Builder
	s := tx.Stats()

	if f.Contains(DumpHeaders) {
		fmt.Fprintln(&buf, dumpSep1)
		fmt.Fprintf(&buf, "%s (%d rows, next id %d)\n", todosBucket, s.Todos, s.NextID)
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(&buf, "%s.stats: data_size = %d, data_alloc = %d, db_size = %d\n", todosBucket, s.DataSize, s.DataAlloc, s.DBSize)
	}
	if f.Contains(DumpRows) {
		if f.Contains(DumpStats) {
			fmt.Fprintln(&buf, dumpSep2)
		}
		c := tx.todos().Cursor()
		var rowPos int
		for k, v := c.First(); k != nil; k, v = c.Next() {
			rowPos++
			tx.dumpRow(&buf, f, rowPos, k, v)
		}
	}
	return buf.String()
}

func (tx *Tx) dumpRow(w *strings.Builder, f DumpFlags, rowPos int, k, v []byte) {
	prefix := fmt.Sprintf("%s.%d", todosBucket, rowPos)
	if f.Contains(DumpRaw) {
		fmt.Fprintf(w, "%s: %s => %s\n", rowpad(prefix), hexstr(k), hexstr(v))
	}
	id, err := decodeIDKey(k)
	if err != nil {
		fmt.Fprintf(w, "%s = ** ERROR: %v\n", prefix, err)
		return
	}
	t, err := decodeStoredTodo(id, v)
	if err != nil {
		fmt.Fprintf(w, "%s = ** ERROR: %v\n", prefix, err)
		return
	}
	fmt.Fprintf(w, "%s = (%dB) %s\n", prefix, len(v), loggableTodo(t))
}

func rowpad(s string) string {
	return rpad(s, 12, ' ')
}
