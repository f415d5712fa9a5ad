package todostore

import (
	"errors"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
)

func TestEncodeTodo_RoundTrip(t *testing.T) {
	tests := []*Todo{
		{ID: 1, Title: "Buy milk"},
		{ID: 2, Title: "", Completed: true},
		{ID: 1 << 40, Title: "Привет, мир", Completed: false},
	}
	for _, todo := range tests {
		raw, err := EncodeTodo(nil, todo, 0)
		if err != nil {
			t.Fatalf("EncodeTodo(%v) failed: %v", todo, err)
		}
		if len(raw) != EncodedTodoSize(todo) {
			t.Errorf("len(EncodeTodo(%v)) = %d, EncodedTodoSize = %d", todo, len(raw), EncodedTodoSize(todo))
		}
		deepEqual(t, must(DecodeTodo(raw)), todo)
	}
}

func TestEncodeTodo_AppendsToBuf(t *testing.T) {
	prefix := []byte("hdr")
	raw := must(EncodeTodo(prefix, &Todo{ID: 3, Title: "x"}, DefaultMaxValueSize))
	if string(raw[:3]) != "hdr" {
		t.Fatalf("prefix clobbered: %x", raw)
	}
	deepEqual(t, must(DecodeTodo(raw[3:])), &Todo{ID: 3, Title: "x"})
}

func TestEncodeTodo_SizeLimit(t *testing.T) {
	// find the longest ASCII title that still fits
	var fits int
	for n := 0; n < 200; n++ {
		if EncodedTodoSize(&Todo{ID: 1, Title: strings.Repeat("a", n)}) <= DefaultMaxValueSize {
			fits = n
		}
	}
	if fits == 0 {
		t.Fatalf("no title fits into %d bytes", DefaultMaxValueSize)
	}

	ok := &Todo{ID: 1, Title: strings.Repeat("a", fits)}
	raw, err := EncodeTodo(nil, ok, DefaultMaxValueSize)
	if err != nil {
		t.Fatalf("EncodeTodo(%d-byte title) failed: %v", fits, err)
	}
	if len(raw) > DefaultMaxValueSize {
		t.Fatalf("len = %d, wanted <= %d", len(raw), DefaultMaxValueSize)
	}

	tooLong := &Todo{ID: 1, Title: strings.Repeat("a", fits+1)}
	buf := []byte("keep")
	out, err := EncodeTodo(buf, tooLong, DefaultMaxValueSize)
	iserr(t, err, ErrEncoding)
	var ee *EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %T, wanted *EncodingError", err)
	}
	if ee.Max != DefaultMaxValueSize || ee.Size != EncodedTodoSize(tooLong) || ee.ID != 1 {
		t.Errorf("EncodingError = %+v", *ee)
	}
	if string(out) != "keep" {
		t.Errorf("EncodeTodo returned %q on failure, wanted buf unchanged", out)
	}

	// maxSize 0 disables the check
	must(EncodeTodo(nil, &Todo{ID: 1, Title: strings.Repeat("a", 500)}, 0))
}

func TestDecodeTodo_Corruption(t *testing.T) {
	raw := must(EncodeTodo(nil, &Todo{ID: 7, Title: "hello"}, 0))

	t.Run("checksum", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		bad[4] ^= 0xFF
		_, err := DecodeTodo(bad)
		var de *DataError
		if !errors.As(err, &de) || !strings.Contains(err.Error(), "checksum mismatch") {
			t.Fatalf("DecodeTodo(corrupted) err = %v, wanted checksum DataError", err)
		}
	})
	t.Run("unsupported flags", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		bad[0] = 0x40
		_, err := DecodeTodo(bad)
		if err == nil || !strings.Contains(err.Error(), "unsupported flags") {
			t.Fatalf("DecodeTodo err = %v", err)
		}
	})
	t.Run("unsupported version", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		bad[0] = byte(vfChecksumBit)
		_, err := DecodeTodo(bad)
		if err == nil || !strings.Contains(err.Error(), "unsupported format version") {
			t.Fatalf("DecodeTodo err = %v", err)
		}
	})
	t.Run("truncated", func(t *testing.T) {
		_, err := DecodeTodo(raw[:len(raw)-3])
		if err == nil {
			t.Fatalf("DecodeTodo(truncated) succeeded")
		}
	})
	t.Run("trailing bytes", func(t *testing.T) {
		_, err := DecodeTodo(append(append([]byte(nil), raw...), 0))
		if err == nil || !strings.Contains(err.Error(), "trailing") {
			t.Fatalf("DecodeTodo err = %v", err)
		}
	})
	t.Run("too short", func(t *testing.T) {
		_, err := DecodeTodo([]byte{1})
		if err == nil {
			t.Fatalf("DecodeTodo(1 byte) succeeded")
		}
	})
}

func TestEncodeTodo_InvalidUTF8(t *testing.T) {
	buf := []byte("keep")
	out, err := EncodeTodo(buf, &Todo{ID: 1, Title: "bad\xff\xfetitle"}, DefaultMaxValueSize)
	iserr(t, err, ErrInvalidArgument)
	if string(out) != "keep" {
		t.Errorf("EncodeTodo returned %q on failure, wanted buf unchanged", out)
	}

	// checked regardless of the size bound
	_, err = EncodeTodo(nil, &Todo{ID: 1, Title: "\xc3"}, 0)
	iserr(t, err, ErrInvalidArgument)
}

func TestDecodeTodo_InvalidUTF8(t *testing.T) {
	// assembled by hand since EncodeTodo refuses such titles
	data := encodeTodoData(nil, &Todo{ID: 9, Title: "bad\xff\xfetitle"})
	var bb bytesBuilder
	bb.AppendUvarint(uint64(vfDefault))
	bb.AppendUvarint(uint64(len(data)))
	_, _ = bb.Write(data)
	bb.AppendFixedUint64(xxhash.Sum64(bb.Buf))

	_, err := DecodeTodo(bb.Buf)
	var de *DataError
	if !errors.As(err, &de) || !strings.Contains(err.Error(), "not valid UTF-8") {
		t.Fatalf("DecodeTodo err = %v, wanted UTF-8 DataError", err)
	}
}

func TestIDKey(t *testing.T) {
	k := appendIDKey(nil, 0x0102)
	deepEqual(t, k, []byte{0, 0, 0, 0, 0, 0, 1, 2})
	if id := must(decodeIDKey(k)); id != 0x0102 {
		t.Fatalf("decodeIDKey = %d", id)
	}
	if _, err := decodeIDKey([]byte{1, 2}); err == nil {
		t.Fatalf("decodeIDKey(short) succeeded")
	}
	if string(appendIDKey(nil, 255)) >= string(appendIDKey(nil, 256)) {
		t.Fatalf("key order does not match id order")
	}
}

func TestTodo_String(t *testing.T) {
	if s := (&Todo{ID: 4, Title: "x", Completed: true}).String(); s != "#4 [x] x" {
		t.Fatalf("String() = %q", s)
	}
}
