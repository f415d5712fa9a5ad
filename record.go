package todostore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultMaxValueSize is the encoded size limit used when Options.MaxValueSize is zero.
const DefaultMaxValueSize = 100

type Todo struct {
	ID        uint64 `msgpack:"i" json:"id"`
	Title     string `msgpack:"t" json:"title"`
	Completed bool   `msgpack:"c" json:"completed"`
}

func (t *Todo) String() string {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	return fmt.Sprintf("#%d [%s] %s", t.ID, mark, t.Title)
}

type valueFlags uint64

const (
	vfVerBit0 = valueFlags(1 << iota)
	vfVerBit1
	vfChecksumBit

	vfVerMask       = (vfVerBit0 | vfVerBit1)
	vfVer1          = vfVerBit0
	vfSupportedMask = (vfVer1 | vfChecksumBit)
	vfDefault       = (vfVer1 | vfChecksumBit)

	checksumSize = 8

	// flags, data size, and a 1-byte msgpack value at the very least
	minValueSize = 3
)

func (vf valueFlags) ver() valueFlags {
	return vf & vfVerMask
}

func (vf valueFlags) hasChecksum() bool {
	return vf&vfChecksumBit != 0
}

// EncodeTodo appends the encoded form of t to buf:
//
//	flags:uvarint dataSize:uvarint data:msgpack checksum:64?
//
// The checksum is a big-endian xxhash64 of everything before it. If the
// encoded value would exceed maxSize bytes (when maxSize > 0), EncodeTodo
// returns buf unchanged and an *EncodingError. Titles must be valid UTF-8.
func EncodeTodo(buf []byte, t *Todo, maxSize int) ([]byte, error) {
	if !utf8.ValidString(t.Title) {
		return buf, invalidArgf("todo %d: title is not valid UTF-8", t.ID)
	}
	var scratch [128]byte
	data := encodeTodoData(scratch[:0], t)

	start := len(buf)
	bb := bytesBuilder{buf}
	bb.AppendUvarint(uint64(vfDefault))
	bb.AppendUvarint(uint64(len(data)))
	_, _ = bb.Write(data)
	bb.AppendFixedUint64(xxhash.Sum64(bb.Buf[start:]))

	size := len(bb.Buf) - start
	if maxSize > 0 && size > maxSize {
		return buf[:start], &EncodingError{ID: t.ID, Size: size, Max: maxSize}
	}
	return bb.Buf, nil
}

// EncodedTodoSize returns the number of bytes EncodeTodo would produce for t.
func EncodedTodoSize(t *Todo) int {
	var scratch [128]byte
	n := len(encodeTodoData(scratch[:0], t))
	var tmp [binary.MaxVarintLen64]byte
	return 1 + binary.PutUvarint(tmp[:], uint64(n)) + n + checksumSize
}

func encodeTodoData(buf []byte, t *Todo) []byte {
	bb := bytesBuilder{buf}
	enc := msgpack.GetEncoder()
	enc.ResetDict(&bb, nil)
	enc.UseCompactInts(true)
	err := enc.Encode(t)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("failed to encode %T using MsgPack: %w", t, err))
	}
	return bb.Buf
}

func DecodeTodo(data []byte) (*Todo, error) {
	if len(data) < minValueSize {
		return nil, dataErrf(data, 0, nil, "invalid value: at least %d bytes required", minValueSize)
	}
	d := makeByteDecoder(data)

	v, err := d.Uvarint()
	if err != nil {
		return nil, err
	}
	flags := valueFlags(v)
	if (flags &^ vfSupportedMask) != 0 {
		return nil, dataErrf(data, 0, nil, "invalid value: unsupported flags %x", v)
	}
	if flags.ver() != vfVer1 {
		return nil, dataErrf(data, 0, nil, "invalid value: unsupported format version %d", flags.ver())
	}

	dataSize, err := d.Uvarinti()
	if err != nil {
		return nil, err
	}
	bodyOff := d.Off()
	body, err := d.Raw(dataSize)
	if err != nil {
		return nil, err
	}

	if flags.hasChecksum() {
		end := d.Off()
		sum, err := d.FixedUint64()
		if err != nil {
			return nil, err
		}
		if actual := xxhash.Sum64(data[:end]); actual != sum {
			return nil, dataErrf(data, end, nil, "invalid value: checksum mismatch, stored %016x, computed %016x", sum, actual)
		}
	}
	if len(d.Buf) != 0 {
		return nil, dataErrf(data, d.Off(), nil, "invalid value: %d trailing bytes", len(d.Buf))
	}

	t := new(Todo)
	var r bytes.Reader
	r.Reset(body)
	dec := msgpack.GetDecoder()
	dec.ResetDict(&r, nil)
	err = dec.Decode(t)
	msgpack.PutDecoder(dec)
	if err != nil {
		return nil, dataErrf(data, bodyOff, err, "failed to decode msgpack into %T", t)
	}
	if !utf8.ValidString(t.Title) {
		return nil, dataErrf(data, bodyOff, nil, "invalid value: title is not valid UTF-8")
	}
	return t, nil
}

const idKeySize = 8

// appendIDKey encodes id as a big-endian uint64, so that byte order of keys
// matches numeric order of ids.
func appendIDKey(buf []byte, id uint64) []byte {
	return binary.BigEndian.AppendUint64(buf, id)
}

func decodeIDKey(k []byte) (uint64, error) {
	if len(k) != idKeySize {
		return 0, dataErrf(k, 0, nil, "invalid key: %d bytes, wanted %d", len(k), idKeySize)
	}
	return binary.BigEndian.Uint64(k), nil
}
