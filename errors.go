package todostore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when an operation requires a record that doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for arguments outside of an operation's domain,
	// like page number 0.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEncoding matches every *EncodingError via errors.Is.
	ErrEncoding = errors.New("encoding error")
)

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	var data string
	if n <= prefixLen+suffixLen {
		data = fmt.Sprintf("(%d) %x", n, e.Data)
	} else {
		data = fmt.Sprintf("(%d) %x...%x", n, e.Data[:prefixLen], e.Data[n-suffixLen:])
	}
	if e.Err != nil {
		return fmt.Sprintf("%s at %d: %v: %s", e.Msg, e.Off, e.Err, data)
	} else {
		return fmt.Sprintf("%s at %d: %s", e.Msg, e.Off, data)
	}
}

// EncodingError means a record does not fit into the configured maximum
// encoded size. Nothing is truncated; the operation fails.
type EncodingError struct {
	ID   uint64
	Size int
	Max  int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("todo %d: encoded size %d exceeds maximum of %d bytes", e.ID, e.Size, e.Max)
}

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// RecordError attributes a failure to a specific record of a bucket.
type RecordError struct {
	Bucket string
	ID     uint64
	Op     string
	Err    error
}

func recordErr(bucket string, id uint64, op string, err error) error {
	return &RecordError{bucket, id, op, err}
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func (e *RecordError) Error() string {
	var buf strings.Builder
	if e.Op != "" {
		buf.WriteString(e.Op)
		buf.WriteByte(' ')
	}
	buf.WriteString(e.Bucket)
	buf.WriteByte('/')
	buf.WriteString(strconv.FormatUint(e.ID, 10))
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// IsRecoverable reports whether err is a caller mistake (missing todo, bad
// argument, oversized title) rather than a storage or data failure.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrEncoding)
}
