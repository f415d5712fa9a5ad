package todostore

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDataError_ErrorAndUnwrap(t *testing.T) {
	t.Run("small data", func(t *testing.T) {
		inner := errors.New("inner")
		err := dataErrf([]byte{0xAA, 0xBB}, 1, inner, "oops")
		var de *DataError
		if !errors.As(err, &de) {
			t.Fatalf("err = %T, wanted *DataError", err)
		}
		if !errors.Is(err, inner) {
			t.Fatalf("errors.Is(err, inner) = false, wanted true")
		}
		s := err.Error()
		if !strings.Contains(s, "oops") || !strings.Contains(s, "inner") || !strings.Contains(s, "(2)") {
			t.Fatalf("err.Error() = %q, wanted message with oops/inner/(2)", s)
		}
	})

	t.Run("large data includes prefix+suffix", func(t *testing.T) {
		data := make([]byte, 200)
		for i := range data {
			data[i] = byte(i)
		}
		err := dataErrf(data, 0, nil, "oops")
		s := err.Error()
		if !strings.Contains(s, "(200)") || !strings.Contains(s, "...") {
			t.Fatalf("err.Error() = %q, wanted message with (200) and ...", s)
		}
	})
}

func TestRecordError_ErrorAndUnwrap(t *testing.T) {
	err := recordErr(todosBucket, 12, "update", ErrNotFound)
	if s := err.Error(); s != "update todos/12: not found" {
		t.Fatalf("err.Error() = %q", s)
	}
	iserr(t, err, ErrNotFound)

	wrapped := fmt.Errorf("ctx: %w", err)
	var re *RecordError
	if !errors.As(wrapped, &re) || re.ID != 12 || re.Bucket != todosBucket {
		t.Fatalf("errors.As = %+v", re)
	}

	if s := (&RecordError{Bucket: "b", ID: 1}).Error(); s != "b/1" {
		t.Fatalf("bare RecordError = %q", s)
	}
}

func TestEncodingError(t *testing.T) {
	err := error(&EncodingError{ID: 3, Size: 120, Max: 100})
	iserr(t, err, ErrEncoding)
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("EncodingError matches ErrNotFound")
	}
	if s := err.Error(); !strings.Contains(s, "120") || !strings.Contains(s, "100") {
		t.Fatalf("err.Error() = %q", s)
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{recordErr(todosBucket, 1, "get", ErrNotFound), true},
		{invalidArgf("page %d", 0), true},
		{&EncodingError{}, true},
		{dataErrf(nil, 0, nil, "corrupt"), false},
		{errors.New("disk on fire"), false},
	}
	for _, tt := range tests {
		if got := IsRecoverable(tt.err); got != tt.want {
			t.Errorf("IsRecoverable(%v) = %v, wanted %v", tt.err, got, tt.want)
		}
	}
}
