package todostore

import (
	"iter"
	"math"
)

// Entry is a key-value pair of an ordered sequence.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// GetPage returns page pageNum (1-based) of seq, holding up to pageSize
// elements that follow the first (pageNum-1)*pageSize ones. A page past the
// end of seq, or pageSize == 0, is an empty (nil) page rather than an error.
// Page number 0 and negative sizes fail with ErrInvalidArgument.
//
// GetPage stops pulling from seq as soon as the page is full.
func GetPage[K, V any](seq iter.Seq2[K, V], pageNum, pageSize int) ([]Entry[K, V], error) {
	if pageNum < 1 {
		return nil, invalidArgf("page number %d, pages are numbered from 1", pageNum)
	}
	if pageSize < 0 {
		return nil, invalidArgf("negative page size %d", pageSize)
	}
	if pageSize == 0 {
		return nil, nil
	}
	if pageNum-1 > math.MaxInt/pageSize {
		return nil, nil // skip count overflows, so it is certainly past the end
	}
	skip := (pageNum - 1) * pageSize

	var page []Entry[K, V]
	var seen int
	for k, v := range seq {
		if seen < skip {
			seen++
			continue
		}
		if page == nil {
			page = make([]Entry[K, V], 0, min(pageSize, 64))
		}
		page = append(page, Entry[K, V]{k, v})
		if len(page) == pageSize {
			break
		}
	}
	return page, nil
}

// PageValues drops the keys of a page.
func PageValues[K, V any](page []Entry[K, V]) []V {
	if len(page) == 0 {
		return nil
	}
	out := make([]V, len(page))
	for i, e := range page {
		out[i] = e.Value
	}
	return out
}

// PageCount returns the number of pages needed to hold total elements.
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total-1)/pageSize + 1
}
