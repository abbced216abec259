package utils

import (
	"fmt"
)

// BlockRange is an inclusive range of block numbers.
type BlockRange struct {
	Start uint64
	End   uint64
}

func (r BlockRange) String() string {
	return fmt.Sprintf("%d:%d", r.Start, r.End)
}

func (r BlockRange) Len() uint64 {
	return r.End - r.Start + 1
}

// SplitRange cuts [start, end] into consecutive ranges of at most size blocks.
func SplitRange(start, end, size uint64) []BlockRange {
	if end < start {
		return nil
	}
	if size == 0 {
		size = 1
	}
	result := make([]BlockRange, 0, (end-start)/size+1)
	for s := start; s <= end; s += size {
		e := s + size - 1
		if e > end || e < s { // to not overflow
			e = end
		}
		result = append(result, BlockRange{Start: s, End: e})
		if e == end {
			break
		}
	}
	return result
}

// Waves groups items in batches of at most size elements, keeping order.
func Waves[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	result := make([][]T, 0, len(items)/size+1)
	for i := 0; i < len(items); i += size {
		endIndex := i + size
		if endIndex > len(items) {
			endIndex = len(items)
		}
		result = append(result, items[i:endIndex])
	}
	return result
}
