// Package dictionary builds the in-memory index (C6) used during cloning: a
// strong-hash lookup into a parsed archive.Dictionary's descriptors, the
// source offsets each descriptor occupies, and a coverage bitmap tracking
// which descriptors have been materialized so far.
package dictionary

import (
	"github.com/xiaoz/bitasync/archive"
	"github.com/xiaoz/bitasync/internal/set"
	"github.com/xiaoz/bitasync/strongsum"
)

// Index is the read-only-after-construction view over a Dictionary that C7
// and C8 consult while cloning. The coverage bitmap is its one mutable
// field, updated as chunks are materialized.
type Index struct {
	Dict *archive.Dictionary

	byStrongHash map[strongsum.Sum]int
	// offsets[i] is the sorted list of source offsets descriptor i occupies.
	offsets [][]uint64

	coverage *set.Bitset
}

// Build constructs an Index from a parsed Dictionary. The rebuild sequence
// is walked once to derive per-descriptor source offsets.
func Build(dict *archive.Dictionary) *Index {
	idx := &Index{
		Dict:         dict,
		byStrongHash: make(map[strongsum.Sum]int, len(dict.Descriptors)),
		offsets:      make([][]uint64, len(dict.Descriptors)),
		coverage:     set.NewBitset(len(dict.Descriptors)),
	}
	for i, d := range dict.Descriptors {
		idx.byStrongHash[d.StrongHash] = i
	}

	var pos uint64
	for _, descIdx := range dict.RebuildSequence {
		idx.offsets[descIdx] = append(idx.offsets[descIdx], pos)
		pos += uint64(dict.Descriptors[descIdx].UncompressedSize)
	}
	return idx
}

// Lookup returns the descriptor index for a strong hash, if any descriptor
// carries it.
func (idx *Index) Lookup(sum strongsum.Sum) (int, bool) {
	i, ok := idx.byStrongHash[sum]
	return i, ok
}

// SourceOffsets returns the sorted source offsets descriptor i occupies.
func (idx *Index) SourceOffsets(descriptorIndex int) []uint64 {
	return idx.offsets[descriptorIndex]
}

// Descriptor returns descriptor i.
func (idx *Index) Descriptor(descriptorIndex int) archive.Descriptor {
	return idx.Dict.Descriptors[descriptorIndex]
}

// NumDescriptors returns the total number of unique chunks in the
// dictionary.
func (idx *Index) NumDescriptors() int {
	return len(idx.Dict.Descriptors)
}

// IsCovered reports whether descriptor i has already been materialized.
func (idx *Index) IsCovered(descriptorIndex int) bool {
	return idx.coverage.IsSet(descriptorIndex)
}

// MarkCovered records that descriptor i has been materialized. Safe to
// call more than once for the same index.
func (idx *Index) MarkCovered(descriptorIndex int) {
	idx.coverage.Set(descriptorIndex)
}

// FullyCovered reports whether every descriptor has been materialized.
func (idx *Index) FullyCovered() bool {
	return idx.coverage.All()
}

// UncoveredDescriptors returns the indices of every descriptor not yet
// materialized, in ascending order.
func (idx *Index) UncoveredDescriptors() []int {
	var out []int
	for i := 0; i < idx.NumDescriptors(); i++ {
		if !idx.IsCovered(i) {
			out = append(out, i)
		}
	}
	return out
}
