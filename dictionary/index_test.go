package dictionary

import (
	"testing"

	"github.com/xiaoz/bitasync/archive"
	"github.com/xiaoz/bitasync/strongsum"
)

func sampleDictionary() *archive.Dictionary {
	a := strongsum.Of([]byte("a"))
	b := strongsum.Of([]byte("b"))
	return &archive.Dictionary{
		SourceTotalSize: 30,
		Descriptors: []archive.Descriptor{
			{StrongHash: a, UncompressedSize: 10},
			{StrongHash: b, UncompressedSize: 10},
		},
		RebuildSequence: []uint32{0, 1, 0},
	}
}

func TestBuildDerivesOffsets(t *testing.T) {
	idx := Build(sampleDictionary())

	offA := idx.offsets[0]
	offB := idx.offsets[1]
	if len(offA) != 2 || offA[0] != 0 || offA[1] != 20 {
		t.Fatalf("unexpected offsets for descriptor 0: %v", offA)
	}
	if len(offB) != 1 || offB[0] != 10 {
		t.Fatalf("unexpected offsets for descriptor 1: %v", offB)
	}
}

func TestLookupByStrongHash(t *testing.T) {
	idx := Build(sampleDictionary())
	i, ok := idx.Lookup(strongsum.Of([]byte("a")))
	if !ok || i != 0 {
		t.Fatalf("expected descriptor 0 for hash of 'a', got %d, %v", i, ok)
	}
	if _, ok := idx.Lookup(strongsum.Of([]byte("nope"))); ok {
		t.Fatal("expected lookup miss for unknown hash")
	}
}

func TestCoverageTracking(t *testing.T) {
	idx := Build(sampleDictionary())
	if idx.FullyCovered() {
		t.Fatal("fresh index must not be fully covered")
	}
	idx.MarkCovered(0)
	if idx.IsCovered(1) {
		t.Fatal("descriptor 1 should not be covered yet")
	}
	idx.MarkCovered(1)
	if !idx.FullyCovered() {
		t.Fatal("expected full coverage after marking all descriptors")
	}
	uncovered := idx.UncoveredDescriptors()
	if len(uncovered) != 0 {
		t.Fatalf("expected no uncovered descriptors, got %v", uncovered)
	}
}
