package coalesce

import "testing"

func TestCoalesceMergesWithinGap(t *testing.T) {
	inputs := []Input{
		{Offset: 0, Length: 100, Tag: 0},
		{Offset: 150, Length: 50, Tag: 1}, // gap 50
		{Offset: 300, Length: 20, Tag: 2}, // gap 100
	}
	ranges := Coalesce(inputs, Options{MaxGapBytes: 60})
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d: %+v", len(ranges), ranges)
	}
	if ranges[0].Start != 0 || ranges[0].Length != 200 {
		t.Fatalf("unexpected first range: %+v", ranges[0])
	}
	if ranges[1].Start != 300 || ranges[1].Length != 20 {
		t.Fatalf("unexpected second range: %+v", ranges[1])
	}
}

func TestCoalesceMinimalityMatchesGapCount(t *testing.T) {
	const T = 100
	inputs := []Input{
		{Offset: 0, Length: 10, Tag: 0},
		{Offset: 20, Length: 10, Tag: 1},   // gap 10 <= T
		{Offset: 500, Length: 10, Tag: 2},  // gap 470 > T
		{Offset: 520, Length: 10, Tag: 3},  // gap 10 <= T
		{Offset: 2000, Length: 10, Tag: 4}, // gap 1470 > T
	}
	ranges := Coalesce(inputs, Options{MaxGapBytes: T})
	gapsOverT := 2
	if len(ranges) != 1+gapsOverT {
		t.Fatalf("expected %d ranges, got %d", 1+gapsOverT, len(ranges))
	}
}

func TestCoalesceRespectsMaxRequestSize(t *testing.T) {
	inputs := []Input{
		{Offset: 0, Length: 10, Tag: 0},
		{Offset: 10, Length: 10, Tag: 1},
		{Offset: 20, Length: 10, Tag: 2},
	}
	ranges := Coalesce(inputs, Options{MaxGapBytes: 1000, MaxRequestSize: 20})
	if len(ranges) != 2 {
		t.Fatalf("expected a size cap to force a split into 2 ranges, got %d: %+v", len(ranges), ranges)
	}
}

func TestCoalesceEveryInputCoveredExactlyOnce(t *testing.T) {
	inputs := []Input{
		{Offset: 5, Length: 5, Tag: 0},
		{Offset: 0, Length: 5, Tag: 1}, // out of order on purpose
		{Offset: 100, Length: 5, Tag: 2},
	}
	ranges := Coalesce(inputs, Options{MaxGapBytes: DefaultMaxGapBytes})
	seen := map[int]int{}
	for _, r := range ranges {
		for _, inner := range r.Inner {
			seen[inner.Tag]++
			if r.Start+inner.Offset < r.Start || inner.Offset+inner.Length > r.Length {
				t.Fatalf("inner offset out of range: %+v in %+v", inner, r)
			}
		}
	}
	for _, in := range inputs {
		if seen[in.Tag] != 1 {
			t.Fatalf("tag %d covered %d times, want exactly 1", in.Tag, seen[in.Tag])
		}
	}
}

func TestCoalesceEmptyInput(t *testing.T) {
	if ranges := Coalesce(nil, Options{MaxGapBytes: DefaultMaxGapBytes}); ranges != nil {
		t.Fatalf("expected nil ranges for empty input, got %v", ranges)
	}
}
