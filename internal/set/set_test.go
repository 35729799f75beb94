package set

import "testing"

func TestSetBasics(t *testing.T) {
	s := New[string]()
	if !s.Add("a") {
		t.Fatal("expected first add to return true")
	}
	if s.Add("a") {
		t.Fatal("expected duplicate add to return false")
	}
	if !s.Contains("a") || s.Contains("b") {
		t.Fatal("contains mismatch")
	}
	if s.Len() != 1 {
		t.Fatalf("expected len 1, got %d", s.Len())
	}
	s.Remove("a")
	if s.Contains("a") {
		t.Fatal("expected a removed")
	}
}

func TestBitsetCoverage(t *testing.T) {
	b := NewBitset(130)
	if b.All() {
		t.Fatal("empty bitset must not report All")
	}
	for i := 0; i < 130; i++ {
		if b.IsSet(i) {
			t.Fatalf("bit %d unexpectedly set", i)
		}
	}
	for i := 0; i < 130; i++ {
		b.Set(i)
	}
	if !b.All() {
		t.Fatal("fully set bitset must report All")
	}
	if b.Count() != 130 {
		t.Fatalf("expected count 130, got %d", b.Count())
	}
	b.Clear(64)
	if b.IsSet(64) {
		t.Fatal("expected bit 64 cleared")
	}
	if b.All() {
		t.Fatal("bitset with a cleared bit must not report All")
	}
}
