package gc

import (
	"reflect"
	"testing"
)

func TestSweepReportsUnretainedArchives(t *testing.T) {
	archives := []string{"a1.bita", "a2.bita", "a3.bita"}
	retain := []string{"a2.bita"}

	freed, err := Sweep(archives, retain)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a1.bita", "a3.bita"}
	if !reflect.DeepEqual(freed, want) {
		t.Fatalf("Sweep = %v, want %v", freed, want)
	}
}

func TestSweepRetainsEverything(t *testing.T) {
	archives := []string{"a1.bita", "a2.bita"}
	freed, err := Sweep(archives, archives)
	if err != nil {
		t.Fatal(err)
	}
	if len(freed) != 0 {
		t.Fatalf("expected nothing freed, got %v", freed)
	}
}

func TestSweepEmptyArchiveList(t *testing.T) {
	freed, err := Sweep(nil, []string{"a1.bita"})
	if err != nil {
		t.Fatal(err)
	}
	if len(freed) != 0 {
		t.Fatalf("expected nothing freed, got %v", freed)
	}
}
