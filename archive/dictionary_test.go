package archive

import (
	"testing"

	"github.com/xiaoz/bitasync/chunker"
	"github.com/xiaoz/bitasync/codec"
	"github.com/xiaoz/bitasync/rollinghash"
	"github.com/xiaoz/bitasync/strongsum"
)

func TestChunkerConfigRoundTrip(t *testing.T) {
	cfg := chunker.Config{
		HashFamily:     rollinghash.FamilyBuzHash,
		HashWindowSize: 20,
		MinChunkSize:   1024,
		AvgChunkSize:   65536,
		MaxChunkSize:   262144,
	}
	got, err := parseChunkerConfig(serializeChunkerConfig(cfg))
	if err != nil {
		t.Fatal(err)
	}
	if got != cfg {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, cfg)
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	d := Descriptor{
		StrongHash:       strongsum.Of([]byte("hello")),
		UncompressedSize: 4096,
		ArchiveOffset:    123456,
		CompressedSize:   2048,
		Codec:            codec.TagZstd,
	}
	got, err := parseDescriptor(serializeDescriptor(d))
	if err != nil {
		t.Fatal(err)
	}
	if got != d {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, d)
	}
}

func TestDictionaryRoundTrip(t *testing.T) {
	d := Dictionary{
		SourceTotalSize: 30,
		SourceHash:      strongsum.Of([]byte("source")),
		Config:          chunker.DefaultConfig(),
		Descriptors: []Descriptor{
			{StrongHash: strongsum.Of([]byte("a")), UncompressedSize: 10},
			{StrongHash: strongsum.Of([]byte("b")), UncompressedSize: 20},
		},
		RebuildSequence: []uint32{0, 1, 0},
	}
	got, err := ParseDictionary(d.Serialize())
	if err != nil {
		t.Fatal(err)
	}
	if got.SourceTotalSize != d.SourceTotalSize || got.SourceHash != d.SourceHash {
		t.Fatal("top-level scalar fields mismatch")
	}
	if len(got.Descriptors) != len(d.Descriptors) {
		t.Fatalf("descriptor count mismatch: got %d want %d", len(got.Descriptors), len(d.Descriptors))
	}
	for i := range d.Descriptors {
		if got.Descriptors[i] != d.Descriptors[i] {
			t.Fatalf("descriptor %d mismatch", i)
		}
	}
	if len(got.RebuildSequence) != len(d.RebuildSequence) {
		t.Fatalf("rebuild sequence length mismatch")
	}
}
