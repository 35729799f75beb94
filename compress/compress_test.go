package compress

import (
	"bytes"
	"context"
	"testing"

	"github.com/xiaoz/bitasync/archive"
	"github.com/xiaoz/bitasync/chunker"
	"github.com/xiaoz/bitasync/codec"
	"github.com/xiaoz/bitasync/rollinghash"
	"github.com/xiaoz/bitasync/strongsum"
)

func smallConfig(t *testing.T) Config {
	t.Helper()
	none, err := codec.ByName("none")
	if err != nil {
		t.Fatal(err)
	}
	return Config{
		Chunker: chunker.Config{
			HashFamily:     rollinghash.FamilyRollSum,
			HashWindowSize: 8,
			MinChunkSize:   4,
			AvgChunkSize:   8,
			MaxChunkSize:   16,
		},
		Codec: none,
	}
}

func TestToArchiveProducesReadableArchive(t *testing.T) {
	source := bytes.Repeat([]byte("hello world "), 50)
	var out bytes.Buffer

	stats, err := ToArchive(context.Background(), &out, bytes.NewReader(source), smallConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	if stats.SourceBytes != uint64(len(source)) {
		t.Fatalf("SourceBytes = %d, want %d", stats.SourceBytes, len(source))
	}
	if stats.UniqueChunks > stats.ChunkCount {
		t.Fatal("unique chunks cannot exceed total chunks")
	}

	r, err := archive.OpenReader(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if r.Dictionary.SourceTotalSize != uint64(len(source)) {
		t.Fatalf("dictionary SourceTotalSize = %d, want %d", r.Dictionary.SourceTotalSize, len(source))
	}
	if r.Dictionary.SourceHash != strongsum.Of(source) {
		t.Fatal("dictionary SourceHash does not match source")
	}
	if len(r.Dictionary.Descriptors) != stats.UniqueChunks {
		t.Fatalf("descriptor count = %d, want %d", len(r.Dictionary.Descriptors), stats.UniqueChunks)
	}
}

func TestToArchiveDedupsRepeatedChunks(t *testing.T) {
	block := bytes.Repeat([]byte("Z"), 16)
	source := bytes.Repeat(block, 20)
	var out bytes.Buffer

	stats, err := ToArchive(context.Background(), &out, bytes.NewReader(source), smallConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	if stats.UniqueChunks >= stats.ChunkCount {
		t.Fatalf("expected dedup to reduce unique chunk count below total: unique=%d total=%d", stats.UniqueChunks, stats.ChunkCount)
	}
}

func TestToArchiveRejectsMissingCodec(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Codec = nil
	var out bytes.Buffer
	if _, err := ToArchive(context.Background(), &out, bytes.NewReader([]byte("x")), cfg); err == nil {
		t.Fatal("expected error for missing codec")
	}
}
