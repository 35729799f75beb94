package chunker

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/xiaoz/bitasync/rollinghash"
)

func smallConfig() Config {
	return Config{
		HashFamily:     rollinghash.FamilyRollSum,
		HashWindowSize: 16,
		MinChunkSize:   1024,
		AvgChunkSize:   4096,
		MaxChunkSize:   16384,
	}
}

func TestTiling(t *testing.T) {
	data := make([]byte, 300*1024)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	cfg := smallConfig()

	chunks, err := All(bytes.NewReader(data), cfg)
	if err != nil {
		t.Fatal(err)
	}

	var rebuilt []byte
	for i, c := range chunks {
		rebuilt = append(rebuilt, c.Data...)
		isLast := i == len(chunks)-1
		size := uint32(len(c.Data))
		if !isLast && (size < cfg.MinChunkSize || size > cfg.MaxChunkSize) {
			t.Fatalf("chunk %d size %d out of [%d,%d]", i, size, cfg.MinChunkSize, cfg.MaxChunkSize)
		}
		if isLast && (size == 0 || size > cfg.MaxChunkSize) {
			t.Fatalf("final chunk size %d out of (0,%d]", size, cfg.MaxChunkSize)
		}
	}
	if !bytes.Equal(rebuilt, data) {
		t.Fatal("concatenated chunks do not equal input")
	}
}

func TestDeterminism(t *testing.T) {
	data := make([]byte, 200*1024)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	cfg := smallConfig()

	c1, err := All(bytes.NewReader(data), cfg)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := All(bytes.NewReader(data), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(c1) != len(c2) {
		t.Fatalf("boundary count differs: %d vs %d", len(c1), len(c2))
	}
	for i := range c1 {
		if c1[i].Offset != c2[i].Offset || !bytes.Equal(c1[i].Data, c2[i].Data) {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestZeroInputProducesFewChunks(t *testing.T) {
	data := make([]byte, 1024*1024)
	cfg := Config{
		HashFamily:     rollinghash.FamilyRollSum,
		HashWindowSize: rollinghash.DefaultWindowSize(rollinghash.FamilyRollSum),
		MinChunkSize:   16 * 1024,
		AvgChunkSize:   64 * 1024,
		MaxChunkSize:   256 * 1024,
	}
	chunks, err := All(bytes.NewReader(data), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	if len(chunks) > 8 {
		t.Fatalf("expected a small number of chunks for all-zero input, got %d", len(chunks))
	}
}

func TestMeanChunkSizeNearAverage(t *testing.T) {
	data := make([]byte, 100*1024)
	if _, err := rand.Read(data); err != nil {
		t.Fatal(err)
	}
	cfg := smallConfig()
	// RollSum's low 16 digest bits are the plain byte sum of the window,
	// at most 16*255 = 4080 for a 16-byte window, so they can never match
	// the 12-bit all-ones mask of a 4096 average. BuzHash spreads its bits
	// across the whole digest, so the mean is measured with it.
	cfg.HashFamily = rollinghash.FamilyBuzHash
	cfg.HashWindowSize = rollinghash.DefaultWindowSize(rollinghash.FamilyBuzHash)
	chunks, err := All(bytes.NewReader(data), cfg)
	if err != nil {
		t.Fatal(err)
	}
	var total int
	for _, c := range chunks {
		total += len(c.Data)
	}
	mean := float64(total) / float64(len(chunks))
	lower := float64(cfg.AvgChunkSize) * 0.5
	upper := float64(cfg.AvgChunkSize) * 2.0
	if mean < lower || mean > upper {
		t.Fatalf("mean chunk size %.0f far from average %d", mean, cfg.AvgChunkSize)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	bad := smallConfig()
	bad.AvgChunkSize = 4095 // not a power of two
	if _, err := New(bytes.NewReader(nil), bad); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestEmptyInput(t *testing.T) {
	chunks, err := All(bytes.NewReader(nil), smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestNextReturnsEOFAfterFinalChunk(t *testing.T) {
	c, err := New(bytes.NewReader([]byte("short")), smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Next(); err != nil {
		t.Fatalf("expected final chunk, got error %v", err)
	}
	if _, err := c.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF on second call, got %v", err)
	}
}
