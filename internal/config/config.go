// Package config layers process configuration: defaults, then environment
// variables under the XLSYNC_ prefix, then CLI flags (applied last by the
// caller, since flags are parsed by cmd/bitasync and only known there).
// Generalizes the teacher's Config struct plus its parseEnvInt convention.
package config

import (
	"os"
	"strconv"

	"github.com/xiaoz/bitasync/chunker"
	"github.com/xiaoz/bitasync/coalesce"
	"github.com/xiaoz/bitasync/internal/logging"
)

var log = logging.Get("config")

// Config is the full set of tunables shared by the compress and clone
// paths.
type Config struct {
	Chunker chunker.Config

	// Codec names the compressor used at compress time: none/brotli/lzma/zstd.
	Codec string

	// MaxGapBytes and Workers tune the clone assembler's range coalescing
	// and fetch concurrency.
	MaxGapBytes uint64
	Workers     int

	// Retries is the number of attempts (including the first) before a
	// transport failure is treated as fatal.
	Retries int
}

// Default returns the built-in defaults: the chunker's spec default,
// zstd compression, the coalescer's default gap, 3 retries, and workers
// left at 0 (the clone assembler then runs one worker per GOMAXPROCS slot).
func Default() Config {
	return Config{
		Chunker:     chunker.DefaultConfig(),
		Codec:       "zstd",
		MaxGapBytes: coalesce.DefaultMaxGapBytes,
		Workers:     0,
		Retries:     3,
	}
}

// FromEnvironment starts from Default and overrides any field with a
// matching XLSYNC_* environment variable that parses successfully. An
// invalid value is logged and the existing value is kept, matching the
// teacher's parseEnvInt fallback behavior.
func FromEnvironment() Config {
	cfg := Default()

	cfg.Chunker.MinChunkSize = envUint32("XLSYNC_MIN_CHUNK_SIZE", cfg.Chunker.MinChunkSize)
	cfg.Chunker.AvgChunkSize = envUint32("XLSYNC_AVG_CHUNK_SIZE", cfg.Chunker.AvgChunkSize)
	cfg.Chunker.MaxChunkSize = envUint32("XLSYNC_MAX_CHUNK_SIZE", cfg.Chunker.MaxChunkSize)
	cfg.Codec = envString("XLSYNC_CODEC", cfg.Codec)
	cfg.MaxGapBytes = envUint64("XLSYNC_MAX_GAP_BYTES", cfg.MaxGapBytes)
	cfg.Retries = envInt("XLSYNC_RETRIES", cfg.Retries)
	cfg.Workers = envInt("XLSYNC_WORKERS", cfg.Workers)

	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warnf("invalid value for %s: %q, using default %d: %v", key, v, def, err)
		return def
	}
	return n
}

func envUint32(key string, def uint32) uint32 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		log.Warnf("invalid value for %s: %q, using default %d: %v", key, v, def, err)
		return def
	}
	return uint32(n)
}

func envUint64(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		log.Warnf("invalid value for %s: %q, using default %d: %v", key, v, def, err)
		return def
	}
	return n
}
