package config

import (
	"os"
	"testing"
)

func TestFromEnvironmentOverridesDefaults(t *testing.T) {
	os.Setenv("XLSYNC_CODEC", "brotli")
	os.Setenv("XLSYNC_RETRIES", "5")
	defer os.Unsetenv("XLSYNC_CODEC")
	defer os.Unsetenv("XLSYNC_RETRIES")

	cfg := FromEnvironment()
	if cfg.Codec != "brotli" {
		t.Fatalf("Codec = %q, want brotli", cfg.Codec)
	}
	if cfg.Retries != 5 {
		t.Fatalf("Retries = %d, want 5", cfg.Retries)
	}
}

func TestFromEnvironmentKeepsDefaultOnInvalidValue(t *testing.T) {
	os.Setenv("XLSYNC_RETRIES", "not-a-number")
	defer os.Unsetenv("XLSYNC_RETRIES")

	def := Default()
	cfg := FromEnvironment()
	if cfg.Retries != def.Retries {
		t.Fatalf("Retries = %d, want default %d", cfg.Retries, def.Retries)
	}
}

func TestDefaultIsValidChunkerConfig(t *testing.T) {
	if err := Default().Chunker.Validate(); err != nil {
		t.Fatal(err)
	}
}
