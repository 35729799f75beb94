package codec

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, c Codec) {
	t.Helper()
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)

	compressed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}

	got, err := c.Decompress(compressed, len(data))
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch for %s", c.Tag())
	}
}

func TestRoundTripAllCodecs(t *testing.T) {
	for _, name := range Names() {
		name := name
		t.Run(name, func(t *testing.T) {
			c, err := ByName(name)
			if err != nil {
				t.Fatalf("ByName(%q): %v", name, err)
			}
			roundTrip(t, c)
		})
	}
}

func TestByTagMatchesByName(t *testing.T) {
	for name, tag := range byName {
		c, err := ByTag(tag)
		if err != nil {
			t.Fatalf("ByTag(%s): %v", tag, err)
		}
		if c.Tag() != tag {
			t.Fatalf("codec for name %q reports tag %s, want %s", name, c.Tag(), tag)
		}
	}
}

func TestUnsupportedCodec(t *testing.T) {
	if _, err := ByName("rot13"); err == nil {
		t.Fatal("expected error for unknown codec name")
	}
	if _, err := ByTag(Tag(99)); err == nil {
		t.Fatal("expected error for unknown codec tag")
	}
}

func TestDecompressRejectsWrongDeclaredSize(t *testing.T) {
	for _, name := range Names() {
		name := name
		t.Run(name, func(t *testing.T) {
			c, err := ByName(name)
			if err != nil {
				t.Fatalf("ByName(%q): %v", name, err)
			}
			data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)
			compressed, err := c.Compress(data)
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			if _, err := c.Decompress(compressed, len(data)+1); err == nil {
				t.Fatalf("%s: expected error for wrong declared size, got nil", name)
			}
		})
	}
}

func TestNoneCodecIsIdentity(t *testing.T) {
	c, _ := ByName("none")
	data := []byte("payload")
	compressed, err := c.Compress(data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(compressed, data) {
		t.Fatal("none codec must not transform data")
	}
}
