// Package codec implements the archive's pluggable compressor registry.
// Every chunk's compressed bytes on disk are tagged with the wire code of
// the codec that produced them, so a reader never needs out-of-band
// knowledge of which codec was used.
package codec

import (
	"fmt"

	"github.com/xiaoz/bitasync/internal/xerrors"
)

// Tag is the one-byte wire code identifying a codec in a dictionary's
// compressed-data-location entries.
type Tag byte

const (
	TagNone   Tag = 0
	TagBrotli Tag = 1
	TagLZMA   Tag = 2
	TagZstd   Tag = 3
)

func (t Tag) String() string {
	switch t {
	case TagNone:
		return "none"
	case TagBrotli:
		return "brotli"
	case TagLZMA:
		return "lzma"
	case TagZstd:
		return "zstd"
	default:
		return fmt.Sprintf("tag(%d)", byte(t))
	}
}

// Codec compresses and decompresses chunk payloads.
type Codec interface {
	// Tag returns this codec's wire code.
	Tag() Tag
	// Compress returns the compressed form of data.
	Compress(data []byte) ([]byte, error)
	// Decompress restores the original bytes from compressed data.
	// uncompressedSize is the expected output length, carried in the
	// chunk descriptor, and is used to preallocate the output buffer.
	Decompress(data []byte, uncompressedSize int) ([]byte, error)
}

var byTag = map[Tag]Codec{
	TagNone:   noneCodec{},
	TagBrotli: newBrotli(),
	TagLZMA:   newLZMA(),
	TagZstd:   newZstd(),
}

var byName = map[string]Tag{
	"none":   TagNone,
	"brotli": TagBrotli,
	"lzma":   TagLZMA,
	"zstd":   TagZstd,
}

// ErrUnsupportedCodec is returned when a tag or name has no registered
// implementation.
type ErrUnsupportedCodec struct {
	Tag  Tag
	Name string
}

func (e *ErrUnsupportedCodec) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("codec: unsupported codec name %q", e.Name)
	}
	return fmt.Sprintf("codec: unsupported codec tag %s", e.Tag)
}

// ByTag looks up the codec registered for a wire tag.
func ByTag(tag Tag) (Codec, error) {
	c, ok := byTag[tag]
	if !ok {
		return nil, &ErrUnsupportedCodec{Tag: tag}
	}
	return c, nil
}

// ByName looks up a codec by its CLI/config name ("none", "brotli", "lzma",
// "zstd").
func ByName(name string) (Codec, error) {
	tag, ok := byName[name]
	if !ok {
		return nil, &ErrUnsupportedCodec{Name: name}
	}
	return byTag[tag], nil
}

// Names returns the registered codec names, for CLI help text and config
// validation.
func Names() []string {
	return []string{"none", "brotli", "lzma", "zstd"}
}

type noneCodec struct{}

func (noneCodec) Tag() Tag { return TagNone }

func (noneCodec) Compress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (noneCodec) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	if len(data) != uncompressedSize {
		return nil, xerrors.New(xerrors.InvalidArchive,
			fmt.Sprintf("none: decompressed %d bytes, want %d", len(data), uncompressedSize))
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
