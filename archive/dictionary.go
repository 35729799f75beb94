package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/xiaoz/bitasync/chunker"
	"github.com/xiaoz/bitasync/codec"
	"github.com/xiaoz/bitasync/internal/xerrors"
	"github.com/xiaoz/bitasync/rollinghash"
	"github.com/xiaoz/bitasync/strongsum"
)

// Descriptor is one unique chunk: its identity, size, and where its
// compressed bytes live in the chunk-data region.
type Descriptor struct {
	StrongHash       strongsum.Sum
	UncompressedSize uint32
	ArchiveOffset    uint64
	CompressedSize   uint32
	Codec            codec.Tag
}

// Dictionary is the archive's self-description: everything needed to locate
// and reassemble the source file's chunks, built incrementally during
// compression and immutable once deserialized during clone.
type Dictionary struct {
	SourceTotalSize uint64
	SourceHash      strongsum.Sum
	Config          chunker.Config
	Descriptors     []Descriptor
	// RebuildSequence has one entry per occurrence of a chunk in source
	// order; each value indexes into Descriptors.
	RebuildSequence []uint32
}

// Validate checks the invariants from the data model: rebuild-sequence
// indices in range, sizes summing to the source total, every descriptor
// reachable from the rebuild sequence.
func (d *Dictionary) Validate() error {
	seen := make([]bool, len(d.Descriptors))
	var total uint64
	for _, idx := range d.RebuildSequence {
		if int(idx) >= len(d.Descriptors) {
			return xerrors.New(xerrors.InvalidArchive, fmt.Sprintf("rebuild sequence index %d out of range (%d descriptors)", idx, len(d.Descriptors)))
		}
		seen[idx] = true
		total += uint64(d.Descriptors[idx].UncompressedSize)
	}
	if total != d.SourceTotalSize {
		return xerrors.New(xerrors.InvalidArchive, fmt.Sprintf("rebuild sequence totals %d bytes, source_total_size is %d", total, d.SourceTotalSize))
	}
	for i, ok := range seen {
		if !ok {
			return xerrors.New(xerrors.InvalidArchive, fmt.Sprintf("descriptor %d never referenced by rebuild sequence", i))
		}
	}
	return nil
}

// tag constants for ChunkerConfig, matching the external spec exactly.
const (
	tagHashFamily     = 1
	tagHashWindowSize = 2
	tagMinChunkSize   = 3
	tagAvgChunkSize   = 4
	tagMaxChunkSize   = 5
)

func serializeChunkerConfig(cfg chunker.Config) []byte {
	var buf bytes.Buffer
	putVarintField(&buf, tagHashFamily, uint64(cfg.HashFamily))
	putVarintField(&buf, tagHashWindowSize, uint64(cfg.HashWindowSize))
	putVarintField(&buf, tagMinChunkSize, uint64(cfg.MinChunkSize))
	putVarintField(&buf, tagAvgChunkSize, uint64(cfg.AvgChunkSize))
	putVarintField(&buf, tagMaxChunkSize, uint64(cfg.MaxChunkSize))
	return buf.Bytes()
}

func parseChunkerConfig(data []byte) (chunker.Config, error) {
	var cfg chunker.Config
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		tag, v, err := readVarintField(r)
		if err != nil {
			return cfg, err
		}
		switch tag {
		case tagHashFamily:
			cfg.HashFamily = rollinghash.Family(v)
		case tagHashWindowSize:
			cfg.HashWindowSize = uint32(v)
		case tagMinChunkSize:
			cfg.MinChunkSize = uint32(v)
		case tagAvgChunkSize:
			cfg.AvgChunkSize = uint32(v)
		case tagMaxChunkSize:
			cfg.MaxChunkSize = uint32(v)
		}
	}
	return cfg, nil
}

// tag constants for Descriptor, matching the external spec exactly.
const (
	tagStrongHash       = 1
	tagUncompressedSize = 2
	tagArchiveOffset    = 3
	tagCompressedSize   = 4
	tagCodec            = 5
)

func serializeDescriptor(d Descriptor) []byte {
	var buf bytes.Buffer
	putBytesField(&buf, tagStrongHash, d.StrongHash[:])
	putVarintField(&buf, tagUncompressedSize, uint64(d.UncompressedSize))
	putVarintField(&buf, tagArchiveOffset, d.ArchiveOffset)
	putVarintField(&buf, tagCompressedSize, uint64(d.CompressedSize))
	putVarintField(&buf, tagCodec, uint64(d.Codec))
	return buf.Bytes()
}

func parseDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		tag, err := r.ReadByte()
		if err != nil {
			return d, err
		}
		switch tag {
		case tagStrongHash:
			b, err := readBytesValue(r)
			if err != nil {
				return d, err
			}
			if len(b) != strongsum.Size {
				return d, fmt.Errorf("archive: strong_hash field has length %d, want %d", len(b), strongsum.Size)
			}
			copy(d.StrongHash[:], b)
		case tagUncompressedSize:
			v, err := binary.ReadUvarint(r)
			if err != nil {
				return d, err
			}
			d.UncompressedSize = uint32(v)
		case tagArchiveOffset:
			v, err := binary.ReadUvarint(r)
			if err != nil {
				return d, err
			}
			d.ArchiveOffset = v
		case tagCompressedSize:
			v, err := binary.ReadUvarint(r)
			if err != nil {
				return d, err
			}
			d.CompressedSize = uint32(v)
		case tagCodec:
			v, err := binary.ReadUvarint(r)
			if err != nil {
				return d, err
			}
			d.Codec = codec.Tag(v)
		default:
			return d, fmt.Errorf("archive: unknown descriptor field tag %d", tag)
		}
	}
	return d, nil
}

// top-level Dictionary field tags.
const (
	tagSourceTotalSize  = 1
	tagSourceHash       = 2
	tagChunkerConfig    = 3
	tagDescriptorList   = 4
	tagRebuildSequence  = 5
)

// Serialize encodes the dictionary to its on-disk framing: varint-encoded
// integers, length-prefixed byte strings and nested records.
func (d *Dictionary) Serialize() []byte {
	var buf bytes.Buffer
	putVarintField(&buf, tagSourceTotalSize, d.SourceTotalSize)
	putBytesField(&buf, tagSourceHash, d.SourceHash[:])
	putBytesField(&buf, tagChunkerConfig, serializeChunkerConfig(d.Config))

	var descBuf bytes.Buffer
	putUvarint(&descBuf, uint64(len(d.Descriptors)))
	for _, desc := range d.Descriptors {
		putBytesValue(&descBuf, serializeDescriptor(desc))
	}
	putBytesField(&buf, tagDescriptorList, descBuf.Bytes())

	var seqBuf bytes.Buffer
	putUvarint(&seqBuf, uint64(len(d.RebuildSequence)))
	for _, idx := range d.RebuildSequence {
		putUvarint(&seqBuf, uint64(idx))
	}
	putBytesField(&buf, tagRebuildSequence, seqBuf.Bytes())

	return buf.Bytes()
}

// ParseDictionary decodes a DictionarySerialized frame produced by
// Dictionary.Serialize.
func ParseDictionary(data []byte) (Dictionary, error) {
	var d Dictionary
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		tag, err := r.ReadByte()
		if err != nil {
			return d, err
		}
		switch tag {
		case tagSourceTotalSize:
			v, err := binary.ReadUvarint(r)
			if err != nil {
				return d, err
			}
			d.SourceTotalSize = v
		case tagSourceHash:
			b, err := readBytesValue(r)
			if err != nil {
				return d, err
			}
			if len(b) != strongsum.Size {
				return d, fmt.Errorf("archive: source_hash field has length %d, want %d", len(b), strongsum.Size)
			}
			copy(d.SourceHash[:], b)
		case tagChunkerConfig:
			b, err := readBytesValue(r)
			if err != nil {
				return d, err
			}
			cfg, err := parseChunkerConfig(b)
			if err != nil {
				return d, err
			}
			d.Config = cfg
		case tagDescriptorList:
			b, err := readBytesValue(r)
			if err != nil {
				return d, err
			}
			descs, err := parseDescriptorList(b)
			if err != nil {
				return d, err
			}
			d.Descriptors = descs
		case tagRebuildSequence:
			b, err := readBytesValue(r)
			if err != nil {
				return d, err
			}
			seq, err := parseRebuildSequence(b)
			if err != nil {
				return d, err
			}
			d.RebuildSequence = seq
		default:
			return d, fmt.Errorf("archive: unknown dictionary field tag %d", tag)
		}
	}
	return d, nil
}

func parseDescriptorList(data []byte) ([]Descriptor, error) {
	r := bytes.NewReader(data)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	out := make([]Descriptor, 0, count)
	for i := uint64(0); i < count; i++ {
		b, err := readBytesValue(r)
		if err != nil {
			return nil, err
		}
		desc, err := parseDescriptor(b)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

func parseRebuildSequence(data []byte) ([]uint32, error) {
	r := bytes.NewReader(data)
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

// --- low-level TLV helpers shared by all three record types ---

func putUvarint(buf *bytes.Buffer, v uint64) {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], v)
	buf.Write(scratch[:n])
}

func putVarintField(buf *bytes.Buffer, tag byte, v uint64) {
	buf.WriteByte(tag)
	putUvarint(buf, v)
}

func putBytesValue(buf *bytes.Buffer, b []byte) {
	putUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func putBytesField(buf *bytes.Buffer, tag byte, b []byte) {
	buf.WriteByte(tag)
	putBytesValue(buf, b)
}

func readBytesValue(r *bytes.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readVarintField(r *bytes.Reader) (byte, uint64, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, 0, err
	}
	return tag, v, nil
}
