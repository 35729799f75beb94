// Package archive implements the on-disk container (C5): a framed binary
// layout of a magic, a length-prefixed dictionary, a hash over the
// dictionary bytes, and an append-only chunk-data region. See Writer and
// Reader.
package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/xiaoz/bitasync/chunker"
	"github.com/xiaoz/bitasync/codec"
	"github.com/xiaoz/bitasync/internal/logging"
	"github.com/xiaoz/bitasync/internal/xerrors"
	"github.com/xiaoz/bitasync/strongsum"
)

// Magic is the fixed 6-byte file signature.
const Magic = "BITA1\x00"

const (
	magicLen             = 6
	formatVersionLen     = 1
	headerLenFieldLen     = 8
	fixedHeaderLen       = magicLen + formatVersionLen + headerLenFieldLen
	dictionaryHashLen    = 64
	dictionaryHashUsed   = strongsum.Size // remaining bytes are reserved zero
)

// CurrentFormatVersion is the only format_version this implementation
// writes or accepts. The byte sits ahead of the length prefix per the
// spec's resolved open question, so a reader can reject an unknown
// version before attempting to interpret HeaderLenBE at all.
const CurrentFormatVersion = 1

var log = logging.Get("archive")

// FileHeader is the fixed-size prefix of an archive, read before the
// variable-length dictionary frame.
type FileHeader struct {
	FormatVersion byte
	DictionaryLen uint64
}

// ReadHeader parses the fixed-size header at the start of r.
func ReadHeader(r io.Reader) (FileHeader, error) {
	buf := make([]byte, fixedHeaderLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return FileHeader{}, xerrors.Wrap(xerrors.InvalidArchive, "read archive header", err)
	}
	if !bytes.Equal(buf[:magicLen], []byte(Magic)) {
		return FileHeader{}, xerrors.New(xerrors.InvalidArchive, "bad magic")
	}
	version := buf[magicLen]
	if version != CurrentFormatVersion {
		return FileHeader{}, xerrors.New(xerrors.InvalidArchive, fmt.Sprintf("unsupported format_version %d", version))
	}
	dictLen := binary.BigEndian.Uint64(buf[magicLen+formatVersionLen:])
	return FileHeader{FormatVersion: version, DictionaryLen: dictLen}, nil
}

// Writer streams finalized chunks into a temporary chunk-data scratch file,
// then at Finalize writes the complete header (magic, format version,
// dictionary, dictionary hash) followed by the chunk-data region to dst.
// The header must precede the chunk-data region on disk, but its length
// depends on the whole dictionary, which is only fully known once every
// chunk has been seen — so chunk bytes are buffered until Finalize.
type Writer struct {
	dst     io.Writer
	scratch *os.File
	offset  uint64
	dict    Dictionary
	seen    map[strongsum.Sum]int
	closed  bool
}

// NewWriter creates a Writer over dst, recording cfg as the dictionary's
// chunker configuration.
func NewWriter(dst io.Writer, cfg chunker.Config) (*Writer, error) {
	f, err := os.CreateTemp("", "bitasync-chunkdata-*")
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "create chunk-data scratch file", err)
	}
	return &Writer{
		dst:     dst,
		scratch: f,
		dict:    Dictionary{Config: cfg},
		seen:    make(map[strongsum.Sum]int),
	}, nil
}

// PutChunk records one occurrence of a chunk in source order. If a chunk
// with the same strong hash has not been seen before, it is compressed with
// c and appended to the chunk-data region; otherwise the existing
// descriptor is reused. Either way, the descriptor's index is appended to
// the rebuild sequence.
func (w *Writer) PutChunk(data []byte, c codec.Codec) (descriptorIndex int, err error) {
	sum := strongsum.Of(data)
	idx, ok := w.seen[sum]
	if !ok {
		compressed, err := c.Compress(data)
		if err != nil {
			return 0, err
		}
		if _, err := w.scratch.Write(compressed); err != nil {
			return 0, xerrors.Wrap(xerrors.Transport, "write chunk-data scratch file", err)
		}
		idx = len(w.dict.Descriptors)
		w.dict.Descriptors = append(w.dict.Descriptors, Descriptor{
			StrongHash:       sum,
			UncompressedSize: uint32(len(data)),
			ArchiveOffset:    w.offset,
			CompressedSize:   uint32(len(compressed)),
			Codec:            c.Tag(),
		})
		w.seen[sum] = idx
		w.offset += uint64(len(compressed))
	}
	w.dict.RebuildSequence = append(w.dict.RebuildSequence, uint32(idx))
	return idx, nil
}

// NumDescriptors returns the number of unique chunks written so far.
func (w *Writer) NumDescriptors() int {
	return len(w.dict.Descriptors)
}

// Finalize serializes the dictionary, writes the complete header and
// dictionary hash, then copies the buffered chunk-data region to dst. The
// scratch file is removed afterward regardless of outcome.
func (w *Writer) Finalize(sourceTotalSize uint64, sourceHash strongsum.Sum) error {
	defer w.cleanupScratch()

	w.dict.SourceTotalSize = sourceTotalSize
	w.dict.SourceHash = sourceHash
	if err := w.dict.Validate(); err != nil {
		return err
	}

	serialized := w.dict.Serialize()
	dictHash := strongsum.Of(serialized)

	if _, err := w.dst.Write([]byte(Magic)); err != nil {
		return xerrors.Wrap(xerrors.Transport, "write magic", err)
	}
	if _, err := w.dst.Write([]byte{CurrentFormatVersion}); err != nil {
		return xerrors.Wrap(xerrors.Transport, "write format_version", err)
	}
	var lenBuf [headerLenFieldLen]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(serialized)))
	if _, err := w.dst.Write(lenBuf[:]); err != nil {
		return xerrors.Wrap(xerrors.Transport, "write header length", err)
	}
	if _, err := w.dst.Write(serialized); err != nil {
		return xerrors.Wrap(xerrors.Transport, "write dictionary frame", err)
	}
	var hashBuf [dictionaryHashLen]byte
	copy(hashBuf[:dictionaryHashUsed], dictHash[:])
	if _, err := w.dst.Write(hashBuf[:]); err != nil {
		return xerrors.Wrap(xerrors.Transport, "write dictionary hash", err)
	}

	if _, err := w.scratch.Seek(0, io.SeekStart); err != nil {
		return xerrors.Wrap(xerrors.Transport, "rewind chunk-data scratch file", err)
	}
	n, err := io.Copy(w.dst, w.scratch)
	if err != nil {
		return xerrors.Wrap(xerrors.Transport, "copy chunk-data region", err)
	}
	log.Debugf("finalized archive: %d descriptors, %d chunk-data bytes", len(w.dict.Descriptors), n)
	return nil
}

func (w *Writer) cleanupScratch() {
	if w.closed {
		return
	}
	w.closed = true
	name := w.scratch.Name()
	w.scratch.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to remove chunk-data scratch file %s: %v", name, err)
	}
}

// Reader provides random access to a parsed archive: its dictionary and the
// compressed bytes of any descriptor's chunk-data range.
type Reader struct {
	ra             io.ReaderAt
	chunkDataStart int64
	Dictionary     Dictionary
}

// OpenReader parses the header, dictionary, and dictionary hash from ra,
// verifying the hash before returning.
func OpenReader(ra io.ReaderAt) (*Reader, error) {
	hdr, err := ReadHeader(io.NewSectionReader(ra, 0, fixedHeaderLen))
	if err != nil {
		return nil, err
	}

	dictBuf := make([]byte, hdr.DictionaryLen)
	if _, err := ra.ReadAt(dictBuf, fixedHeaderLen); err != nil {
		return nil, xerrors.Wrap(xerrors.InvalidArchive, "read dictionary frame", err)
	}

	hashOffset := int64(fixedHeaderLen) + int64(hdr.DictionaryLen)
	hashBuf := make([]byte, dictionaryHashLen)
	if _, err := ra.ReadAt(hashBuf, hashOffset); err != nil {
		return nil, xerrors.Wrap(xerrors.InvalidArchive, "read dictionary hash", err)
	}
	want := strongsum.Of(dictBuf)
	if !bytes.Equal(hashBuf[:dictionaryHashUsed], want[:]) {
		return nil, xerrors.New(xerrors.InvalidArchive, "dictionary hash mismatch")
	}

	dict, err := ParseDictionary(dictBuf)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.InvalidArchive, "parse dictionary frame", err)
	}

	return &Reader{
		ra:             ra,
		chunkDataStart: hashOffset + dictionaryHashLen,
		Dictionary:     dict,
	}, nil
}

// ChunkDataStart returns the absolute offset where the chunk-data region
// begins; transports fetching remote ranges add this to a descriptor's
// ArchiveOffset to get an absolute file offset.
func (r *Reader) ChunkDataStart() int64 {
	return r.chunkDataStart
}

// ReadChunkRange reads the raw (still compressed) bytes of one descriptor's
// chunk-data range.
func (r *Reader) ReadChunkRange(archiveOffset uint64, compressedSize uint32) ([]byte, error) {
	buf := make([]byte, compressedSize)
	if _, err := r.ra.ReadAt(buf, r.chunkDataStart+int64(archiveOffset)); err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "read chunk range", err)
	}
	return buf, nil
}
