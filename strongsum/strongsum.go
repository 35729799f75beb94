// Package strongsum computes the strong, collision-resistant digest used as
// chunk identity throughout an archive: 256-bit, unkeyed Blake2b. Two chunks
// with the same strong hash are treated as identical content and deduplicated.
package strongsum

import (
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Size is the digest length in bytes.
const Size = 32

// Sum is a 256-bit Blake2b digest.
type Sum [Size]byte

// IsZero reports whether s is the all-zero digest, which never occurs for
// real content and is used as a sentinel for "no chunk".
func (s Sum) IsZero() bool {
	return s == Sum{}
}

func (s Sum) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, Size*2)
	for i, b := range s {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}

// Hasher incrementally computes a Sum over multiple Write calls.
type Hasher struct {
	h hash.Hash
}

// New returns a fresh incremental hasher.
func New() *Hasher {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for an oversized key, and we pass nil.
		panic(err)
	}
	return &Hasher{h: h}
}

func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Reset returns the hasher to its initial state.
func (h *Hasher) Reset() {
	h.h.Reset()
}

// Sum finalizes the hash and returns the digest. The underlying hash keeps
// accumulating afterward per hash.Hash semantics; call Reset first if that
// is not wanted.
func (h *Hasher) Sum() Sum {
	var s Sum
	copy(s[:], h.h.Sum(nil))
	return s
}

// Of computes the strong hash of a single byte slice in one call.
func Of(data []byte) Sum {
	return blake2b.Sum256(data)
}
