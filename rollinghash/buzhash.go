package rollinghash

import "math/bits"

// BuzHash is a cyclic-polynomial rolling hash. Its state is the XOR of
// rotate_left(table[c_i], w-1-i) across the bytes currently in the window;
// rolling one byte forward is a single rotate-XOR-XOR update.
type BuzHash struct {
	h          uint32
	windowSize uint32
}

// NewBuzHash creates a BuzHash over a window of windowSize bytes.
func NewBuzHash(windowSize uint32) *BuzHash {
	return &BuzHash{windowSize: windowSize}
}

// Roll advances the window: out is the byte falling off the trailing edge
// (zero while the window is still being primed), in is the new byte.
func (b *BuzHash) Roll(out, in byte) {
	b.h = bits.RotateLeft32(b.h, 1) ^
		bits.RotateLeft32(buzhashTable[out], int(b.windowSize)) ^
		buzhashTable[in]
}

// Digest returns the current hash state.
func (b *BuzHash) Digest() uint32 {
	return b.h
}

// Reset zeroes the hash state.
func (b *BuzHash) Reset() {
	b.h = 0
}
