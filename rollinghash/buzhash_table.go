package rollinghash

// buzhashTable holds the 256 constants BuzHash XORs into its state, one per
// possible byte value. Per spec, any two implementations must agree on this
// table bit-for-bit to keep archives interoperable, so it is generated once,
// deterministically, by a documented key schedule rather than left to a
// runtime-seeded PRNG: a splitmix64 stream seeded with a fixed constant,
// truncated to the low 32 bits of each 64-bit output. Being pure and
// seed-fixed, this produces the same 256 values on every build.
var buzhashTable = computeBuzhashTable()

const buzhashTableSeed uint64 = 0x9E3779B97F4A7C15

func splitmix64Next(state *uint64) uint64 {
	*state += 0x9E3779B97F4A7C15
	z := *state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func computeBuzhashTable() [256]uint32 {
	var table [256]uint32
	state := buzhashTableSeed
	for i := range table {
		table[i] = uint32(splitmix64Next(&state))
	}
	return table
}
