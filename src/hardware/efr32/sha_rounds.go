package efr32

import "math/bits"

// The SHA instruction runs the compression rounds over the state in DDATA0
// and the block in QDATA1 but leaves out the final feed-forward addition;
// a sequence follows it with MADD32 to merge in the previous state.
// State word H[i] lives in DDATA0 word 7-i, so the big-endian port reads
// H0 first.

var sha256K = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3, 0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc, 0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7, 0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13, 0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3, 0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5, 0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208, 0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

func sha256Rounds(state *[CryptoDDataWords]uint32, block *[16]uint32) {
	var w [64]uint32
	copy(w[:], block[:])
	for t := 16; t < 64; t++ {
		v1 := w[t-2]
		s1 := bits.RotateLeft32(v1, -17) ^ bits.RotateLeft32(v1, -19) ^ (v1 >> 10)
		v2 := w[t-15]
		s0 := bits.RotateLeft32(v2, -7) ^ bits.RotateLeft32(v2, -18) ^ (v2 >> 3)
		w[t] = s1 + w[t-7] + s0 + w[t-16]
	}

	a, b, c, d := state[7], state[6], state[5], state[4]
	e, f, g, h := state[3], state[2], state[1], state[0]
	for t := 0; t < 64; t++ {
		t1 := h + (bits.RotateLeft32(e, -6) ^ bits.RotateLeft32(e, -11) ^ bits.RotateLeft32(e, -25)) +
			((e & f) ^ (^e & g)) + sha256K[t] + w[t]
		t2 := (bits.RotateLeft32(a, -2) ^ bits.RotateLeft32(a, -13) ^ bits.RotateLeft32(a, -22)) +
			((a & b) ^ (a & c) ^ (b & c))
		h = g
		g = f
		f = e
		e = d + t1
		d = c
		c = b
		b = a
		a = t1 + t2
	}
	state[7], state[6], state[5], state[4] = a, b, c, d
	state[3], state[2], state[1], state[0] = e, f, g, h
}

func sha1Rounds(state *[CryptoDDataWords]uint32, block *[16]uint32) {
	var w [80]uint32
	copy(w[:], block[:])
	for t := 16; t < 80; t++ {
		w[t] = bits.RotateLeft32(w[t-3]^w[t-8]^w[t-14]^w[t-16], 1)
	}

	a, b, c, d, e := state[7], state[6], state[5], state[4], state[3]
	for t := 0; t < 80; t++ {
		var f, k uint32
		switch {
		case t < 20:
			f = (b & c) | (^b & d)
			k = 0x5A827999
		case t < 40:
			f = b ^ c ^ d
			k = 0x6ED9EBA1
		case t < 60:
			f = (b & c) | (b & d) | (c & d)
			k = 0x8F1BBCDC
		default:
			f = b ^ c ^ d
			k = 0xCA62C1D6
		}
		tmp := bits.RotateLeft32(a, 5) + f + e + k + w[t]
		e = d
		d = c
		c = bits.RotateLeft32(b, 30)
		b = a
		a = tmp
	}
	state[7], state[6], state[5], state[4], state[3] = a, b, c, d, e
}
