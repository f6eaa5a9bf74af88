package upbeat

import (
	"emlib/src/lib/trust"
)

type BitSet struct {
	size uint32
	data []uint64
}

type BitIndex uint32

//bitsets have to be multiples of 64.  returns nil for a bad size.
func NewBitSet(size uint32) *BitSet {
	mask := ^(uint32(0x3f))
	if size&mask != size || size == 0 {
		trust.Errorf("your bitset size is not a multiple of 64: %d", size)
		return nil
	}
	return &BitSet{
		data: make([]uint64, size>>6),
		size: size,
	}
}

func (b *BitSet) Size() uint32 {
	return b.size
}

func (b *BitSet) On(bit BitIndex) bool {
	boff := bit >> 6                //which uint64
	mask := uint64(1) << (bit % 64) //which bit in the right
	return b.data[boff]&mask != 0
}

func (b *BitSet) Set(bit BitIndex) {
	b.data[bit>>6] |= uint64(1) << (bit % 64)
}

func (b *BitSet) Clear(bit BitIndex) {
	b.data[bit>>6] &^= uint64(1) << (bit % 64)
}

func (b *BitSet) ClearAll() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// Word32 returns bits [32*i, 32*i+31] as a word, the way a 32 bit wide
// register bank would present them.
func (b *BitSet) Word32(i int) uint32 {
	return uint32(b.data[i>>1] >> (32 * uint(i&1)))
}

// SetWord32 turns on every bit of word i that is set in mask.
func (b *BitSet) SetWord32(i int, mask uint32) {
	b.data[i>>1] |= uint64(mask) << (32 * uint(i&1))
}

// ClearWord32 turns off every bit of word i that is set in mask.
func (b *BitSet) ClearWord32(i int, mask uint32) {
	b.data[i>>1] &^= uint64(mask) << (32 * uint(i&1))
}

// Words32 is the number of 32 bit words in the set.
func (b *BitSet) Words32() int {
	return int(b.size >> 5)
}
