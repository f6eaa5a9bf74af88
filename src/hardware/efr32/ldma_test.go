package efr32

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLDMAChannel(t *testing.T) {
	ch := NewLDMA(1).Channels[0]
	_, ok := ch.PullWord()
	assert.False(t, ok, "idle channel")

	ch.MemoryToPeripheral([]uint32{1, 2})
	assert.False(t, ch.PushWord(9), "wrong direction")
	w, ok := ch.PullWord()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), w)
	assert.Equal(t, 1, ch.Remaining())
	ch.Stop()
	assert.True(t, ch.Done())

	buf := make([]uint32, 2)
	ch.PeripheralToMemory(buf)
	assert.True(t, ch.PushWord(5))
	assert.True(t, ch.PushWord(6))
	assert.False(t, ch.PushWord(7))
	assert.Equal(t, []uint32{5, 6}, buf)
}

func TestBUFCBuffer(t *testing.T) {
	b := NewBUFC(1, 2).Buffers[0]
	assert.True(t, b.WriteData(1))
	assert.True(t, b.WriteData(2))
	assert.False(t, b.WriteData(3))
	assert.True(t, b.Overflow())
	assert.Equal(t, 2, b.Level())

	w, ok := b.ReadData()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), w)
	b.Clear()
	assert.Equal(t, 0, b.Level())
	assert.False(t, b.Overflow())
	_, ok = b.PullWord()
	assert.False(t, ok)
	assert.True(t, b.Underflow())
}
