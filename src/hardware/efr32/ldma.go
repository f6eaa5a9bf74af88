package efr32

import "sync"

// LDMAChannel is one channel of the linked DMA controller, reduced to
// word-at-a-time transfers between a memory buffer and a peripheral
// request line.  A channel is either reading memory (the peripheral pulls
// words) or writing memory (the peripheral pushes words).
type LDMAChannel struct {
	Number int

	mu    sync.Mutex
	src   []uint32
	dst   []uint32
	index int
	busy  bool
}

// MemoryToPeripheral arms the channel to feed words to a peripheral.
func (ch *LDMAChannel) MemoryToPeripheral(words []uint32) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.src, ch.dst, ch.index, ch.busy = words, nil, 0, len(words) > 0
}

// PeripheralToMemory arms the channel to store words a peripheral emits.
func (ch *LDMAChannel) PeripheralToMemory(buf []uint32) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.src, ch.dst, ch.index, ch.busy = nil, buf, 0, len(buf) > 0
}

// PullWord is the peripheral side of a memory to peripheral transfer.
func (ch *LDMAChannel) PullWord() (uint32, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.busy || ch.src == nil {
		return 0, false
	}
	w := ch.src[ch.index]
	ch.index++
	ch.busy = ch.index < len(ch.src)
	return w, true
}

// PushWord is the peripheral side of a peripheral to memory transfer.
func (ch *LDMAChannel) PushWord(w uint32) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.busy || ch.dst == nil {
		return false
	}
	ch.dst[ch.index] = w
	ch.index++
	ch.busy = ch.index < len(ch.dst)
	return true
}

// Remaining is the number of words the channel still has to move.
func (ch *LDMAChannel) Remaining() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if !ch.busy {
		return 0
	}
	return len(ch.src) + len(ch.dst) - ch.index
}

func (ch *LDMAChannel) Done() bool {
	return ch.Remaining() == 0
}

// Stop abandons the transfer.
func (ch *LDMAChannel) Stop() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.busy = false
}

type LDMA struct {
	Channels []*LDMAChannel
}

func NewLDMA(channels int) *LDMA {
	l := &LDMA{}
	for i := 0; i < channels; i++ {
		l.Channels = append(l.Channels, &LDMAChannel{Number: i})
	}
	return l
}
