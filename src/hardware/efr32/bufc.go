package efr32

import "sync"

// BUFCBuffer is one circular buffer of the buffer controller, holding
// 32 bit words.  Software writes and reads through WriteData/ReadData; a
// peripheral routed to the buffer uses PullWord/PushWord.
type BUFCBuffer struct {
	Number int

	mu        sync.Mutex
	fifo      []uint32
	capacity  int
	overflow  bool
	underflow bool
}

func (b *BUFCBuffer) WriteData(w uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.fifo) == b.capacity {
		b.overflow = true
		return false
	}
	b.fifo = append(b.fifo, w)
	return true
}

func (b *BUFCBuffer) ReadData() (uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.fifo) == 0 {
		b.underflow = true
		return 0, false
	}
	w := b.fifo[0]
	b.fifo = b.fifo[1:]
	return w, true
}

func (b *BUFCBuffer) PullWord() (uint32, bool) {
	return b.ReadData()
}

func (b *BUFCBuffer) PushWord(w uint32) bool {
	return b.WriteData(w)
}

// Level is the number of words in the buffer.
func (b *BUFCBuffer) Level() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.fifo)
}

func (b *BUFCBuffer) Capacity() int {
	return b.capacity
}

// Clear empties the buffer and resets both error flags.
func (b *BUFCBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fifo = b.fifo[:0]
	b.overflow = false
	b.underflow = false
}

func (b *BUFCBuffer) Overflow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflow
}

func (b *BUFCBuffer) Underflow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.underflow
}

type BUFC struct {
	Buffers []*BUFCBuffer
}

func NewBUFC(buffers int, words int) *BUFC {
	b := &BUFC{}
	for i := 0; i < buffers; i++ {
		b.Buffers = append(b.Buffers, &BUFCBuffer{
			Number:   i,
			fifo:     make([]uint32, 0, words),
			capacity: words,
		})
	}
	return b
}
