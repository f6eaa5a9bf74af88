package efr32

import (
	"context"
	"sync"

	"emlib/src/lib/upbeat"
)

// IRQ is an interrupt line number on the NVIC.
type IRQ int

// NVIC is the nested vectored interrupt controller, reduced to what the
// drivers touch: per line enable and pending bits and a vector table.
// Handlers run on the goroutine that calls Serve, which plays the part of
// the interrupt context.  Lower line numbers are delivered first.
type NVIC struct {
	mu       sync.Mutex
	lines    int
	enabled  *upbeat.BitSet
	pending  *upbeat.BitSet
	handlers []func()
	kick     chan struct{}
}

// NewNVIC returns a controller with at least the given number of lines,
// rounded up to a multiple of 64.
func NewNVIC(lines int) *NVIC {
	size := uint32((lines + 63) &^ 63)
	return &NVIC{
		lines:    int(size),
		enabled:  upbeat.NewBitSet(size),
		pending:  upbeat.NewBitSet(size),
		handlers: make([]func(), size),
		kick:     make(chan struct{}, 1),
	}
}

func (n *NVIC) Lines() int {
	return n.lines
}

// Words is the number of 32 line wide ISER/ICER words.
func (n *NVIC) Words() int {
	return n.enabled.Words32()
}

func (n *NVIC) check(irq IRQ) {
	if irq < 0 || int(irq) >= n.lines {
		panic("NVIC: interrupt line out of range")
	}
}

// signal wakes Serve.  Caller holds n.mu.
func (n *NVIC) signal() {
	select {
	case n.kick <- struct{}{}:
	default:
	}
}

func (n *NVIC) SetHandler(irq IRQ, h func()) {
	n.check(irq)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[irq] = h
}

func (n *NVIC) EnableIRQ(irq IRQ) {
	n.check(irq)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled.Set(upbeat.BitIndex(irq))
	if n.pending.On(upbeat.BitIndex(irq)) {
		n.signal()
	}
}

func (n *NVIC) DisableIRQ(irq IRQ) {
	n.check(irq)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled.Clear(upbeat.BitIndex(irq))
}

func (n *NVIC) IsEnabled(irq IRQ) bool {
	n.check(irq)
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled.On(upbeat.BitIndex(irq))
}

func (n *NVIC) SetPendingIRQ(irq IRQ) {
	n.check(irq)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending.Set(upbeat.BitIndex(irq))
	if n.enabled.On(upbeat.BitIndex(irq)) {
		n.signal()
	}
}

func (n *NVIC) ClearPendingIRQ(irq IRQ) {
	n.check(irq)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending.Clear(upbeat.BitIndex(irq))
}

func (n *NVIC) IsPending(irq IRQ) bool {
	n.check(irq)
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending.On(upbeat.BitIndex(irq))
}

// EnabledMask reads ISER word i.
func (n *NVIC) EnabledMask(i int) uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled.Word32(i)
}

// SetEnableMask is a write to ISER word i: ones enable, zeros are ignored.
func (n *NVIC) SetEnableMask(i int, mask uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled.SetWord32(i, mask)
	if n.pending.Word32(i)&mask != 0 {
		n.signal()
	}
}

// ClearEnableMask is a write to ICER word i: ones disable, zeros are
// ignored.
func (n *NVIC) ClearEnableMask(i int, mask uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled.ClearWord32(i, mask)
}

// next picks the lowest numbered line that is enabled and pending and
// clears its pending bit, as exception entry does.
func (n *NVIC) next() (IRQ, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := 0; i < n.lines; i++ {
		b := upbeat.BitIndex(i)
		if n.enabled.On(b) && n.pending.On(b) {
			n.pending.Clear(b)
			return IRQ(i), n.handlers[i]
		}
	}
	return -1, nil
}

// DispatchPending runs the handler of every enabled, pending line on the
// calling goroutine and returns how many were delivered.
func (n *NVIC) DispatchPending() int {
	count := 0
	for {
		irq, h := n.next()
		if irq < 0 {
			return count
		}
		if h != nil {
			h()
		}
		count++
	}
}

// Serve delivers interrupts until ctx is done.
func (n *NVIC) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-n.kick:
		}
		n.DispatchPending()
	}
}
