// Package volatile provides register cells with the same surface as
// TinyGo's runtime/volatile.Register32.  On a host there is no memory
// mapped I/O, so a peripheral emulation attaches load/store hooks to the
// registers that have side effects.
package volatile

import "sync/atomic"

type Register32 struct {
	Reg uint32

	load  func() uint32
	store func(uint32)
}

// Attach gives the register side effects.  Either hook may be nil, in
// which case that direction uses the backing word.
func (r *Register32) Attach(load func() uint32, store func(uint32)) {
	r.load = load
	r.store = store
}

// Get returns the value in the register.
func (r *Register32) Get() uint32 {
	if r.load != nil {
		return r.load()
	}
	return atomic.LoadUint32(&r.Reg)
}

// Set updates the register value.
func (r *Register32) Set(value uint32) {
	if r.store != nil {
		r.store(value)
		return
	}
	atomic.StoreUint32(&r.Reg, value)
}

// Latch stores into the backing word without running the store hook. The
// emulated hardware uses this to update status registers it owns.
func (r *Register32) Latch(value uint32) {
	atomic.StoreUint32(&r.Reg, value)
}

// SetBits reads the register, sets the given bits, and writes it back.
func (r *Register32) SetBits(value uint32) {
	r.Set(r.Get() | value)
}

// ClearBits reads the register, clears the given bits, and writes it back.
func (r *Register32) ClearBits(value uint32) {
	r.Set(r.Get() &^ value)
}

// HasBits reads the register and then checks to see if the passed bits are
// set.
func (r *Register32) HasBits(value uint32) bool {
	return (r.Get() & value) > 0
}

// ReplaceBits replaces the bits selected by mask<<pos with value<<pos.
func (r *Register32) ReplaceBits(value uint32, mask uint32, pos uint8) {
	r.Set(r.Get()&^(mask<<pos) | value<<pos)
}
