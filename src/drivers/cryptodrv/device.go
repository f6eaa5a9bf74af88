package cryptodrv

import (
	"sync"
	"sync/atomic"

	"emlib/src/hardware/efr32"
	"emlib/src/lib/trust"
)

// AsynchCallback runs in interrupt context when the owner's sequence
// completes.  It must not block and must not call Arbitrate or Release.
type AsynchCallback func(arg interface{})

// Device is one CRYPTO instance together with its arbiter: the owner
// stack, the NVIC mask saved by a critical region and the callback slot.
type Device struct {
	Index     int
	Regs      *efr32.CryptoRegisterMap
	IRQ       efr32.IRQ
	ClockMask uint32
	Hardware  *efr32.Crypto

	cmu     *efr32.CMURegisterMap
	clockMu *sync.Mutex
	regions *regionLines
	nvic    *efr32.NVIC
	log     *trust.Logger

	// mu is the arbitration lock.  The owner also holds it from
	// EnterCriticalRegion to ExitCriticalRegion.
	mu        sync.Mutex
	owners    OwnerContextDoublyLinkedList // First() is the live owner
	changed   chan struct{}
	savedMask []uint32
	busy      int32

	cbMu        sync.Mutex
	callback    AsynchCallback
	callbackArg interface{}
}

// regionLines are the NVIC lines of the devices inside a critical region.
// A region never masks another region's own line.
type regionLines struct {
	mu    sync.Mutex
	lines []uint32
}

// Table is the set of CRYPTO devices of a part.
type Table struct {
	devices []*Device
	clockMu sync.Mutex
	regions regionLines
}

// NewTable builds a device for every CRYPTO instance on p and installs
// their interrupt handlers.
func NewTable(p *efr32.Part) *Table {
	t := &Table{}
	t.regions.lines = make([]uint32, p.NVIC.Words())
	for i, c := range p.Crypto {
		d := &Device{
			Index:     i,
			Regs:      c.Regs,
			IRQ:       c.IRQ(),
			ClockMask: c.ClockMask(),
			Hardware:  c,
			cmu:       p.CMU,
			clockMu:   &t.clockMu,
			regions:   &t.regions,
			nvic:      p.NVIC,
			log:       trust.NewLogger("cryptodrv"),
			owners:    NewOwnerContextDoublyLinkedList(),
			changed:   make(chan struct{}),
			savedMask: make([]uint32, p.NVIC.Words()),
		}
		p.NVIC.SetHandler(d.IRQ, d.HandleInterrupt)
		t.devices = append(t.devices, d)
	}
	return t
}

func (t *Table) Len() int {
	return len(t.devices)
}

// Device returns device i.  An index past the table is fatal.
func (t *Table) Device(i int) *Device {
	if i < 0 || i >= len(t.devices) {
		fatal("Device", "no CRYPTO device %d", i)
	}
	return t.devices[i]
}

// CheckState returns ErrBusy if device i has an owner.  It does not wait
// for a critical region in progress and changes nothing.
func (t *Table) CheckState(i int) error {
	if atomic.LoadInt32(&t.Device(i).busy) != 0 {
		return ErrBusy
	}
	return nil
}

// owner is the context whose registers are live.  Caller holds d.mu.
func (d *Device) owner() *OwnerContext {
	if n := d.owners.First(); n != nil {
		return n.Value()
	}
	return nil
}

// Owner returns the current owner, or nil when the device is idle.
func (d *Device) Owner() *OwnerContext {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owner()
}

// Depth is the length of the preemption stack.
func (d *Device) Depth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.owners.Length()
}

// broadcast wakes every context waiting for ownership.  Caller holds d.mu.
func (d *Device) broadcast() {
	close(d.changed)
	d.changed = make(chan struct{})
}

func (d *Device) clockEnable() {
	d.clockMu.Lock()
	defer d.clockMu.Unlock()
	d.cmu.HFBusClkEn0.SetBits(d.ClockMask)
}

func (d *Device) clockDisable() {
	d.clockMu.Lock()
	defer d.clockMu.Unlock()
	d.cmu.HFBusClkEn0.ClearBits(d.ClockMask)
}

// ClockEnabled reports whether the instance's bus clock is on.
func (d *Device) ClockEnabled() bool {
	return d.cmu.HFBusClkEn0.HasBits(d.ClockMask)
}
