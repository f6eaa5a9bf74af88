package cryptodrv

import (
	"context"
	"sync/atomic"

	"github.com/pkg/errors"

	"emlib/src/hardware/efr32"
)

func (d *Device) lineBit() (int, uint32) {
	return int(d.IRQ) / 32, 1 << uint(int(d.IRQ)%32)
}

// EnterCriticalRegion waits until oc owns its device, then masks every
// NVIC line except the device's own and those of devices already inside
// a region.  The lines that were enabled are remembered for
// ExitCriticalRegion.  Regions do not nest.
//
// The wait is the only place a preempted operation blocks; it ends when
// the preemptor releases.  A cancelled ctx ends it with ctx.Err().
func EnterCriticalRegion(ctx context.Context, oc *OwnerContext) error {
	d := oc.mustBind("EnterCriticalRegion")
	if oc.holdsRegion() {
		fatal("EnterCriticalRegion", "region of CRYPTO%d entered twice", d.Index)
	}
	for {
		d.mu.Lock()
		if !oc.linked {
			d.mu.Unlock()
			fatal("EnterCriticalRegion", "context does not hold CRYPTO%d", d.Index)
		}
		if d.owner() == oc {
			break
		}
		wait := d.changed
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "cryptodrv: waiting for CRYPTO%d", d.Index)
		case <-wait:
		}
	}

	word, bit := d.lineBit()
	d.regions.mu.Lock()
	d.regions.lines[word] |= bit
	for i := range d.savedMask {
		d.savedMask[i] = d.nvic.EnabledMask(i)
		d.nvic.ClearEnableMask(i, ^d.regions.lines[i])
	}
	d.regions.mu.Unlock()
	// a region on another device may have masked this line
	if d.Regs.IEN.HasBits(efr32.CryptoIntSeqDone) {
		d.nvic.EnableIRQ(d.IRQ)
	}
	atomic.StoreInt32(&oc.inRegion, 1)
	return nil
}

// ExitCriticalRegion enables again the lines masked by the matching
// EnterCriticalRegion.  Lines enabled inside the region stay enabled.
func ExitCriticalRegion(oc *OwnerContext) error {
	d := oc.mustBind("ExitCriticalRegion")
	if !oc.holdsRegion() {
		fatal("ExitCriticalRegion", "no region of CRYPTO%d to exit", d.Index)
	}
	word, bit := d.lineBit()
	d.regions.mu.Lock()
	d.regions.lines[word] &^= bit
	d.regions.mu.Unlock()
	for i, m := range d.savedMask {
		d.nvic.SetEnableMask(i, m)
	}
	atomic.StoreInt32(&oc.inRegion, 0)
	d.mu.Unlock()
	return nil
}
