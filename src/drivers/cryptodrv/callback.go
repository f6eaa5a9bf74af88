package cryptodrv

import "emlib/src/hardware/efr32"

// setCallback fills the device's callback slot.
func (d *Device) setCallback(cb AsynchCallback, arg interface{}) {
	d.cbMu.Lock()
	defer d.cbMu.Unlock()
	d.callback, d.callbackArg = cb, arg
}

// SetAsynchCallback registers cb to run with arg when the owner's
// sequence completes.  It must be called inside oc's critical region.  A
// nil cb clears the slot and disables the completion interrupt.
func SetAsynchCallback(oc *OwnerContext, cb AsynchCallback, arg interface{}) {
	d := oc.mustBind("SetAsynchCallback")
	if !oc.holdsRegion() {
		fatal("SetAsynchCallback", "called outside a critical region of CRYPTO%d", d.Index)
	}
	if cb == nil {
		d.setCallback(nil, nil)
		d.Regs.IEN.ClearBits(efr32.CryptoIntSeqDone)
		d.nvic.DisableIRQ(d.IRQ)
		return
	}
	d.setCallback(cb, arg)
	d.Regs.IFC.Set(^uint32(0))
	d.nvic.ClearPendingIRQ(d.IRQ)
	d.Regs.IEN.SetBits(efr32.CryptoIntSeqDone)
	d.nvic.EnableIRQ(d.IRQ)
}

// HandleInterrupt is the device's interrupt handler.  It acknowledges the
// enabled flags and runs the registered callback on sequence completion,
// for as long as flags keep arriving and the device's clock is on.  It
// never changes ownership.
func (d *Device) HandleInterrupt() {
	for d.ClockEnabled() {
		flags := d.Regs.IF.Get() & d.Regs.IEN.Get()
		if flags == 0 {
			return
		}
		d.Regs.IFC.Set(flags)
		d.nvic.ClearPendingIRQ(d.IRQ)
		if flags&efr32.CryptoIntSeqDone == 0 {
			d.log.Warnf("CRYPTO%d: unexpected interrupt flags 0x%x", d.Index, flags)
			continue
		}
		d.cbMu.Lock()
		cb, arg := d.callback, d.callbackArg
		d.cbMu.Unlock()
		if cb != nil {
			cb(arg)
		}
	}
}
