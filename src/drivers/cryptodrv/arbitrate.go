package cryptodrv

import (
	"context"
	"sync/atomic"

	"emlib/src/hardware/efr32"
)

// Arbitrate makes oc the owner of its device.  An idle device is taken at
// once and its clock turned on.  An owned device is taken only when the
// calling thread (see WithThread) has a strictly higher priority than the
// owner: the owner's running sequence is stopped, its registers and
// callback are saved into it, and oc is pushed in front of it.  Otherwise
// ErrBusy is returned and nothing changes.
//
// Arbitrate does not wait for ownership, but it does wait for a critical
// region in progress on the device to end.
func Arbitrate(ctx context.Context, oc *OwnerContext) error {
	d := oc.mustBind("Arbitrate")
	th := ThreadFromContext(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if oc.linked {
		fatal("Arbitrate", "context already on the stack of CRYPTO%d", d.Index)
	}

	prev := d.owner()
	if prev == nil {
		d.clockEnable()
		atomic.StoreInt32(&d.busy, 1)
	} else {
		if th.Priority <= prev.priority {
			d.log.Debugf("CRYPTO%d: thread %d (prio %d) busy, owner thread %d (prio %d)",
				d.Index, th.ID, th.Priority, prev.threadID, prev.priority)
			return ErrBusy
		}
		d.preempt(prev)
		d.log.Debugf("CRYPTO%d: thread %d (prio %d) preempts thread %d (prio %d), aborted=%v",
			d.Index, th.ID, th.Priority, prev.threadID, prev.priority, prev.aborted)
	}

	oc.aborted = false
	oc.threadID = th.ID
	oc.priority = th.Priority
	d.owners.PushNode(&oc.node)
	oc.linked = true
	d.setCallback(nil, nil)
	d.broadcast()
	return nil
}

// preempt stops and saves the live owner.  Caller holds d.mu.
func (d *Device) preempt(prev *OwnerContext) {
	status := d.Regs.Status.Get()
	prev.aborted = status&(efr32.CryptoStatusSeqRunning|efr32.CryptoStatusInstrRunning) != 0
	if prev.aborted {
		d.Regs.Cmd.Set(efr32.CryptoCmdSeqStop)
	}
	prev.state.save(d.Regs)

	d.cbMu.Lock()
	prev.callback, prev.callbackArg = d.callback, d.callbackArg
	d.cbMu.Unlock()
}

// Release takes oc off its device's preemption stack.  When oc was the
// owner and had preempted another context, that context's registers and
// callback are restored and it becomes the owner; a thread waiting for it
// in EnterCriticalRegion resumes.  When oc was the only context the device
// goes idle and its clock is gated.  Releasing a context further down the
// stack only relinks it.
func Release(oc *OwnerContext) error {
	d := oc.mustBind("Release")
	if oc.holdsRegion() {
		fatal("Release", "context is inside a critical region of CRYPTO%d", d.Index)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !oc.linked {
		fatal("Release", "context does not hold CRYPTO%d", d.Index)
	}

	wasOwner := oc.node.Prev() == nil
	next := oc.node.Next()
	d.owners.Remove(&oc.node)
	oc.linked = false

	switch {
	case d.owners.Empty():
		d.clockDisable()
		atomic.StoreInt32(&d.busy, 0)
		d.log.Debugf("CRYPTO%d: idle", d.Index)
	case wasOwner && next != nil:
		resumed := next.Value()
		resumed.state.restore(d.Regs)
		d.setCallback(resumed.callback, resumed.callbackArg)
		d.log.Debugf("CRYPTO%d: thread %d resumes", d.Index, resumed.threadID)
	}
	d.broadcast()
	return nil
}
