package cryptodrv

import "sync/atomic"

// OwnerContext is the bookkeeping of one operation that uses a device.
// Clients embed it in their own context (a hash or cipher context) and
// call Init once before the first Arbitrate.  It must not be copied after
// Init.
type OwnerContext struct {
	node   OwnerContextNodeDL
	device *Device

	threadID uint32
	priority int
	aborted  bool
	linked   bool
	inRegion int32

	state       hardwareState
	callback    AsynchCallback
	callbackArg interface{}
}

// Init binds the context to d.  A context still on a preemption stack
// cannot be re-bound.
func (oc *OwnerContext) Init(d *Device) {
	if oc.linked {
		fatal("Init", "context is still on the stack of CRYPTO%d", oc.device.Index)
	}
	*oc = OwnerContext{device: d}
	oc.node = NewOwnerContextNodeDL(oc)
}

func (oc *OwnerContext) Device() *Device {
	return oc.device
}

// ThreadID and Priority are the caller identity captured by the last
// successful Arbitrate.
func (oc *OwnerContext) ThreadID() uint32 {
	defer oc.lock()()
	return oc.threadID
}

func (oc *OwnerContext) Priority() int {
	defer oc.lock()()
	return oc.priority
}

// Aborted reports whether a preemptor stopped this context's sequence
// while it was running.  The flag is kept across the restore so a resumed
// operation can tell its result may be incomplete.
func (oc *OwnerContext) Aborted() bool {
	defer oc.lock()()
	return oc.aborted
}

// Preemptor is the context that took the device from oc, if any.
func (oc *OwnerContext) Preemptor() *OwnerContext {
	defer oc.lock()()
	if p := oc.node.Prev(); p != nil {
		return p.Value()
	}
	return nil
}

// Preempted is the context oc took the device from, if any.
func (oc *OwnerContext) Preempted() *OwnerContext {
	defer oc.lock()()
	if n := oc.node.Next(); n != nil {
		return n.Value()
	}
	return nil
}

func (oc *OwnerContext) mustBind(op string) *Device {
	if oc.device == nil {
		fatal(op, "context used before Init")
	}
	return oc.device
}

// lock takes the device lock unless oc's own critical region already
// holds it, and returns the matching unlock.
func (oc *OwnerContext) lock() func() {
	d := oc.mustBind("lock")
	if oc.holdsRegion() {
		return func() {}
	}
	d.mu.Lock()
	return d.mu.Unlock
}

func (oc *OwnerContext) holdsRegion() bool {
	return atomic.LoadInt32(&oc.inRegion) != 0
}
