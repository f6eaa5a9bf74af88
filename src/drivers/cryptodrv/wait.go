package cryptodrv

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"

	"emlib/src/hardware/efr32"
)

const busyBits = efr32.CryptoStatusSeqRunning | efr32.CryptoStatusInstrRunning

// WaitSequencer polls STATUS until the sequencer and instruction engine
// are idle.  It is called inside oc's critical region, so the device
// cannot change hands while it waits.
func WaitSequencer(ctx context.Context, oc *OwnerContext) error {
	d := oc.mustBind("WaitSequencer")
	if !oc.holdsRegion() {
		fatal("WaitSequencer", "called outside a critical region of CRYPTO%d", d.Index)
	}
	b := &backoff.Backoff{Min: 10 * time.Microsecond, Max: time.Millisecond, Factor: 2}
	for d.Regs.Status.Get()&busyBits != 0 {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "cryptodrv: CRYPTO%d sequencer still running", d.Index)
		case <-time.After(b.Duration()):
		}
	}
	return nil
}

// ArbitrateWait retries Arbitrate until it succeeds or ctx is done.  It is
// for callers that would rather wait than handle ErrBusy.
func ArbitrateWait(ctx context.Context, oc *OwnerContext) error {
	b := &backoff.Backoff{Min: 50 * time.Microsecond, Max: 5 * time.Millisecond, Factor: 2, Jitter: true}
	for {
		err := Arbitrate(ctx, oc)
		if !IsBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "cryptodrv: waiting to arbitrate")
		case <-time.After(b.Duration()):
		}
	}
}
