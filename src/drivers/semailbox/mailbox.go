package semailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/pkg/errors"

	"emlib/src/drivers/cryptodrv"
	"emlib/src/hardware/efr32"
	"emlib/src/lib/trust"
)

// Mailbox is the hardware Execute drives.  Submit and Receive are called
// inside a critical region; Ready is polled outside it.
type Mailbox interface {
	Submit(cmd *Command) error
	Ready() bool
	Receive() (uint32, error)
}

var ErrTimeout = errors.New("semailbox: timed out waiting for the secure element")

// ResponseError is a response other than OK.
type ResponseError struct {
	Command  uint32
	Response uint32
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("semailbox: command 0x%08x failed with response 0x%08x (%s)",
		e.Command, e.Response, responseName(e.Response))
}

func responseName(r uint32) string {
	switch r {
	case efr32.SEResponseInvalidCommand:
		return "invalid command"
	case efr32.SEResponseAuthorizationError:
		return "authorization error"
	case efr32.SEResponseBusError:
		return "bus error"
	case efr32.SEResponseInvalidParameter:
		return "invalid parameter"
	}
	return "unknown"
}

var log = trust.NewLogger("semailbox")

// Execute runs cmd on mb.  oc must be bound to the device guarding the
// mailbox; it is arbitrated for the duration of the command and released
// on return.  ErrTimeout is returned when no response arrives within
// timeout.
func Execute(ctx context.Context, oc *cryptodrv.OwnerContext, mb Mailbox, cmd *Command, timeout time.Duration) error {
	if err := cryptodrv.Arbitrate(ctx, oc); err != nil {
		return err
	}
	err := execute(ctx, oc, mb, cmd, timeout)
	if rerr := cryptodrv.Release(oc); err == nil {
		err = rerr
	}
	return err
}

// locked runs fn inside oc's critical region.
func locked(ctx context.Context, oc *cryptodrv.OwnerContext, fn func() error) error {
	if err := cryptodrv.EnterCriticalRegion(ctx, oc); err != nil {
		return err
	}
	err := fn()
	if xerr := cryptodrv.ExitCriticalRegion(oc); err == nil {
		err = xerr
	}
	return err
}

func execute(ctx context.Context, oc *cryptodrv.OwnerContext, mb Mailbox, cmd *Command, timeout time.Duration) error {
	if err := locked(ctx, oc, func() error { return mb.Submit(cmd) }); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	b := &backoff.Backoff{Min: 20 * time.Microsecond, Max: 2 * time.Millisecond, Factor: 2}
	for !mb.Ready() {
		if time.Now().After(deadline) {
			log.Warnf("command 0x%08x: no response after %v", cmd.ID, timeout)
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "semailbox: command 0x%08x", cmd.ID)
		case <-time.After(b.Duration()):
		}
	}

	var resp uint32
	err := locked(ctx, oc, func() (err error) {
		resp, err = mb.Receive()
		return err
	})
	if err != nil {
		return err
	}
	log.Debugf("command 0x%08x: response 0x%08x after %d polls", cmd.ID, resp, int(b.Attempt()))
	if resp != efr32.SEResponseOK {
		return &ResponseError{Command: cmd.ID, Response: resp}
	}
	return nil
}
