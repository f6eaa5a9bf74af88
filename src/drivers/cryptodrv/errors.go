package cryptodrv

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrBusy is returned by Arbitrate when the device is owned by a context
// whose priority is not lower than the caller's.  It is the only error a
// client is expected to handle.
var ErrBusy = errors.New("cryptodrv: device busy")

// FatalInternalError is the panic value of a broken precondition: an
// unknown device, a context used before Init, a region entered twice.
type FatalInternalError struct {
	Op  string
	Msg string
}

func (e *FatalInternalError) Error() string {
	return fmt.Sprintf("cryptodrv: %s: %s", e.Op, e.Msg)
}

func fatal(op string, format string, params ...interface{}) {
	panic(&FatalInternalError{Op: op, Msg: fmt.Sprintf(format, params...)})
}

// IsBusy reports whether err, or the error it wraps, is ErrBusy.
func IsBusy(err error) bool {
	return errors.Cause(err) == ErrBusy
}
