// Package semailbox issues commands to the secure element through its
// mailbox.  Commands are serialised against other users of the guarding
// device with the same arbitration the CRYPTO drivers use.
package semailbox

import (
	"fmt"

	"emlib/src/drivers/cryptodrv"
)

// MaxParameters is the most parameter words one command carries.
const MaxParameters = 4

// DataTransfer is a buffer the secure element reads or writes.
type DataTransfer struct {
	Data []byte
}

// Command is one mailbox request.
type Command struct {
	ID         uint32
	parameters [MaxParameters]uint32
	count      int
	Input      *DataTransfer
	Output     *DataTransfer
}

func NewCommand(id uint32) *Command {
	return &Command{ID: id}
}

// AddParameter appends a parameter word.  More than MaxParameters is a
// programming error and panics.
func (c *Command) AddParameter(p uint32) {
	if c.count == MaxParameters {
		panic(&cryptodrv.FatalInternalError{
			Op:  "semailbox.AddParameter",
			Msg: fmt.Sprintf("command 0x%08x already has %d parameters", c.ID, MaxParameters),
		})
	}
	c.parameters[c.count] = p
	c.count++
}

// Parameters returns the parameter words added so far.
func (c *Command) Parameters() []uint32 {
	return c.parameters[:c.count]
}

// AddDataInput names the buffer the command reads.
func (c *Command) AddDataInput(b []byte) {
	c.Input = &DataTransfer{Data: b}
}

// AddDataOutput names the buffer the command fills.
func (c *Command) AddDataOutput(b []byte) {
	c.Output = &DataTransfer{Data: b}
}
