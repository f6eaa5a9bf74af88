package aesdrv

import (
	"github.com/pkg/errors"

	"emlib/src/hardware/efr32"
)

// IOMode selects how blocks travel between memory and the accelerator.
type IOMode int

const (
	// IOModeCore moves every block through the data registers with CPU
	// writes and reads.
	IOModeCore IOMode = iota
	// IOModeDMA has LDMA channels feed the DMA0 request line and drain
	// DMA1.
	IOModeDMA
	// IOModeBUFC stages blocks in buffer controller buffers.
	IOModeBUFC
)

func (m IOMode) String() string {
	switch m {
	case IOModeCore:
		return "core"
	case IOModeDMA:
		return "dma"
	case IOModeBUFC:
		return "bufc"
	}
	return "unknown"
}

// IOModeParams names the channels or buffers a mode uses.  Core mode needs
// none.
type IOModeParams struct {
	InputChannel  *efr32.LDMAChannel
	OutputChannel *efr32.LDMAChannel
	InputBuffer   *efr32.BUFCBuffer
	OutputBuffer  *efr32.BUFCBuffer
}

var ErrInvalidIOMode = errors.New("aesdrv: invalid I/O mode")

func (p IOModeParams) check(m IOMode) error {
	switch m {
	case IOModeCore:
		return nil
	case IOModeDMA:
		if p.InputChannel == nil || p.OutputChannel == nil || p.InputChannel == p.OutputChannel {
			return errors.Wrap(ErrInvalidIOMode, "dma mode needs distinct input and output channels")
		}
		return nil
	case IOModeBUFC:
		if p.InputBuffer == nil || p.OutputBuffer == nil || p.InputBuffer == p.OutputBuffer {
			return errors.Wrap(ErrInvalidIOMode, "bufc mode needs distinct input and output buffers")
		}
		if p.InputBuffer.Capacity() < wordsPerBlock || p.OutputBuffer.Capacity() < wordsPerBlock {
			return errors.Wrap(ErrInvalidIOMode, "bufc buffers must hold a block")
		}
		return nil
	}
	return errors.Wrapf(ErrInvalidIOMode, "mode %d", int(m))
}

// chunkBlocks is how many blocks one sequencer run may handle in mode m.
func (p IOModeParams) chunkBlocks(m IOMode) int {
	switch m {
	case IOModeDMA:
		return maxLengthA / BlockSize
	case IOModeBUFC:
		in, out := p.InputBuffer.Capacity(), p.OutputBuffer.Capacity()
		if out < in {
			in = out
		}
		return in / wordsPerBlock
	}
	return 1
}

// wrap puts the mode's input and output instructions around the block
// operation.  Core mode has neither; software fills DATA0 before the
// sequence starts and reads it after.
func wrap(m IOMode, ops ...uint8) []uint8 {
	switch m {
	case IOModeDMA:
		return append(append([]uint8{efr32.InstrDMA0ToData}, ops...), efr32.InstrDataToDMA1)
	case IOModeBUFC:
		return append(append([]uint8{efr32.InstrBufToData0}, ops...), efr32.InstrData0ToBuf)
	}
	return ops
}

// route points the accelerator's word lines at the mode's channels or
// buffers.  Caller is inside the critical region.
func (p IOModeParams) route(c *efr32.Crypto, m IOMode) {
	switch m {
	case IOModeDMA:
		c.RouteDMA(p.InputChannel, p.OutputChannel)
	case IOModeBUFC:
		c.RouteBUFC(p.InputBuffer, p.OutputBuffer)
	}
}
