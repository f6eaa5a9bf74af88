// Package aesdrv runs AES-128 and AES-256 in ECB and CBC mode on the
// CRYPTO accelerator, with blocks moved by the CPU, by LDMA or through
// BUFC buffers.
package aesdrv

import (
	"context"
	"encoding/binary"
	"strconv"

	"github.com/pkg/errors"

	"emlib/src/drivers/cryptodrv"
	"emlib/src/hardware/efr32"
	"emlib/src/lib/trust"
)

const BlockSize = 16

const wordsPerBlock = BlockSize / 4

// maxLengthA is the longest run SEQCTRL.LENGTHA can describe, in whole
// blocks.
const maxLengthA = efr32.CryptoSeqCtrlLengthAMask &^ (BlockSize - 1)

type KeySizeError int

func (k KeySizeError) Error() string {
	return "aesdrv: invalid key size " + strconv.Itoa(int(k))
}

var ErrInvalidLength = errors.New("aesdrv: input not a whole number of blocks")

var log = trust.NewLogger("aesdrv")

// Context is an AES key bound to one device and I/O mode.
type Context struct {
	owner  cryptodrv.OwnerContext
	dev    *cryptodrv.Device
	mode   IOMode
	params IOModeParams
	key    [8]uint32
	aes256 bool
	keySet bool
}

// Init binds c to dev in core mode.
func (c *Context) Init(dev *cryptodrv.Device) {
	*c = Context{dev: dev}
}

// SetIOMode changes how blocks are moved.  The channels or buffers in
// params are used by every later operation.
func (c *Context) SetIOMode(mode IOMode, params IOModeParams) error {
	if err := params.check(mode); err != nil {
		return err
	}
	c.mode, c.params = mode, params
	return nil
}

func (c *Context) IOMode() IOMode {
	return c.mode
}

// SetKey takes a 16 or 32 byte key.
func (c *Context) SetKey(key []byte) error {
	switch len(key) {
	case 16, 32:
	default:
		return KeySizeError(len(key))
	}
	c.key = [8]uint32{}
	for i := 0; i < len(key)/4; i++ {
		c.key[i] = binary.LittleEndian.Uint32(key[4*i:])
	}
	c.aes256 = len(key) == 32
	c.keySet = true
	return nil
}

// ECB encrypts or decrypts src into dst block by block.
func (c *Context) ECB(ctx context.Context, encrypt bool, dst, src []byte) error {
	return c.run(ctx, cryptodrv.Arbitrate, dst, src, nil, ecbOps(encrypt))
}

func ecbOps(encrypt bool) []uint8 {
	if encrypt {
		return []uint8{efr32.InstrAESEnc}
	}
	return []uint8{efr32.InstrAESDec}
}

// CBC encrypts or decrypts src into dst chained from iv.  iv is not
// updated.
func (c *Context) CBC(ctx context.Context, encrypt bool, dst, src, iv []byte) error {
	if len(iv) != BlockSize {
		return errors.Wrapf(ErrInvalidLength, "iv of %d bytes", len(iv))
	}
	// DATA1 carries the chaining value between blocks; DATA2 holds the
	// ciphertext while a block is decrypted.
	ops := []uint8{
		efr32.InstrData0ToData2,
		efr32.InstrAESDec,
		efr32.InstrData1ToData0XOR,
		efr32.InstrData2ToData1,
	}
	if encrypt {
		ops = []uint8{
			efr32.InstrData1ToData0XOR,
			efr32.InstrAESEnc,
			efr32.InstrData0ToData1,
		}
	}
	return c.run(ctx, cryptodrv.Arbitrate, dst, src, iv, ops)
}

type acquireFunc func(context.Context, *cryptodrv.OwnerContext) error

func (c *Context) run(ctx context.Context, acquire acquireFunc, dst, src, iv []byte, ops []uint8) error {
	if c.dev == nil {
		panic(&cryptodrv.FatalInternalError{Op: "aesdrv", Msg: "context used before Init"})
	}
	if !c.keySet {
		return errors.New("aesdrv: no key set")
	}
	if len(src)%BlockSize != 0 {
		return errors.Wrapf(ErrInvalidLength, "%d bytes", len(src))
	}
	if len(dst) < len(src) {
		return errors.Wrapf(ErrInvalidLength, "output of %d bytes for %d bytes of input", len(dst), len(src))
	}
	if len(src) == 0 {
		return nil
	}

	c.owner.Init(c.dev)
	if err := acquire(ctx, &c.owner); err != nil {
		return err
	}
	defer cryptodrv.Release(&c.owner)

	if err := c.program(ctx, iv, ops); err != nil {
		return err
	}
	step := c.params.chunkBlocks(c.mode) * BlockSize
	for off := 0; off < len(src); off += step {
		end := off + step
		if end > len(src) {
			end = len(src)
		}
		if err := c.chunk(ctx, dst[off:end], src[off:end]); err != nil {
			return err
		}
	}
	log.Debugf("CRYPTO%d: %d bytes in %v mode", c.dev.Index, len(src), c.mode)
	return nil
}

// program loads the key, chaining value and sequence.
func (c *Context) program(ctx context.Context, iv []byte, ops []uint8) error {
	if err := cryptodrv.EnterCriticalRegion(ctx, &c.owner); err != nil {
		return err
	}
	defer cryptodrv.ExitCriticalRegion(&c.owner)

	r := c.dev.Regs
	ctrl := uint32(efr32.CryptoDMARSelData0<<efr32.CryptoCtrlDMA0RSelShift |
		efr32.CryptoDMARSelData0<<efr32.CryptoCtrlDMA1RSelShift)
	if c.aes256 {
		ctrl |= efr32.CryptoCtrlAES256
	}
	r.Ctrl.Set(ctrl)
	r.Wac.Set(0)
	r.SeqCtrlB.Set(0)
	for _, w := range c.key {
		r.KeyBuf.Set(w)
	}
	if iv != nil {
		for i := 0; i < wordsPerBlock; i++ {
			r.Data[1].Set(binary.LittleEndian.Uint32(iv[4*i:]))
		}
	}
	for i, w := range efr32.SequenceWords(wrap(c.mode, ops...)...) {
		r.Seq[i].Set(w)
	}
	return nil
}

func toWords(b []byte) []uint32 {
	w := make([]uint32, len(b)/4)
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return w
}

func fromWords(b []byte, w []uint32) {
	for i, v := range w {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
}

// chunk runs the sequence over src, which fits one sequencer run of the
// current mode.
func (c *Context) chunk(ctx context.Context, dst, src []byte) error {
	in := toWords(src)
	out := make([]uint32, len(in))

	if err := cryptodrv.EnterCriticalRegion(ctx, &c.owner); err != nil {
		return err
	}
	defer cryptodrv.ExitCriticalRegion(&c.owner)
	r := c.dev.Regs
	r.SeqCtrl.Set(uint32(len(src)) | efr32.CryptoSeqCtrlBlockSize16)
	c.params.route(c.dev.Hardware, c.mode)

	switch c.mode {
	case IOModeCore:
		for _, w := range in {
			r.Data[0].Set(w)
		}
		r.Cmd.SetBits(efr32.CryptoCmdSeqStart)
		if err := cryptodrv.WaitSequencer(ctx, &c.owner); err != nil {
			return err
		}
		for i := range out {
			out[i] = r.Data[0].Get()
		}

	case IOModeDMA:
		c.params.InputChannel.MemoryToPeripheral(in)
		c.params.OutputChannel.PeripheralToMemory(out)
		r.Cmd.SetBits(efr32.CryptoCmdSeqStart)
		if err := cryptodrv.WaitSequencer(ctx, &c.owner); err != nil {
			return err
		}
		if !c.params.OutputChannel.Done() {
			c.params.InputChannel.Stop()
			c.params.OutputChannel.Stop()
			return errors.Errorf("aesdrv: CRYPTO%d dma transfer incomplete", c.dev.Index)
		}

	case IOModeBUFC:
		c.params.InputBuffer.Clear()
		c.params.OutputBuffer.Clear()
		for _, w := range in {
			c.params.InputBuffer.WriteData(w)
		}
		r.Cmd.SetBits(efr32.CryptoCmdSeqStart)
		if err := cryptodrv.WaitSequencer(ctx, &c.owner); err != nil {
			return err
		}
		for i := range out {
			w, ok := c.params.OutputBuffer.ReadData()
			if !ok {
				return errors.Errorf("aesdrv: CRYPTO%d bufc output short by %d words", c.dev.Index, len(out)-i)
			}
			out[i] = w
		}
	}
	fromWords(dst, out)
	return nil
}
