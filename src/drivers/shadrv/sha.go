// Package shadrv computes SHA-1, SHA-224 and SHA-256 on the CRYPTO
// accelerator.  A Context owns the device from Start to Finish; a higher
// priority caller may preempt it in between, in which case the context's
// next block waits until the device is handed back.
package shadrv

import (
	"context"
	"encoding/binary"
	"io"
	"strings"

	"github.com/pkg/errors"

	"emlib/src/drivers/cryptodrv"
	"emlib/src/hardware/efr32"
	"emlib/src/lib/trust"
)

type Variant int

const (
	SHA1 Variant = iota
	SHA224
	SHA256
)

func (v Variant) String() string {
	switch v {
	case SHA1:
		return "sha1"
	case SHA224:
		return "sha224"
	case SHA256:
		return "sha256"
	}
	return "unknown"
}

// ParseVariant accepts the names String returns, ignoring case and an
// optional dash ("SHA-256").
func ParseVariant(s string) (Variant, error) {
	switch strings.Replace(strings.ToLower(s), "-", "", 1) {
	case "sha1":
		return SHA1, nil
	case "sha224":
		return SHA224, nil
	case "sha256":
		return SHA256, nil
	}
	return 0, errors.Errorf("shadrv: unknown variant %q", s)
}

// BlockSize is the block size of all three variants in bytes.
const BlockSize = 64

// maxUpdate bounds one pass of the byte counter update so that the low
// word can carry at most once.
const maxUpdate = 1 << 30

// Size is the digest length of v in bytes.
func Size(v Variant) int {
	switch v {
	case SHA1:
		return 20
	case SHA224:
		return 28
	case SHA256:
		return 32
	}
	fatalVariant(v)
	return 0
}

// outputSize is how much of the output buffer Finish writes.  SHA-224
// fills the full 32 bytes and zeroes the last four.
func outputSize(v Variant) int {
	if v == SHA224 {
		return 32
	}
	return Size(v)
}

var sha1IV = []uint32{0x67452301, 0xEFCDAB89, 0x98BADCFE, 0x10325476, 0xC3D2E1F0}

var sha224IV = []uint32{
	0xC1059ED8, 0x367CD507, 0x3070DD17, 0xF70E5939,
	0xFFC00B31, 0x68581511, 0x64F98FA7, 0xBEFA4FA4,
}

var sha256IV = []uint32{
	0x6A09E667, 0xBB67AE85, 0x3C6EF372, 0xA54FF53A,
	0x510E527F, 0x9B05688C, 0x1F83D9AB, 0x5BE0CD19,
}

// blockSequence runs once per 64 byte block: compress, merge the previous
// state, keep the result for the next merge.
var blockSequence = efr32.SequenceWords(efr32.InstrSHA, efr32.InstrMAdd32, efr32.InstrDData0ToDData1)

var log = trust.NewLogger("shadrv")

// Context is one hash in progress.  It is owned by the caller and must
// not be copied once started.
type Context struct {
	owner   cryptodrv.OwnerContext
	variant Variant
	total   [2]uint32 // bytes hashed, low word first
	buffer  [BlockSize]byte
}

func fatalVariant(v Variant) {
	panic(&cryptodrv.FatalInternalError{Op: "shadrv", Msg: "unknown variant " + v.String()})
}

// Start takes the device and loads the initial hash value of v.  If the
// device is busy the error from cryptodrv.Arbitrate is returned and the
// context must not be used.
func (c *Context) Start(ctx context.Context, dev *cryptodrv.Device, v Variant) error {
	var iv []uint32
	switch v {
	case SHA1:
		iv = sha1IV
	case SHA224:
		iv = sha224IV
	case SHA256:
		iv = sha256IV
	default:
		fatalVariant(v)
	}

	c.owner.Init(dev)
	if err := cryptodrv.Arbitrate(ctx, &c.owner); err != nil {
		return err
	}
	c.variant = v
	c.total = [2]uint32{}

	if err := cryptodrv.EnterCriticalRegion(ctx, &c.owner); err != nil {
		cryptodrv.Release(&c.owner)
		return err
	}
	r := dev.Regs
	if v == SHA1 {
		r.Ctrl.Set(0)
	} else {
		r.Ctrl.Set(efr32.CryptoCtrlSHA2)
	}
	r.Wac.Set(0)
	r.SeqCtrl.Set(0)
	r.SeqCtrlB.Set(0)

	// DDATA1 is loaded least significant word first, so the state goes
	// in backwards; SHA-1 leaves the three low words zero.
	for i := len(iv); i < efr32.CryptoDDataWords; i++ {
		r.DData[1].Set(0)
	}
	for i := len(iv) - 1; i >= 0; i-- {
		r.DData[1].Set(iv[i])
	}
	r.Cmd.Set(efr32.InstrDData1ToDData0)
	for i, w := range blockSequence {
		r.Seq[i].Set(w)
	}
	cryptodrv.ExitCriticalRegion(&c.owner)

	log.Debugf("CRYPTO%d: %v started", dev.Index, v)
	return nil
}

// Update hashes data.  Whole blocks go to the accelerator as they fill;
// the remainder waits in the context.
func (c *Context) Update(ctx context.Context, data []byte) error {
	for len(data) > maxUpdate {
		if err := c.update(ctx, data[:maxUpdate]); err != nil {
			return err
		}
		data = data[maxUpdate:]
	}
	return c.update(ctx, data)
}

func (c *Context) update(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	fill := int(c.total[0] & (BlockSize - 1))
	left := BlockSize - fill

	n := uint32(len(data))
	c.total[0] += n
	if c.total[0] < n {
		c.total[1]++
	}

	if fill > 0 && len(data) >= left {
		copy(c.buffer[fill:], data[:left])
		if err := c.process(ctx, c.buffer[:]); err != nil {
			return err
		}
		data = data[left:]
		fill = 0
	}
	for len(data) >= BlockSize {
		if err := c.process(ctx, data[:BlockSize]); err != nil {
			return err
		}
		data = data[BlockSize:]
	}
	copy(c.buffer[fill:], data)
	return nil
}

// process feeds one block and starts the sequence without waiting for it.
// The next access to the device is ordered behind it by the sequencer.
func (c *Context) process(ctx context.Context, block []byte) error {
	var words [16]uint32
	for i := range words {
		words[i] = binary.BigEndian.Uint32(block[4*i:])
	}
	if err := cryptodrv.EnterCriticalRegion(ctx, &c.owner); err != nil {
		return err
	}
	r := c.owner.Device().Regs
	for _, w := range words {
		r.QData1Big.Set(w)
	}
	r.Cmd.SetBits(efr32.CryptoCmdSeqStart)
	cryptodrv.ExitCriticalRegion(&c.owner)
	return nil
}

var padding = [BlockSize]byte{0x80}

// Finish pads the message, reads the digest into out and releases the
// device.  The device is released on error too, so a failed Finish must
// not be followed by Close.  out must hold 20 bytes for SHA-1 and 32 for
// SHA-224 and SHA-256; for SHA-224 the last four bytes are zero.
func (c *Context) Finish(ctx context.Context, out []byte) error {
	n := outputSize(c.variant)
	if len(out) < n {
		panic(&cryptodrv.FatalInternalError{Op: "shadrv.Finish", Msg: "output buffer too small"})
	}
	defer cryptodrv.Release(&c.owner)

	hashed := c.Count()
	var length [8]byte
	binary.BigEndian.PutUint32(length[0:], c.total[1]<<3|c.total[0]>>29)
	binary.BigEndian.PutUint32(length[4:], c.total[0]<<3)

	last := int(c.total[0] & (BlockSize - 1))
	padn := 56 - last
	if last >= 56 {
		padn = 120 - last
	}
	if err := c.update(ctx, padding[:padn]); err != nil {
		return err
	}
	if err := c.update(ctx, length[:]); err != nil {
		return err
	}

	if err := cryptodrv.EnterCriticalRegion(ctx, &c.owner); err != nil {
		return err
	}
	r := c.owner.Device().Regs
	var digest [efr32.CryptoDDataWords]uint32
	for i := range digest {
		digest[i] = r.DData0Big.Get()
	}
	cryptodrv.ExitCriticalRegion(&c.owner)

	words := n / 4
	for i := 0; i < words; i++ {
		binary.BigEndian.PutUint32(out[4*i:], digest[i])
	}
	if c.variant == SHA224 {
		for i := Size(SHA224); i < n; i++ {
			out[i] = 0
		}
	}
	log.Debugf("%v finished after %d bytes", c.variant, hashed)
	return nil
}

// Close gives the device back without computing a digest, for a hash
// abandoned after an error.
func (c *Context) Close() error {
	return cryptodrv.Release(&c.owner)
}

// Count is the number of message bytes hashed so far.
func (c *Context) Count() uint64 {
	return uint64(c.total[1])<<32 | uint64(c.total[0])
}

// Buffered is the number of bytes waiting for a full block.
func (c *Context) Buffered() int {
	return int(c.total[0] & (BlockSize - 1))
}

// Aborted reports whether the device was taken from this hash while a
// block was in the sequencer.  The hash carries on after the device comes
// back, so its digest is not trustworthy when this is set.
func (c *Context) Aborted() bool {
	return c.owner.Aborted()
}

func (c *Context) Variant() Variant {
	return c.variant
}

// Hash computes the digest of input in one call.
func Hash(ctx context.Context, dev *cryptodrv.Device, input []byte, out []byte, v Variant) error {
	var c Context
	if err := c.Start(ctx, dev, v); err != nil {
		return err
	}
	if err := c.Update(ctx, input); err != nil {
		c.Close()
		return err
	}
	return c.Finish(ctx, out)
}

func Sum1(ctx context.Context, dev *cryptodrv.Device, data []byte) ([20]byte, error) {
	var d [20]byte
	err := Hash(ctx, dev, data, d[:], SHA1)
	return d, err
}

func Sum224(ctx context.Context, dev *cryptodrv.Device, data []byte) ([28]byte, error) {
	var buf [32]byte
	var d [28]byte
	err := Hash(ctx, dev, data, buf[:], SHA224)
	copy(d[:], buf[:])
	return d, err
}

func Sum256(ctx context.Context, dev *cryptodrv.Device, data []byte) ([32]byte, error) {
	var d [32]byte
	err := Hash(ctx, dev, data, d[:], SHA256)
	return d, err
}

type writer struct {
	ctx context.Context
	c   *Context
}

func (w *writer) Write(p []byte) (int, error) {
	if err := w.c.Update(w.ctx, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// NewWriter adapts a started context to io.Writer, for io.Copy.
func NewWriter(ctx context.Context, c *Context) io.Writer {
	return &writer{ctx: ctx, c: c}
}
