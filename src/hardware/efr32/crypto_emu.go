package efr32

import (
	"crypto/aes"
	"encoding/binary"
	"sync"

	"emlib/src/lib/trust"
)

// WordSource feeds words into the accelerator (an LDMA channel reading
// memory, or a BUFC buffer).
type WordSource interface {
	PullWord() (uint32, bool)
}

// WordSink takes words out of the accelerator.
type WordSink interface {
	PushWord(uint32) bool
}

// port is one of the data registers: a fixed walk over words of the
// working banks.
type port struct {
	words []*uint32
	index int
}

func (p *port) load() uint32 {
	v := *p.words[p.index]
	p.index = (p.index + 1) % len(p.words)
	return v
}

func (p *port) store(v uint32) {
	*p.words[p.index] = v
	p.index = (p.index + 1) % len(p.words)
}

// Crypto is one emulated CRYPTO instance: the register map plus the
// working banks and the sequencer behind it.
type Crypto struct {
	Regs     *CryptoRegisterMap
	Instance int

	irq   IRQ
	clock uint32
	nvic  *NVIC
	log   *trust.Logger

	mu      sync.Mutex
	ddata   [CryptoDDataRegisters][CryptoDDataWords]uint32
	ports   []*port
	stalled bool
	pending int
	aborts  int

	dmaIn  WordSource
	dmaOut WordSink
	bufIn  WordSource
	bufOut WordSink
}

// NewCrypto builds instance n, raising irq on nvic.
func NewCrypto(n int, irq IRQ, nvic *NVIC) *Crypto {
	c := &Crypto{
		Regs:     &CryptoRegisterMap{},
		Instance: n,
		irq:      irq,
		nvic:     nvic,
		log:      trust.NewLogger("efr32"),
	}
	c.wire()
	return c
}

// words returns pointers to bank b, words from..to inclusive, walking
// downwards when from > to.
func (c *Crypto) words(b int, from int, to int) []*uint32 {
	var result []*uint32
	step := 1
	if from > to {
		step = -1
	}
	for i := from; ; i += step {
		result = append(result, &c.ddata[b][i])
		if i == to {
			break
		}
	}
	return result
}

func (c *Crypto) attachPort(r interface {
	Attach(func() uint32, func(uint32))
}, words []*uint32) {
	p := &port{words: words}
	c.ports = append(c.ports, p)
	r.Attach(func() uint32 {
		c.mu.Lock()
		defer c.mu.Unlock()
		return p.load()
	}, func(v uint32) {
		c.mu.Lock()
		defer c.mu.Unlock()
		p.store(v)
	})
}

func (c *Crypto) wire() {
	r := c.Regs
	r.Cmd.Attach(func() uint32 { return 0 }, c.command)
	r.IFS.Attach(func() uint32 { return 0 }, func(v uint32) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.raise(v)
	})
	r.IFC.Attach(func() uint32 { return 0 }, func(v uint32) {
		c.mu.Lock()
		defer c.mu.Unlock()
		r.IF.Latch(r.IF.Get() &^ v)
	})
	r.IEN.Attach(nil, func(v uint32) {
		c.mu.Lock()
		defer c.mu.Unlock()
		r.IEN.Latch(v)
		c.raise(0)
	})
	r.IF.Attach(nil, func(uint32) {}) // read only
	r.Status.Attach(nil, func(uint32) {})

	c.attachPort(&r.Data[0], c.words(0, 0, 3))
	c.attachPort(&r.Data[1], c.words(0, 4, 7))
	c.attachPort(&r.Data[2], c.words(1, 0, 3))
	c.attachPort(&r.Data[3], c.words(1, 4, 7))
	for i := 0; i < CryptoDDataRegisters; i++ {
		c.attachPort(&r.DData[i], c.words(i, 0, 7))
	}
	c.attachPort(&r.DData0Big, c.words(0, 7, 0))
	c.attachPort(&r.QData0, append(c.words(0, 0, 7), c.words(1, 0, 7)...))
	c.attachPort(&r.QData1, append(c.words(2, 0, 7), c.words(3, 0, 7)...))
	c.attachPort(&r.QData1Big, append(c.words(3, 7, 0), c.words(2, 7, 0)...))
	c.attachPort(&r.KeyBuf, c.words(4, 0, 7))
}

func (c *Crypto) resetPorts() {
	for _, p := range c.ports {
		p.index = 0
	}
}

// raise sets interrupt flags and pends the interrupt line when an
// enabled flag is up.  Caller holds c.mu.
func (c *Crypto) raise(flags uint32) {
	r := c.Regs
	r.IF.Latch(r.IF.Get() | flags)
	if r.IF.Get()&r.IEN.Get() != 0 && c.nvic != nil {
		c.nvic.SetPendingIRQ(c.irq)
	}
}

func (c *Crypto) command(v uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.Regs

	if instr := uint8(v & CryptoCmdInstrMask); instr != InstrEnd {
		r.Status.Latch(r.Status.Get() | CryptoStatusInstrRunning)
		c.resetPorts()
		c.execute(instr)
		r.Status.Latch(r.Status.Get() &^ CryptoStatusInstrRunning)
		c.raise(CryptoIntInstrDone)
	}
	if v&CryptoCmdSeqStop != 0 {
		if c.pending > 0 {
			c.log.Debugf("CRYPTO%d: sequencer stopped with %d pending", c.Instance, c.pending)
			c.aborts++
			c.pending = 0
		}
		r.Status.Latch(r.Status.Get() &^ CryptoStatusSeqRunning)
	}
	if v&CryptoCmdSeqStart != 0 {
		c.pending++
		r.Status.Latch(r.Status.Get() | CryptoStatusSeqRunning)
		if !c.stalled {
			c.runPending()
		}
	}
}

// runPending drains queued sequence starts.  Caller holds c.mu.
func (c *Crypto) runPending() {
	r := c.Regs
	for c.pending > 0 {
		c.pending--
		c.resetPorts()
		c.runSequence()
	}
	r.Status.Latch(r.Status.Get() &^ CryptoStatusSeqRunning)
	c.raise(CryptoIntSeqDone)
}

func (c *Crypto) sequence() []uint8 {
	var instrs []uint8
	for i := 0; i < CryptoSeqRegisters; i++ {
		w := c.Regs.Seq[i].Get()
		for b := uint(0); b < 4; b++ {
			in := uint8(w >> (8 * b))
			if in == InstrEnd {
				return instrs
			}
			instrs = append(instrs, in)
		}
	}
	return instrs
}

func (c *Crypto) runSequence() {
	seqctrl := c.Regs.SeqCtrl.Get()
	length := int(seqctrl & CryptoSeqCtrlLengthAMask)
	blockSize := 16 << ((seqctrl >> CryptoSeqCtrlBlockSizeShift) & CryptoSeqCtrlBlockSizeMask)
	iterations := (length + blockSize - 1) / blockSize
	if iterations == 0 {
		iterations = 1
	}
	instrs := c.sequence()
	for i := 0; i < iterations; i++ {
		for _, in := range instrs {
			c.execute(in)
		}
	}
}

func (c *Crypto) execute(instr uint8) {
	d := &c.ddata
	switch instr {
	case InstrAESEnc, InstrAESDec:
		c.aes(instr == InstrAESEnc)
	case InstrSHA:
		var w [16]uint32
		for t := 0; t < 8; t++ {
			w[t] = d[3][7-t]
			w[t+8] = d[2][7-t]
		}
		if c.Regs.Ctrl.HasBits(CryptoCtrlSHA2) {
			sha256Rounds(&d[0], &w)
		} else {
			sha1Rounds(&d[0], &w)
		}
	case InstrMAdd32:
		for i := range d[0] {
			d[0][i] += d[1][i]
		}
	case InstrDData0ToDData1:
		d[1] = d[0]
	case InstrDData1ToDData0:
		d[0] = d[1]
	case InstrDData1ToDData2:
		d[2] = d[1]
	case InstrData0ToData1:
		copy(d[0][4:8], d[0][0:4])
	case InstrData1ToData0XOR:
		for i := 0; i < 4; i++ {
			d[0][i] ^= d[0][4+i]
		}
	case InstrData0ToData2:
		copy(d[1][0:4], d[0][0:4])
	case InstrData2ToData1:
		copy(d[0][4:8], d[1][0:4])
	case InstrDMA0ToData:
		c.pull(c.dmaIn)
	case InstrDataToDMA1:
		c.push(c.dmaOut)
	case InstrBufToData0:
		c.pull(c.bufIn)
	case InstrData0ToBuf:
		c.push(c.bufOut)
	default:
		c.log.Warnf("CRYPTO%d: unknown instruction 0x%02x ignored", c.Instance, instr)
	}
}

func (c *Crypto) pull(src WordSource) {
	for i := 0; i < 4; i++ {
		var ok bool
		if src != nil {
			c.ddata[0][i], ok = src.PullWord()
		}
		if !ok {
			c.raise(CryptoIntBufUnderflow)
			return
		}
	}
}

func (c *Crypto) push(dst WordSink) {
	for i := 0; i < 4; i++ {
		if dst == nil || !dst.PushWord(c.ddata[0][i]) {
			c.raise(CryptoIntBufOverflow)
			return
		}
	}
}

func (c *Crypto) aes(encrypt bool) {
	keyWords := 4
	if c.Regs.Ctrl.HasBits(CryptoCtrlAES256) {
		keyWords = 8
	}
	key := make([]byte, 4*keyWords)
	for i := 0; i < keyWords; i++ {
		binary.LittleEndian.PutUint32(key[4*i:], c.ddata[4][i])
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		c.log.Errorf("CRYPTO%d: %v", c.Instance, err)
		return
	}
	var buf [16]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[4*i:], c.ddata[0][i])
	}
	if encrypt {
		block.Encrypt(buf[:], buf[:])
	} else {
		block.Decrypt(buf[:], buf[:])
	}
	for i := 0; i < 4; i++ {
		c.ddata[0][i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
}

// StallSequencer holds started sequences in the running state instead of
// executing them.  Turning the stall off runs whatever is still pending.
func (c *Crypto) StallSequencer(stall bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stalled = stall
	if !stall && c.pending > 0 {
		c.runPending()
	}
}

// Pending is the number of sequence starts not yet executed.
func (c *Crypto) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Aborts counts SEQSTOP commands that discarded pending work.
func (c *Crypto) Aborts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aborts
}

// RouteDMA connects the DMA0 request line to src and DMA1 to dst.
func (c *Crypto) RouteDMA(src WordSource, dst WordSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dmaIn, c.dmaOut = src, dst
}

// RouteBUFC connects the buffer controller input and output buffers.
func (c *Crypto) RouteBUFC(src WordSource, dst WordSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bufIn, c.bufOut = src, dst
}

func (c *Crypto) IRQ() IRQ {
	return c.irq
}

// ClockMask is the instance's bit in CMU HFBUSCLKEN0.
func (c *Crypto) ClockMask() uint32 {
	return c.clock
}
