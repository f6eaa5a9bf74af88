package efr32

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Config describes the emulated part.
type Config struct {
	CryptoInstances int
	NVICLines       int
	LDMAChannels    int
	BUFCBuffers     int
	BUFCWords       int
	SELatency       time.Duration
}

// DefaultConfig is a part with two CRYPTO instances and an SE mailbox.
func DefaultConfig() Config {
	return Config{
		CryptoInstances: 2,
		NVICLines:       64,
		LDMAChannels:    8,
		BUFCBuffers:     4,
		BUFCWords:       64,
		SELatency:       100 * time.Microsecond,
	}
}

// CryptoIRQ is the interrupt line of each CRYPTO instance.
var CryptoIRQ = []IRQ{25, 51}

// CryptoClock is the HFBUSCLKEN0 gate of each CRYPTO instance.
var CryptoClock = []uint32{CMUHFBusClkEn0Crypto0, CMUHFBusClkEn0Crypto1}

// Part is everything the drivers in this module talk to.
type Part struct {
	CMU    *CMURegisterMap
	NVIC   *NVIC
	LDMA   *LDMA
	BUFC   *BUFC
	Crypto []*Crypto
	SE     *SEMailbox
}

func (c Config) validate() error {
	if c.CryptoInstances < 1 || c.CryptoInstances > len(CryptoIRQ) {
		return errors.Errorf("efr32: %d CRYPTO instances requested, part has at most %d",
			c.CryptoInstances, len(CryptoIRQ))
	}
	for _, irq := range CryptoIRQ[:c.CryptoInstances] {
		if int(irq) >= c.NVICLines {
			return errors.Errorf("efr32: CRYPTO interrupt %d does not fit in %d NVIC lines",
				irq, c.NVICLines)
		}
	}
	if c.LDMAChannels < 0 || c.BUFCBuffers < 0 {
		return errors.New("efr32: negative LDMA channel or BUFC buffer count")
	}
	if c.SELatency < 0 {
		return errors.New("efr32: negative SE latency")
	}
	if c.BUFCBuffers > 0 && c.BUFCWords <= 0 {
		return errors.New("efr32: BUFC buffers need a positive size")
	}
	return nil
}

// NewPart builds a part from cfg.
func NewPart(cfg Config) (*Part, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &Part{
		CMU:  &CMURegisterMap{},
		NVIC: NewNVIC(cfg.NVICLines),
		LDMA: NewLDMA(cfg.LDMAChannels),
		BUFC: NewBUFC(cfg.BUFCBuffers, cfg.BUFCWords),
		SE:   NewSEMailbox(cfg.SELatency),
	}
	for i := 0; i < cfg.CryptoInstances; i++ {
		c := NewCrypto(i, CryptoIRQ[i], p.NVIC)
		c.clock = CryptoClock[i]
		p.Crypto = append(p.Crypto, c)
	}
	return p, nil
}

// Run is the interrupt context of the part.  It returns when ctx is done.
func (p *Part) Run(ctx context.Context) error {
	err := p.NVIC.Serve(ctx)
	if errors.Cause(err) == context.Canceled {
		return nil
	}
	return err
}
