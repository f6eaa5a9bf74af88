package efr32

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPart(t *testing.T) {
	p, err := NewPart(DefaultConfig())
	require.NoError(t, err)
	require.Len(t, p.Crypto, 2)
	assert.Equal(t, IRQ(51), p.Crypto[1].IRQ())
	assert.Equal(t, uint32(CMUHFBusClkEn0Crypto1), p.Crypto[1].ClockMask())
	assert.Len(t, p.LDMA.Channels, 8)
	assert.Equal(t, 64, p.BUFC.Buffers[3].Capacity())
}

func TestNewPartRejectsBadConfig(t *testing.T) {
	bad := []Config{
		{CryptoInstances: 0, NVICLines: 64},
		{CryptoInstances: 3, NVICLines: 64},
		{CryptoInstances: 2, NVICLines: 32},
		{CryptoInstances: 1, NVICLines: 64, BUFCBuffers: 1},
	}
	for _, cfg := range bad {
		_, err := NewPart(cfg)
		assert.Error(t, err, "%+v", cfg)
	}
}

func TestPartRunStops(t *testing.T) {
	p, err := NewPart(DefaultConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, p.Run(ctx))

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, p.Run(ctx))
}
