package aesdrv

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emlib/src/drivers/cryptodrv"
	"emlib/src/hardware/efr32"
)

func setup(t *testing.T) (*efr32.Part, *cryptodrv.Device) {
	t.Helper()
	p, err := efr32.NewPart(efr32.DefaultConfig())
	require.NoError(t, err)
	return p, cryptodrv.NewTable(p).Device(1)
}

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func modes(p *efr32.Part) map[IOMode]IOModeParams {
	return map[IOMode]IOModeParams{
		IOModeCore: {},
		IOModeDMA: {
			InputChannel:  p.LDMA.Channels[0],
			OutputChannel: p.LDMA.Channels[1],
		},
		IOModeBUFC: {
			InputBuffer:  p.BUFC.Buffers[0],
			OutputBuffer: p.BUFC.Buffers[1],
		},
	}
}

func TestFIPS197(t *testing.T) {
	p, dev := setup(t)
	ctx := context.Background()
	plain := unhex(t, "00112233445566778899aabbccddeeff")
	vectors := []struct{ key, want string }{
		{"000102030405060708090a0b0c0d0e0f", "69c4e0d86a7b0430d8cdb78070b4c55a"},
		{"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			"8ea2b7ca516745bfeafc49904b496089"},
	}
	for mode, params := range modes(p) {
		for _, v := range vectors {
			var c Context
			c.Init(dev)
			require.NoError(t, c.SetIOMode(mode, params))
			require.NoError(t, c.SetKey(unhex(t, v.key)))

			out := make([]byte, 16)
			require.NoError(t, c.ECB(ctx, true, out, plain))
			assert.Equal(t, v.want, hex.EncodeToString(out), "%v key %d", mode, len(v.key)/2)

			require.NoError(t, c.ECB(ctx, false, out, out))
			assert.Equal(t, plain, out, "%v decrypt", mode)
		}
	}
	assert.Nil(t, dev.Owner())
}

func TestCBCMatchesSoftware(t *testing.T) {
	p, dev := setup(t)
	ctx := context.Background()
	key := unhex(t, "2b7e151628aed2a6abf7158809cf4f3c")
	iv := unhex(t, "000102030405060708090a0b0c0d0e0f")
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	// long enough to need several BUFC runs
	msg := make([]byte, 16*40)
	for i := range msg {
		msg[i] = byte(i * 13)
	}
	want := make([]byte, len(msg))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(want, msg)

	for mode, params := range modes(p) {
		var c Context
		c.Init(dev)
		require.NoError(t, c.SetIOMode(mode, params))
		require.NoError(t, c.SetKey(key))

		got := make([]byte, len(msg))
		require.NoError(t, c.CBC(ctx, true, got, msg, iv))
		assert.Equal(t, want, got, "%v encrypt", mode)

		back := make([]byte, len(msg))
		require.NoError(t, c.CBC(ctx, false, back, got, iv))
		assert.Equal(t, msg, back, "%v decrypt", mode)
		assert.Equal(t, mode, c.IOMode())
	}
}

func TestParameterErrors(t *testing.T) {
	p, dev := setup(t)
	ctx := context.Background()
	var c Context
	c.Init(dev)

	err := c.SetKey(make([]byte, 24))
	assert.Equal(t, KeySizeError(24), err)
	assert.EqualError(t, err, "aesdrv: invalid key size 24")
	assert.Error(t, c.ECB(ctx, true, make([]byte, 16), make([]byte, 16)), "no key")

	require.NoError(t, c.SetKey(make([]byte, 16)))
	err = c.ECB(ctx, true, make([]byte, 32), make([]byte, 17))
	assert.Equal(t, ErrInvalidLength, errors.Cause(err))
	err = c.ECB(ctx, true, make([]byte, 16), make([]byte, 32))
	assert.Equal(t, ErrInvalidLength, errors.Cause(err))
	err = c.CBC(ctx, true, make([]byte, 16), make([]byte, 16), make([]byte, 8))
	assert.Equal(t, ErrInvalidLength, errors.Cause(err))

	err = c.SetIOMode(IOModeDMA, IOModeParams{InputChannel: p.LDMA.Channels[0]})
	assert.Equal(t, ErrInvalidIOMode, errors.Cause(err))
	err = c.SetIOMode(IOModeBUFC, IOModeParams{InputBuffer: p.BUFC.Buffers[0], OutputBuffer: p.BUFC.Buffers[0]})
	assert.Equal(t, ErrInvalidIOMode, errors.Cause(err))
	err = c.SetIOMode(IOMode(7), IOModeParams{})
	assert.Equal(t, ErrInvalidIOMode, errors.Cause(err))
	assert.Equal(t, IOModeCore, c.IOMode(), "failed SetIOMode keeps the old mode")
}

func TestBusyDevice(t *testing.T) {
	_, dev := setup(t)
	holder := &cryptodrv.OwnerContext{}
	holder.Init(dev)
	ctx := cryptodrv.WithThread(context.Background(), cryptodrv.Thread{ID: 9, Priority: 4})
	require.NoError(t, cryptodrv.Arbitrate(ctx, holder))

	var c Context
	c.Init(dev)
	require.NoError(t, c.SetKey(make([]byte, 16)))
	err := c.ECB(context.Background(), true, make([]byte, 16), make([]byte, 16))
	assert.True(t, cryptodrv.IsBusy(err))
	require.NoError(t, cryptodrv.Release(holder))
}

func TestNewCipher(t *testing.T) {
	_, dev := setup(t)
	key := unhex(t, "000102030405060708090a0b0c0d0e0f")
	b, err := NewCipher(dev, key)
	require.NoError(t, err)
	assert.Equal(t, 16, b.BlockSize())

	iv := make([]byte, 16)
	msg := []byte("sixteen byte msg and another one")
	got := make([]byte, len(msg))
	cipher.NewCBCEncrypter(b, iv).CryptBlocks(got, msg)

	sw, err := aes.NewCipher(key)
	require.NoError(t, err)
	want := make([]byte, len(msg))
	cipher.NewCBCEncrypter(sw, iv).CryptBlocks(want, msg)
	assert.Equal(t, want, got)

	_, err = NewCipher(dev, key[:5])
	assert.Equal(t, KeySizeError(5), err)
}
