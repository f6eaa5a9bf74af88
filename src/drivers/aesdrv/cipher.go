package aesdrv

import (
	"context"
	"crypto/cipher"

	"emlib/src/drivers/cryptodrv"
)

type blockCipher struct {
	c Context
}

// NewCipher returns a cipher.Block backed by dev, for use with the modes
// in crypto/cipher.  Each call waits for the device if it is busy.
func NewCipher(dev *cryptodrv.Device, key []byte) (cipher.Block, error) {
	b := &blockCipher{}
	b.c.Init(dev)
	if err := b.c.SetKey(key); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *blockCipher) BlockSize() int {
	return BlockSize
}

func (b *blockCipher) Encrypt(dst, src []byte) {
	b.do(true, dst, src)
}

func (b *blockCipher) Decrypt(dst, src []byte) {
	b.do(false, dst, src)
}

func (b *blockCipher) do(encrypt bool, dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic("aesdrv: input not full block")
	}
	err := b.c.run(context.Background(), cryptodrv.ArbitrateWait, dst[:BlockSize], src[:BlockSize], nil, ecbOps(encrypt))
	if err != nil {
		panic(err)
	}
}
