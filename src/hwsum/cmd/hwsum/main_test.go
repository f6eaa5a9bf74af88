package main

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emlib/src/drivers/cryptodrv"
	"emlib/src/drivers/shadrv"
	"emlib/src/hardware/efr32"
)

func setup(t *testing.T) (*efr32.Part, *cryptodrv.Device) {
	t.Helper()
	p, err := efr32.NewPart(efr32.DefaultConfig())
	require.NoError(t, err)
	return p, cryptodrv.NewTable(p).Device(1)
}

func TestSum(t *testing.T) {
	_, dev := setup(t)
	ctx := context.Background()
	input := strings.Repeat("the quick brown fox ", 40)

	got, err := sum(ctx, dev, shadrv.SHA256, strings.NewReader(input))
	require.NoError(t, err)
	want := sha256.Sum256([]byte(input))
	assert.Equal(t, want[:], got)

	got, err = sum(ctx, dev, shadrv.SHA224, strings.NewReader(input))
	require.NoError(t, err)
	want224 := sha256.Sum224([]byte(input))
	assert.Equal(t, want224[:], got)

	got, err = sum(ctx, dev, shadrv.SHA1, strings.NewReader(""))
	require.NoError(t, err)
	want1 := sha1.Sum(nil)
	assert.Equal(t, want1[:], got)
	assert.Nil(t, dev.Owner())
}

func TestReadSEVersion(t *testing.T) {
	p, dev := setup(t)
	v, err := readSEVersion(context.Background(), dev, p.SE)
	require.NoError(t, err)
	assert.Equal(t, uint32(efr32.SEVersion), v)
}

// preemptingReader hands out its data, and when it is drained lets a
// higher priority thread take the device and cancels the hashing thread.
type preemptingReader struct {
	data   io.Reader
	dev    *cryptodrv.Device
	cancel context.CancelFunc
	thief  *cryptodrv.OwnerContext
}

func (r *preemptingReader) Read(p []byte) (int, error) {
	n, err := r.data.Read(p)
	if err == io.EOF && r.thief == nil {
		r.thief = &cryptodrv.OwnerContext{}
		r.thief.Init(r.dev)
		high := cryptodrv.WithThread(context.Background(), cryptodrv.Thread{ID: 9, Priority: 9})
		if aerr := cryptodrv.Arbitrate(high, r.thief); aerr != nil {
			return n, aerr
		}
		r.cancel()
	}
	return n, err
}

func TestSumCancelledWhilePreempted(t *testing.T) {
	_, dev := setup(t)
	ctx, cancel := context.WithCancel(cryptodrv.WithThread(context.Background(), cryptodrv.Thread{ID: 1, Priority: 1}))
	r := &preemptingReader{data: strings.NewReader(strings.Repeat("z", 100)), dev: dev, cancel: cancel}

	_, err := sum(ctx, dev, shadrv.SHA256, r)
	require.Error(t, err)
	require.NotNil(t, r.thief)
	assert.Equal(t, 1, dev.Depth())

	require.NoError(t, cryptodrv.Release(r.thief))
	assert.Nil(t, dev.Owner())
	assert.False(t, dev.ClockEnabled())

	got, err := sum(context.Background(), dev, shadrv.SHA1, strings.NewReader("abc"))
	require.NoError(t, err)
	want := sha1.Sum([]byte("abc"))
	assert.Equal(t, want[:], got)
}
