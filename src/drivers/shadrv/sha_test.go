package shadrv

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"
	"time"

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
	return p, cryptodrv.NewTable(p).Device(0)
}

func digest(t *testing.T, dev *cryptodrv.Device, v Variant, chunks ...string) string {
	t.Helper()
	ctx := context.Background()
	var c Context
	require.NoError(t, c.Start(ctx, dev, v))
	for _, s := range chunks {
		require.NoError(t, c.Update(ctx, []byte(s)))
	}
	out := make([]byte, outputSize(v))
	require.NoError(t, c.Finish(ctx, out))
	return hex.EncodeToString(out)
}

func TestKnownVectors(t *testing.T) {
	_, dev := setup(t)
	cases := []struct {
		v    Variant
		in   string
		want string
	}{
		{SHA1, "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{SHA256, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{SHA1, "", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{SHA256, "abcdbcdecdefdefgefghfghighijhijkijkljklmklmnlmnomnopnopq",
			"248d6a61d20638b8e5c026930c3e6039a33ce45964ff2167f6ecedd419db06c1"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, digest(t, dev, tc.v, tc.in), "%v(%q)", tc.v, tc.in)
	}
}

func TestMillionA(t *testing.T) {
	_, dev := setup(t)
	ctx := context.Background()
	var c Context
	require.NoError(t, c.Start(ctx, dev, SHA1))
	chunk := []byte(strings.Repeat("a", 1000))
	for i := 0; i < 1000; i++ {
		require.NoError(t, c.Update(ctx, chunk))
	}
	out := make([]byte, 20)
	require.NoError(t, c.Finish(ctx, out))
	assert.Equal(t, "34aa973cd4c4daa4f61eeb2bdbad27316534016f", hex.EncodeToString(out))
}

func TestSHA224Truncation(t *testing.T) {
	_, dev := setup(t)
	got := digest(t, dev, SHA224, "abc")
	assert.Equal(t, "23097d223405d8228642a477bda255b32aadbce4bda0b3f7e36c9da7"+"00000000", got)

	sum, err := Sum224(context.Background(), dev, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum224([]byte("abc")), sum)
}

func TestMatchesSoftware(t *testing.T) {
	_, dev := setup(t)
	ctx := context.Background()
	msg := make([]byte, 300)
	for i := range msg {
		msg[i] = byte(i*7 + 3)
	}
	for n := 0; n <= len(msg); n += 11 {
		s1, err := Sum1(ctx, dev, msg[:n])
		require.NoError(t, err)
		assert.Equal(t, sha1.Sum(msg[:n]), s1, "sha1 len %d", n)

		s256, err := Sum256(ctx, dev, msg[:n])
		require.NoError(t, err)
		assert.Equal(t, sha256.Sum256(msg[:n]), s256, "sha256 len %d", n)
	}

	// split updates land on every block boundary offset
	whole := sha256.Sum256(msg)
	for split := 1; split < 130; split += 9 {
		got := digest(t, dev, SHA256, string(msg[:split]), string(msg[split:]))
		assert.Equal(t, hex.EncodeToString(whole[:]), got, "split at %d", split)
	}
}

func TestBlockBoundaryCounter(t *testing.T) {
	_, dev := setup(t)
	ctx := context.Background()
	var c Context
	require.NoError(t, c.Start(ctx, dev, SHA256))

	require.NoError(t, c.Update(ctx, make([]byte, 64)))
	assert.Equal(t, 0, c.Buffered())
	require.NoError(t, c.Update(ctx, []byte{1}))
	assert.Equal(t, 1, c.Buffered())
	assert.Equal(t, uint64(65), c.Count())
	require.NoError(t, c.Close())
}

func TestCounterCarry(t *testing.T) {
	_, dev := setup(t)
	ctx := context.Background()
	var c Context
	require.NoError(t, c.Start(ctx, dev, SHA256))
	c.total = [2]uint32{0xFFFFFFC0, 0}

	require.NoError(t, c.Update(ctx, make([]byte, 0x50)))
	assert.Equal(t, [2]uint32{0x10, 1}, c.total)
	assert.Equal(t, uint64(0x100000010), c.Count())
	require.NoError(t, c.Close())
}

func TestWriter(t *testing.T) {
	_, dev := setup(t)
	ctx := context.Background()
	data := bytes.Repeat([]byte("0123456789"), 100)

	var c Context
	require.NoError(t, c.Start(ctx, dev, SHA1))
	n, err := io.Copy(NewWriter(ctx, &c), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	out := make([]byte, Size(SHA1))
	require.NoError(t, c.Finish(ctx, out))
	want := sha1.Sum(data)
	assert.Equal(t, want[:], out)
}

func TestStartBusy(t *testing.T) {
	_, dev := setup(t)
	ctx := cryptodrv.WithThread(context.Background(), cryptodrv.Thread{ID: 1, Priority: 3})
	var a, b Context
	require.NoError(t, a.Start(ctx, dev, SHA256))
	err := b.Start(ctx, dev, SHA1)
	assert.True(t, cryptodrv.IsBusy(err))
	assert.Equal(t, a.owner.Device(), dev)
	require.NoError(t, a.Close())
}

// A low priority hash is preempted with a block still in the sequencer.
// The preemptor gets a correct digest; the preempted hash waits for the
// device, then finishes on state that lost the block.
func TestPreemptedHash(t *testing.T) {
	p, dev := setup(t)
	low := cryptodrv.WithThread(context.Background(), cryptodrv.Thread{ID: 1, Priority: 1})
	high := cryptodrv.WithThread(context.Background(), cryptodrv.Thread{ID: 2, Priority: 2})
	block := bytes.Repeat([]byte{'x'}, 64)

	var a Context
	require.NoError(t, a.Start(low, dev, SHA256))
	p.Crypto[0].StallSequencer(true)
	require.NoError(t, a.Update(low, block))
	require.Equal(t, 1, p.Crypto[0].Pending())

	var b Context
	require.NoError(t, b.Start(high, dev, SHA256))
	assert.True(t, a.Aborted())
	p.Crypto[0].StallSequencer(false)

	aDone := make(chan []byte, 1)
	go func() {
		out := make([]byte, 32)
		if err := a.Finish(low, out); err != nil {
			t.Error(err)
		}
		aDone <- out
	}()

	select {
	case <-aDone:
		t.Fatal("preempted hash finished while the preemptor owned the device")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, b.Update(high, []byte("abc")))
	outB := make([]byte, 32)
	require.NoError(t, b.Finish(high, outB))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", hex.EncodeToString(outB))

	var outA []byte
	select {
	case outA = <-aDone:
	case <-time.After(time.Second):
		t.Fatal("preempted hash did not resume")
	}
	want := sha256.Sum256(block)
	assert.NotEqual(t, want[:], outA)
	assert.True(t, a.Aborted())
	assert.False(t, b.Aborted())
	assert.Nil(t, dev.Owner())
}

func TestParseVariant(t *testing.T) {
	for _, v := range []Variant{SHA1, SHA224, SHA256} {
		got, err := ParseVariant(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	got, err := ParseVariant("SHA-224")
	require.NoError(t, err)
	assert.Equal(t, SHA224, got)
	_, err = ParseVariant("md5")
	assert.Error(t, err)
}

// A preempted hash whose Finish gives up waiting must not be handed the
// device when the preemptor releases it.
func TestCancelledFinishReleases(t *testing.T) {
	_, dev := setup(t)
	low, cancel := context.WithCancel(cryptodrv.WithThread(context.Background(), cryptodrv.Thread{ID: 1, Priority: 1}))
	high := cryptodrv.WithThread(context.Background(), cryptodrv.Thread{ID: 2, Priority: 2})

	var a Context
	require.NoError(t, a.Start(low, dev, SHA256))
	require.NoError(t, a.Update(low, []byte("abc")))
	var b Context
	require.NoError(t, b.Start(high, dev, SHA256))

	cancel()
	err := a.Finish(low, make([]byte, 32))
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))
	assert.Equal(t, 1, dev.Depth())

	out := make([]byte, 32)
	require.NoError(t, b.Finish(high, out))
	assert.Nil(t, dev.Owner())
	assert.False(t, dev.ClockEnabled())

	again := cryptodrv.WithThread(context.Background(), cryptodrv.Thread{ID: 3, Priority: 1})
	sum, err := Sum256(again, dev, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256([]byte("abc")), sum)
}

func TestFinishReleasesAsOwner(t *testing.T) {
	_, dev := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	var c Context
	require.NoError(t, c.Start(ctx, dev, SHA1))
	cancel()
	// an owner never waits, so a cancelled ctx does not stop it
	require.NoError(t, c.Finish(ctx, make([]byte, 20)))
	assert.Nil(t, dev.Owner())
	assert.False(t, dev.ClockEnabled())
}
