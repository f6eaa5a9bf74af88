package main

import (
	"context"
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"math/rand"
	"os"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"emlib/src/drivers/aesdrv"
	"emlib/src/drivers/cryptodrv"
	"emlib/src/drivers/shadrv"
	"emlib/src/hardware/efr32"
	"emlib/src/lib/trust"
)

var seed = flag.Int64("seed", 2, "random seed")
var numOps = flag.IntP("ops", "n", 1000, "operations per worker")
var workers = flag.IntP("workers", "w", 6, "concurrent threads")
var logFlag = flag.String("log", "", "log level: error, warn, info, debug or trace")

type tally struct {
	mu        sync.Mutex
	hashes    int
	ciphers   int
	holds     int
	busy      int
	preempted int
	wrong     int
}

func (t *tally) add(f func(t *tally)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f(t)
}

func main() {
	flag.Parse()
	if *logFlag != "" {
		m, err := trust.ParseLevel(*logFlag)
		if err != nil {
			trust.Fatalf(2, "%v", err)
		}
		trust.SetLevel(m)
	}

	part, err := efr32.NewPart(efr32.DefaultConfig())
	if err != nil {
		trust.Fatalf(1, "unable to build part: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := part.Run(ctx); err != nil {
			trust.Errorf("interrupt dispatch stopped: %v", err)
		}
	}()
	table := cryptodrv.NewTable(part)

	var t tally
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(ctx, part, table, id, &t)
		}(i)
	}
	wg.Wait()

	trust.Infof("%d hashes, %d cipher runs, %d holds; %d busy, %d preempted in flight",
		t.hashes, t.ciphers, t.holds, t.busy, t.preempted)
	ok := t.wrong == 0
	if t.wrong != 0 {
		trust.Errorf("%d results did not match software", t.wrong)
	}
	for i := 0; i < table.Len(); i++ {
		d := table.Device(i)
		if d.Owner() != nil || d.Depth() != 0 || d.ClockEnabled() {
			trust.Errorf("CRYPTO%d not idle after the run: depth %d, clock %v", i, d.Depth(), d.ClockEnabled())
			ok = false
		}
	}
	if !ok {
		cancel()
		os.Exit(1)
	}
	trust.Infof("OK: every device is idle and every result matched")
}

func worker(ctx context.Context, part *efr32.Part, table *cryptodrv.Table, id int, t *tally) {
	rnd := rand.New(rand.NewSource(*seed + int64(id)))
	th := cryptodrv.Thread{ID: uint32(id + 1), Priority: 1 + rnd.Intn(4)}
	ctx = cryptodrv.WithThread(ctx, th)

	for op := 0; op < *numOps; op++ {
		dev := table.Device(rnd.Intn(table.Len()))
		n := rnd.Intn(10)
		var err error
		switch {
		case n < 4:
			err = hash(ctx, dev, rnd, t)
		case n < 8:
			err = encrypt(ctx, part, dev, rnd, t)
		default:
			err = hold(ctx, dev, rnd, t)
		}
		if cryptodrv.IsBusy(err) {
			t.add(func(t *tally) { t.busy++ })
			continue
		}
		if err != nil {
			trust.Fatalf(1, "thread %d op %d: %v", th.ID, op, err)
		}
	}
}

func payload(rnd *rand.Rand, blocks int) []byte {
	b := make([]byte, blocks*aesdrv.BlockSize)
	rnd.Read(b)
	return b
}

// hash feeds a random message in random pieces.
func hash(ctx context.Context, dev *cryptodrv.Device, rnd *rand.Rand, t *tally) error {
	msg := payload(rnd, 1+rnd.Intn(16))
	msg = msg[:len(msg)-rnd.Intn(aesdrv.BlockSize)]

	var c shadrv.Context
	if err := c.Start(ctx, dev, shadrv.SHA256); err != nil {
		return err
	}
	for rest := msg; len(rest) > 0; {
		k := 1 + rnd.Intn(len(rest))
		if err := c.Update(ctx, rest[:k]); err != nil {
			c.Close()
			return err
		}
		rest = rest[k:]
	}
	out := make([]byte, sha256.Size)
	if err := c.Finish(ctx, out); err != nil {
		return err
	}
	want := sha256.Sum256(msg)
	t.add(func(t *tally) {
		t.hashes++
		switch {
		case c.Aborted():
			t.preempted++
		case !bytes.Equal(want[:], out):
			t.wrong++
		}
	})
	return nil
}

// ioParams gives each device its own pair of DMA channels and buffers.
func ioParams(part *efr32.Part, dev *cryptodrv.Device) aesdrv.IOModeParams {
	i := 2 * dev.Index
	return aesdrv.IOModeParams{
		InputChannel:  part.LDMA.Channels[i],
		OutputChannel: part.LDMA.Channels[i+1],
		InputBuffer:   part.BUFC.Buffers[i],
		OutputBuffer:  part.BUFC.Buffers[i+1],
	}
}

// encrypt runs CBC in a random I/O mode and checks it against software.
func encrypt(ctx context.Context, part *efr32.Part, dev *cryptodrv.Device, rnd *rand.Rand, t *tally) error {
	key := make([]byte, 16*(1+rnd.Intn(2)))
	rnd.Read(key)
	iv := payload(rnd, 1)
	src := payload(rnd, 1+rnd.Intn(64))

	var c aesdrv.Context
	c.Init(dev)
	mode := aesdrv.IOMode(rnd.Intn(3))
	if err := c.SetIOMode(mode, ioParams(part, dev)); err != nil {
		return err
	}
	if err := c.SetKey(key); err != nil {
		return err
	}
	dst := make([]byte, len(src))
	if err := c.CBC(ctx, true, dst, src, iv); err != nil {
		return err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	want := make([]byte, len(src))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(want, src)
	t.add(func(t *tally) {
		t.ciphers++
		if !bytes.Equal(want, dst) {
			trust.Warnf("CRYPTO%d: %v mode CBC mismatch", dev.Index, mode)
			t.wrong++
		}
	})
	return nil
}

// hold takes the device and sits on it, preempting whoever had it.
func hold(ctx context.Context, dev *cryptodrv.Device, rnd *rand.Rand, t *tally) error {
	var oc cryptodrv.OwnerContext
	oc.Init(dev)
	if err := cryptodrv.Arbitrate(ctx, &oc); err != nil {
		return err
	}
	time.Sleep(time.Duration(rnd.Intn(200)) * time.Microsecond)
	t.add(func(t *tally) { t.holds++ })
	return cryptodrv.Release(&oc)
}
