package main

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"

	"emlib/src/drivers/cryptodrv"
	"emlib/src/drivers/semailbox"
	"emlib/src/drivers/shadrv"
	"emlib/src/hardware/efr32"
	"emlib/src/lib/trust"
)

var algorithm = flag.StringP("algorithm", "a", "sha256", "digest to compute: sha1, sha224 or sha256")
var ttyFlag = flag.String("tty", "", "hash what is typed on this terminal device, up to ^D")
var instance = flag.IntP("instance", "i", 0, "CRYPTO instance to run on")
var seVersion = flag.Bool("se-version", false, "print the secure element firmware version and exit")
var logFlag = flag.String("log", "", "log level: error, warn, info, debug or trace")

func main() {
	flag.Parse()
	if *logFlag != "" {
		m, err := trust.ParseLevel(*logFlag)
		if err != nil {
			trust.Fatalf(2, "%v", err)
		}
		trust.SetLevel(m)
	}
	v, err := shadrv.ParseVariant(*algorithm)
	if err != nil {
		usage(err)
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
	if *instance < 0 || *instance >= table.Len() {
		usage(errors.Errorf("no CRYPTO instance %d (part has %d)", *instance, table.Len()))
	}
	dev := table.Device(*instance)
	ctx = cryptodrv.WithThread(ctx, cryptodrv.Thread{ID: 1, Priority: 1})

	if *seVersion {
		version, err := readSEVersion(ctx, dev, part.SE)
		if err != nil {
			trust.Fatalf(1, "secure element: %v", err)
		}
		fmt.Printf("%d.%d.%d\n", version>>16&0xFF, version>>8&0xFF, version&0xFF)
		return
	}

	failed := false
	report := func(name string, r io.Reader) {
		digest, err := sum(ctx, dev, v, r)
		if err != nil {
			trust.Errorf("%s: %v", name, err)
			failed = true
			return
		}
		fmt.Printf("%s  %s\n", hex.EncodeToString(digest), name)
	}

	switch {
	case *ttyFlag != "":
		in, err := newTTYInput(*ttyFlag)
		if err != nil {
			trust.Fatalf(1, "unable to open %s: %v", *ttyFlag, err)
		}
		report(*ttyFlag, in)
		in.Close()
	case flag.NArg() == 0:
		report("-", os.Stdin)
	default:
		for _, name := range flag.Args() {
			if name == "-" {
				report(name, os.Stdin)
				continue
			}
			fp, err := os.Open(name)
			if err != nil {
				trust.Errorf("%v", err)
				failed = true
				continue
			}
			report(name, fp)
			fp.Close()
		}
	}
	if failed {
		cancel()
		os.Exit(1)
	}
}

// sum hashes everything r yields on dev.
func sum(ctx context.Context, dev *cryptodrv.Device, v shadrv.Variant, r io.Reader) ([]byte, error) {
	var c shadrv.Context
	if err := c.Start(ctx, dev, v); err != nil {
		return nil, err
	}
	if _, err := io.Copy(shadrv.NewWriter(ctx, &c), r); err != nil {
		c.Close()
		return nil, err
	}
	out := make([]byte, efr32.CryptoDDataWords*4)
	if err := c.Finish(ctx, out); err != nil {
		return nil, err
	}
	if c.Aborted() {
		trust.Warnf("digest was preempted while a block was in flight")
	}
	return out[:shadrv.Size(v)], nil
}

// readSEVersion asks the secure element for its firmware version.  The
// mailbox is guarded by the same arbitration as dev.
func readSEVersion(ctx context.Context, dev *cryptodrv.Device, se *efr32.SEMailbox) (uint32, error) {
	var oc cryptodrv.OwnerContext
	oc.Init(dev)
	out := make([]byte, 4)
	cmd := semailbox.NewCommand(efr32.SECommandGetVersion)
	cmd.AddDataOutput(out)
	if err := semailbox.Execute(ctx, &oc, semailbox.NewHost(se), cmd, 100*time.Millisecond); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(out), nil
}

func usage(err error) {
	fmt.Fprintf(os.Stderr, "hwsum: %v\n", err)
	fmt.Fprintf(os.Stderr, "usage: hwsum [flags] [file ...]\n")
	flag.PrintDefaults()
	os.Exit(2)
}
