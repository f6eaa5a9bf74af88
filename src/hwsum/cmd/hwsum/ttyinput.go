package main

import (
	"io"

	"github.com/mattn/go-tty"

	"emlib/src/lib/trust"
)

const eot = 0x04

// ttyInput reads what is typed on a terminal until ^D.  The terminal is in
// raw mode, so carriage returns are turned into newlines and other control
// characters are dropped.
type ttyInput struct {
	t       *tty.TTY
	restore func() error
	eof     bool
}

func newTTYInput(path string) (*ttyInput, error) {
	t, err := tty.OpenDevice(path)
	if err != nil {
		return nil, err
	}
	return &ttyInput{t: t, restore: t.MustRaw()}, nil
}

func (in *ttyInput) Read(data []byte) (int, error) {
	if in.eof {
		return 0, io.EOF
	}
	if len(data) == 0 {
		return 0, nil
	}
	n := 0
	var b [1]byte
	for n == 0 {
		r, err := in.t.Input().Read(b[:])
		if err != nil {
			return 0, err
		}
		if r == 0 {
			trust.Debugf("retrying failed read (size zero)")
			continue
		}
		switch c := b[0]; {
		case c == eot:
			in.eof = true
			return 0, io.EOF
		case c == '\r':
			data[n] = '\n'
			n++
		case c < 32 && c != '\n':
			continue
		default:
			data[n] = c
			n++
		}
	}
	return n, nil
}

func (in *ttyInput) Close() error {
	if err := in.restore(); err != nil {
		trust.Warnf("unable to restore terminal mode: %v", err)
	}
	return in.t.Close()
}
