package efr32

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func send(m *SEMailbox, words ...uint32) {
	m.Regs.TxHeader.Set(uint32(4 * len(words)))
	for _, w := range words {
		m.Regs.Fifo.Set(w)
	}
}

func TestSEMailboxVersion(t *testing.T) {
	m := NewSEMailbox(0)
	assert.True(t, m.Regs.RxStatus.HasBits(SEMailboxRxEmpty))

	out := make([]byte, 4)
	send(m, SECommandGetVersion, 0, m.MapTransfer(out))
	require.True(t, m.Regs.RxStatus.HasBits(SEMailboxRxInt))
	assert.Equal(t, uint32(4), m.Regs.RxHeader.Get())
	assert.Equal(t, uint32(SEResponseOK), m.Regs.Fifo.Get())
	assert.Equal(t, uint32(SEVersion), binary.LittleEndian.Uint32(out))
	assert.True(t, m.Regs.RxStatus.HasBits(SEMailboxRxEmpty))

	m.Regs.Fifo.Get()
	assert.True(t, m.Regs.RxStatus.HasBits(SEMailboxRxError))
}

func TestSEMailboxErrors(t *testing.T) {
	m := NewSEMailbox(0)
	send(m, 0xDEAD0000, 0, 0)
	assert.Equal(t, uint32(SEResponseInvalidCommand), m.Regs.Fifo.Get())

	send(m, SECommandGetVersion, 0, 0x1234)
	assert.Equal(t, uint32(SEResponseBusError), m.Regs.Fifo.Get())

	send(m, SECommandReadUserData, 0, 0)
	assert.Equal(t, uint32(SEResponseInvalidParameter), m.Regs.Fifo.Get())

	// a write with no header in progress
	m.Regs.Fifo.Set(1)
	assert.True(t, m.Regs.TxStatus.HasBits(SEMailboxTxError))
}

func TestSEMailboxHold(t *testing.T) {
	m := NewSEMailbox(0)
	m.Hold(true)
	out := make([]byte, 4)
	send(m, SECommandGetVersion, 0, m.MapTransfer(out))
	assert.False(t, m.Regs.RxStatus.HasBits(SEMailboxRxInt))

	// busy until the held command completes and is read
	m.Regs.TxHeader.Set(12)
	assert.True(t, m.Regs.TxStatus.HasBits(SEMailboxTxError))

	m.Hold(false)
	assert.True(t, m.Regs.RxStatus.HasBits(SEMailboxRxInt))
	assert.Equal(t, uint32(SEResponseOK), m.Regs.Fifo.Get())
	assert.Equal(t, uint32(SEVersion), binary.LittleEndian.Uint32(out))
}

func TestSEMailboxUserData(t *testing.T) {
	m := NewSEMailbox(0)
	in := []byte{1, 2, 3, 4}
	send(m, SECommandWriteUserData, m.MapTransfer(in), 0, 8)
	require.Equal(t, uint32(SEResponseOK), m.Regs.Fifo.Get())

	out := make([]byte, 6)
	send(m, SECommandReadUserData, 0, m.MapTransfer(out), 6)
	require.Equal(t, uint32(SEResponseOK), m.Regs.Fifo.Get())
	assert.Equal(t, []byte{0, 0, 1, 2, 3, 4}, out)
}
