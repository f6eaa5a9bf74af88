package efr32

import (
	"encoding/binary"
	"sync"
	"time"

	"emlib/src/lib/trust"
	"emlib/src/lib/volatile"
)

// SEMailboxRegisterMap is the host side of the secure element mailbox.  A
// command is announced with its length in TxHeader and then written word
// by word to Fifo.  The response word is read back from Fifo once
// RxStatus shows RxInt.
type SEMailboxRegisterMap struct {
	Fifo     volatile.Register32     //0x00
	reserved [15]volatile.Register32 //0x04-0x3C
	TxStatus volatile.Register32     //0x40
	RxStatus volatile.Register32     //0x44
	TxProt   volatile.Register32     //0x48
	RxProt   volatile.Register32     //0x4C
	TxHeader volatile.Register32     //0x50
	RxHeader volatile.Register32     //0x54
	Config   volatile.Register32     //0x58
}

// TX_STATUS
const SEMailboxTxRemBytesMask = 0xFFFF
const SEMailboxTxInt = 1 << 20
const SEMailboxTxFull = 1 << 21
const SEMailboxTxError = 1 << 23

// RX_STATUS
const SEMailboxRxRemBytesMask = 0xFFFF
const SEMailboxRxInt = 1 << 20
const SEMailboxRxEmpty = 1 << 21
const SEMailboxRxHdr = 1 << 22
const SEMailboxRxError = 1 << 23

// Commands, the first word after the header.
const SECommandGetStatus = 0xFE010000
const SECommandGetVersion = 0xFE020000
const SECommandReadUserData = 0x43FA0000
const SECommandWriteUserData = 0x43FB0000

// Responses, the word read back from Fifo.
const SEResponseOK = 0x00000000
const SEResponseInvalidCommand = 0x00010000
const SEResponseAuthorizationError = 0x00020000
const SEResponseBusError = 0x00040000
const SEResponseInvalidParameter = 0x00070000

// SEVersion is what SECommandGetVersion reports.
const SEVersion = 0x00010207

// SEUserDataSize is the size of the user data area in bytes.
const SEUserDataSize = 1024

// SEMailbox emulates the secure element behind the mailbox.  Data the
// command reads or writes is named by descriptor addresses handed out by
// MapTransfer, the way the real part is given DMA descriptor addresses.
type SEMailbox struct {
	Regs *SEMailboxRegisterMap

	mu        sync.Mutex
	log       *trust.Logger
	latency   time.Duration
	held      bool
	remaining uint32
	message   []uint32
	queued    []uint32 // a complete command waiting for Hold(false)
	response  []uint32
	transfers map[uint32][]byte
	nextAddr  uint32
	userData  [SEUserDataSize]byte
}

// NewSEMailbox returns a mailbox whose commands take latency to run.
func NewSEMailbox(latency time.Duration) *SEMailbox {
	m := &SEMailbox{
		Regs:      &SEMailboxRegisterMap{},
		log:       trust.NewLogger("efr32"),
		latency:   latency,
		transfers: map[uint32][]byte{},
		nextAddr:  0x20000000,
	}
	m.Regs.RxStatus.Latch(SEMailboxRxEmpty)
	m.Regs.TxHeader.Attach(nil, m.header)
	m.Regs.Fifo.Attach(m.read, m.write)
	m.Regs.TxStatus.Attach(nil, func(uint32) {})
	m.Regs.RxStatus.Attach(nil, func(uint32) {})
	return m
}

// MapTransfer makes buf reachable by the secure element and returns the
// descriptor address to put in a command.
func (m *SEMailbox) MapTransfer(buf []byte) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr := m.nextAddr
	m.nextAddr += 0x10
	m.transfers[addr] = buf
	return addr
}

// UnmapTransfer forgets a descriptor address.
func (m *SEMailbox) UnmapTransfer(addr uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.transfers, addr)
}

// Hold keeps complete commands from running until it is turned off.
func (m *SEMailbox) Hold(hold bool) {
	m.mu.Lock()
	m.held = hold
	queued := m.queued
	m.queued = nil
	m.mu.Unlock()
	if !hold && queued != nil {
		m.run(queued)
	}
}

func (m *SEMailbox) header(v uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.remaining != 0 || len(m.queued) != 0 || len(m.response) != 0 {
		m.Regs.TxStatus.Latch(m.Regs.TxStatus.Get() | SEMailboxTxError)
		return
	}
	m.remaining = v &^ 3
	m.message = m.message[:0]
	m.Regs.TxHeader.Latch(v)
	m.Regs.TxStatus.Latch(m.remaining & SEMailboxTxRemBytesMask)
}

func (m *SEMailbox) write(v uint32) {
	m.mu.Lock()
	if m.remaining == 0 {
		m.Regs.TxStatus.Latch(m.Regs.TxStatus.Get() | SEMailboxTxError)
		m.mu.Unlock()
		return
	}
	m.message = append(m.message, v)
	m.remaining -= 4
	m.Regs.TxStatus.Latch(m.remaining & SEMailboxTxRemBytesMask)
	if m.remaining != 0 {
		m.mu.Unlock()
		return
	}
	msg := append([]uint32(nil), m.message...)
	if m.held {
		m.queued = msg
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if m.latency > 0 {
		time.AfterFunc(m.latency, func() { m.run(msg) })
		return
	}
	m.run(msg)
}

func (m *SEMailbox) read() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.response) == 0 {
		m.Regs.RxStatus.Latch(m.Regs.RxStatus.Get() | SEMailboxRxError)
		return 0
	}
	v := m.response[0]
	m.response = m.response[1:]
	if len(m.response) == 0 {
		m.Regs.RxStatus.Latch(SEMailboxRxEmpty)
	}
	return v
}

// run executes one command: word 0 is the command, words 1 and 2 the
// input and output descriptors (0 for none), the rest parameters.
func (m *SEMailbox) run(msg []uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	resp := uint32(SEResponseInvalidParameter)
	if len(msg) >= 3 {
		resp = m.execute(msg[0], msg[1], msg[2], msg[3:])
	}
	m.log.Debugf("SE: command 0x%08x response 0x%08x", msg[0], resp)
	m.response = []uint32{resp}
	m.Regs.RxHeader.Latch(4)
	m.Regs.RxStatus.Latch(4 | SEMailboxRxInt | SEMailboxRxHdr)
}

// execute runs with m.mu held.
func (m *SEMailbox) execute(cmd uint32, in uint32, out uint32, params []uint32) uint32 {
	input, inOK := m.transfers[in]
	output, outOK := m.transfers[out]
	if (in != 0 && !inOK) || (out != 0 && !outOK) {
		return SEResponseBusError
	}

	switch cmd {
	case SECommandGetVersion:
		if len(output) < 4 {
			return SEResponseInvalidParameter
		}
		binary.LittleEndian.PutUint32(output, SEVersion)

	case SECommandGetStatus:
		if len(output) < 8 {
			return SEResponseInvalidParameter
		}
		binary.LittleEndian.PutUint32(output, 0)
		binary.LittleEndian.PutUint32(output[4:], uint32(len(m.transfers)))

	case SECommandReadUserData, SECommandWriteUserData:
		if len(params) != 1 {
			return SEResponseInvalidParameter
		}
		offset := int(params[0])
		buf := output
		if cmd == SECommandWriteUserData {
			buf = input
		}
		if offset+len(buf) > SEUserDataSize {
			return SEResponseInvalidParameter
		}
		if cmd == SECommandWriteUserData {
			copy(m.userData[offset:], buf)
		} else {
			copy(buf, m.userData[offset:])
		}

	default:
		return SEResponseInvalidCommand
	}
	return SEResponseOK
}
