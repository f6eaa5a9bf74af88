package semailbox

import (
	"github.com/pkg/errors"

	"emlib/src/hardware/efr32"
)

// Host drives the emulated SE mailbox registers.
type Host struct {
	se     *efr32.SEMailbox
	mapped []uint32
}

func NewHost(se *efr32.SEMailbox) *Host {
	return &Host{se: se}
}

func (h *Host) descriptor(t *DataTransfer) uint32 {
	if t == nil {
		return 0
	}
	addr := h.se.MapTransfer(t.Data)
	h.mapped = append(h.mapped, addr)
	return addr
}

func (h *Host) unmap() {
	for _, a := range h.mapped {
		h.se.UnmapTransfer(a)
	}
	h.mapped = h.mapped[:0]
}

// Submit writes the header and then the command words.
func (h *Host) Submit(cmd *Command) error {
	r := h.se.Regs
	if r.RxStatus.HasBits(efr32.SEMailboxRxInt) {
		return errors.New("semailbox: unread response in the mailbox")
	}
	h.unmap()
	words := []uint32{cmd.ID, h.descriptor(cmd.Input), h.descriptor(cmd.Output)}
	words = append(words, cmd.Parameters()...)

	r.TxHeader.Set(uint32(4 * len(words)))
	for _, w := range words {
		r.Fifo.Set(w)
	}
	if r.TxStatus.HasBits(efr32.SEMailboxTxError) {
		h.unmap()
		return errors.Errorf("semailbox: mailbox refused command 0x%08x", cmd.ID)
	}
	return nil
}

func (h *Host) Ready() bool {
	return h.se.Regs.RxStatus.HasBits(efr32.SEMailboxRxInt)
}

// Receive reads the response word.
func (h *Host) Receive() (uint32, error) {
	r := h.se.Regs
	resp := r.Fifo.Get()
	if r.RxStatus.HasBits(efr32.SEMailboxRxError) {
		return 0, errors.New("semailbox: read from an empty mailbox")
	}
	h.unmap()
	return resp, nil
}
