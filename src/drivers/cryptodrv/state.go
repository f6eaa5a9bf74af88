package cryptodrv

import "emlib/src/hardware/efr32"

//
// hardwareState is the register image of a preempted owner: everything
// needed to continue any of the accelerator's modes where it stopped.
//
type hardwareState struct {
	Ctrl     uint32
	Wac      uint32
	SeqCtrl  uint32
	SeqCtrlB uint32
	IEN      uint32
	Seq      [efr32.CryptoSeqRegisters]uint32
	DData    [efr32.CryptoDDataRegisters][efr32.CryptoDDataWords]uint32
}

func (s *hardwareState) save(r *efr32.CryptoRegisterMap) {
	s.Ctrl = r.Ctrl.Get()
	s.Wac = r.Wac.Get()
	s.SeqCtrl = r.SeqCtrl.Get()
	s.SeqCtrlB = r.SeqCtrlB.Get()
	s.IEN = r.IEN.Get()
	for i := range s.Seq {
		s.Seq[i] = r.Seq[i].Get()
	}
	for i := range s.DData {
		for w := range s.DData[i] {
			s.DData[i][w] = r.DData[i].Get()
		}
	}
}

// restore writes the image back.  Flags still up belong to the previous
// owner and are dropped before IEN is armed.
func (s *hardwareState) restore(r *efr32.CryptoRegisterMap) {
	r.Ctrl.Set(s.Ctrl)
	r.Wac.Set(s.Wac)
	r.SeqCtrl.Set(s.SeqCtrl)
	r.SeqCtrlB.Set(s.SeqCtrlB)
	for i := range s.Seq {
		r.Seq[i].Set(s.Seq[i])
	}
	for i := range s.DData {
		for w := range s.DData[i] {
			r.DData[i].Set(s.DData[i][w])
		}
	}
	r.IFC.Set(^uint32(0))
	r.IEN.Set(s.IEN)
}
