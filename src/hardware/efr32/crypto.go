package efr32

import "emlib/src/lib/volatile"

// CryptoRegisterMap is the register block of one CRYPTO instance.  The data
// registers are ports: each access moves one 32 bit word and advances the
// port's word index, so a 256 bit register is read or written with eight
// consecutive accesses.
type CryptoRegisterMap struct {
	Ctrl      volatile.Register32    //0x00
	Wac       volatile.Register32    //0x04
	Cmd       volatile.Register32    //0x08
	reserved0 volatile.Register32    //0x0C
	Status    volatile.Register32    //0x10
	DStatus   volatile.Register32    //0x14
	CStatus   volatile.Register32    //0x18
	reserved1 volatile.Register32    //0x1C
	Key       volatile.Register32    //0x20
	KeyBuf    volatile.Register32    //0x24
	reserved2 [2]volatile.Register32 //0x28-0x2C
	SeqCtrl   volatile.Register32    //0x30
	SeqCtrlB  volatile.Register32    //0x34
	reserved3 [2]volatile.Register32 //0x38-0x3C
	IF        volatile.Register32    //0x40
	IFS       volatile.Register32    //0x44
	IFC       volatile.Register32    //0x48
	IEN       volatile.Register32    //0x4C
	Seq       [5]volatile.Register32 //0x50-0x60
	reserved4 [7]volatile.Register32 //0x64-0x7C
	Data      [4]volatile.Register32 //0x80-0x8C
	reserved5 [4]volatile.Register32 //0x90-0x9C
	DData     [5]volatile.Register32 //0xA0-0xB0
	reserved6 [3]volatile.Register32 //0xB4-0xBC
	DData0Big volatile.Register32    //0xC0
	reserved7 [3]volatile.Register32 //0xC4-0xCC
	QData0    volatile.Register32    //0xD0
	QData1    volatile.Register32    //0xD4
	reserved8 [2]volatile.Register32 //0xD8-0xDC
	QData1Big volatile.Register32    //0xE0
}

// CTRL
const CryptoCtrlAES256 = 1 << 0
const CryptoCtrlKeyBufDisable = 1 << 1
const CryptoCtrlSHA2 = 1 << 2 // clear selects SHA-1
const CryptoCtrlDMA0ModeShift = 16
const CryptoCtrlDMA0ModeMask = 0x3
const CryptoCtrlDMA0RSelShift = 20
const CryptoCtrlDMA0RSelMask = 0x3
const CryptoCtrlDMA1ModeShift = 24
const CryptoCtrlDMA1ModeMask = 0x3
const CryptoCtrlDMA1RSelShift = 28
const CryptoCtrlDMA1RSelMask = 0x3

const CryptoDMAModeFull = 0
const CryptoDMAModeLengthA = 1
const CryptoDMARSelData0 = 0
const CryptoDMARSelDData0 = 1

// WAC
const CryptoWacResultWidth256 = 0 << 8
const CryptoWacResultWidth128 = 1 << 8
const CryptoWacModulusBin256 = 0

// CMD
const CryptoCmdInstrMask = 0xFF
const CryptoCmdSeqStart = 1 << 8
const CryptoCmdSeqStop = 1 << 9
const CryptoCmdSeqStep = 1 << 10

// STATUS
const CryptoStatusSeqRunning = 1 << 0
const CryptoStatusInstrRunning = 1 << 1
const CryptoStatusDMAActive = 1 << 2

// IF, IFS, IFC, IEN
const CryptoIntInstrDone = 1 << 0
const CryptoIntSeqDone = 1 << 1
const CryptoIntBufOverflow = 1 << 2
const CryptoIntBufUnderflow = 1 << 3

// SEQCTRL
const CryptoSeqCtrlLengthAMask = 0x3FFF
const CryptoSeqCtrlBlockSizeShift = 20
const CryptoSeqCtrlBlockSizeMask = 0x3
const CryptoSeqCtrlBlockSize16 = 0 << CryptoSeqCtrlBlockSizeShift
const CryptoSeqCtrlBlockSize32 = 1 << CryptoSeqCtrlBlockSizeShift
const CryptoSeqCtrlBlockSize64 = 2 << CryptoSeqCtrlBlockSizeShift

// CryptoSeqRegisters is the number of SEQ registers; each holds four
// instructions, low byte first.
const CryptoSeqRegisters = 5
const CryptoMaxSequenceInstructions = CryptoSeqRegisters * 4

// DDATA registers are 256 bits wide.
const CryptoDDataWords = 8
const CryptoDDataRegisters = 5

// Instructions, used in CMD.INSTR and the SEQ registers.
const (
	InstrEnd             = 0x00
	InstrAESEnc          = 0x01
	InstrAESDec          = 0x02
	InstrSHA             = 0x03
	InstrMAdd32          = 0x04 // DDATA0 = DDATA0 + DDATA1, word by word
	InstrDData0ToDData1  = 0x05
	InstrDData1ToDData0  = 0x06
	InstrDData1ToDData2  = 0x07
	InstrData0ToData1    = 0x08
	InstrData1ToData0XOR = 0x09
	InstrData0ToData2    = 0x0A
	InstrData2ToData1    = 0x0B
	InstrDMA0ToData      = 0x0C
	InstrDataToDMA1      = 0x0D
	InstrBufToData0      = 0x0E
	InstrData0ToBuf      = 0x0F
)

// SequenceWords packs up to 20 instructions into the five SEQ register
// values.  Unused slots are END.
func SequenceWords(instrs ...uint8) [CryptoSeqRegisters]uint32 {
	var words [CryptoSeqRegisters]uint32
	if len(instrs) > CryptoMaxSequenceInstructions {
		panic("sequence does not fit in the SEQ registers")
	}
	for i, in := range instrs {
		words[i/4] |= uint32(in) << (8 * uint(i%4))
	}
	return words
}
