package efr32

import "emlib/src/lib/volatile"

// CMURegisterMap holds the clock gates the drivers in this module use.
type CMURegisterMap struct {
	HFBusClkEn0 volatile.Register32 //0xB0
	HFPerClkEn0 volatile.Register32 //0xC0
}

// HFBUSCLKEN0
const CMUHFBusClkEn0Crypto0 = 1 << 0
const CMUHFBusClkEn0LE = 1 << 1
const CMUHFBusClkEn0LDMA = 1 << 3
const CMUHFBusClkEn0Crypto1 = 1 << 4
const CMUHFBusClkEn0BUFC = 1 << 5
