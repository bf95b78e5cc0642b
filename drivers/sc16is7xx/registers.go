package sc16is7xx

const (
	// 7-bit I2C address with A1 = A0 = VDD.
	AddressDefault = 0x48

	// Crystal fitted on most breakout boards.
	CrystalDefault = 14_745_600

	// --- General register set (LCR[7] = 0) ---
	regRHR   = 0x00 // R
	regTHR   = 0x00 // W
	regIER   = 0x01 // R/W
	regFCR   = 0x02 // W
	regLCR   = 0x03 // R/W
	regMCR   = 0x04 // R/W
	regLSR   = 0x05 // R
	regTXLVL = 0x08 // R
	regRXLVL = 0x09 // R

	// --- Special register set (LCR[7] = 1) ---
	regDLL = 0x00
	regDLH = 0x01

	// LCR bits
	lcr8Bits     = 0x03
	lcrParityEn  = 0x08
	lcrParityEvn = 0x10
	lcrDivisorEn = 0x80

	// FCR bits
	fcrFIFOEnable = 0x01
	fcrRxReset    = 0x02
	fcrTxReset    = 0x04

	// LSR bits
	LSRDataReady   = 0x01
	LSROverrun     = 0x02
	LSRParityErr   = 0x04
	LSRFramingErr  = 0x08
	LSRTHREmpty    = 0x20
	LSRTxEmpty     = 0x40
	LSRFIFODataErr = 0x80

	// FIFOSize is the depth of each channel FIFO.
	FIFOSize = 64
)

// subaddr encodes a register and channel into the I2C sub-address byte.
func subaddr(reg, ch uint8) byte { return reg<<3 | (ch&1)<<1 }
