package softserial

import "mcuhal-go/errcode"

// Fixed path costs of the AVR build, in CPU cycles.
const (
	// WriteBitCycles is the cost of driving one bit onto the TX pin.
	WriteBitCycles = 86
	// ReadBitCycles is the cost of sampling and shifting one RX bit.
	ReadBitCycles = 106
	// RxEntryCycles is the latency from the start edge to the first
	// instruction of the centering delay.
	RxEntryCycles = 240
)

// Timing holds the calibrated delays, in units of the four-cycle busy wait.
type Timing struct {
	CyclesPerBit uint32
	TxHold       uint16 // per bit on transmit
	RxInterBit   uint16 // between receive samples
	RxCentering  uint16 // from the start edge to the first data sample
}

// Calibrate derives the bit delays for baud at cpuHz. A rate the bit-bang
// loops cannot keep up with, or one so slow that a delay overflows the
// 16-bit busy-wait counter, is a configuration error.
func Calibrate(baud, cpuHz uint32) (Timing, error) {
	if baud == 0 || cpuHz == 0 {
		return Timing{}, &errcode.E{C: errcode.InvalidBaud, Op: "softserial.Calibrate", Msg: "zero baud or clock"}
	}
	cpb := int64(cpuHz / baud)

	tx, err := quads(cpb-WriteBitCycles, "tx hold")
	if err != nil {
		return Timing{}, err
	}
	inter, err := quads(cpb-ReadBitCycles, "rx inter-bit")
	if err != nil {
		return Timing{}, err
	}
	center, err := quads(3*cpb/2-RxEntryCycles, "rx centering")
	if err != nil {
		return Timing{}, err
	}
	return Timing{
		CyclesPerBit: uint32(cpb),
		TxHold:       tx,
		RxInterBit:   inter,
		RxCentering:  center,
	}, nil
}

func quads(cycles int64, what string) (uint16, error) {
	if cycles < 0 {
		return 0, &errcode.E{C: errcode.InvalidBaud, Op: "softserial.Calibrate", Msg: what + " delay is negative: bit rate too high for this clock"}
	}
	q := cycles / 4
	if q > 0xFFFF {
		return 0, &errcode.E{C: errcode.InvalidBaud, Op: "softserial.Calibrate", Msg: what + " delay overflows the busy-wait counter"}
	}
	return uint16(q), nil
}
