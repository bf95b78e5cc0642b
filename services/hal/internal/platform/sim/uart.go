package sim

import (
	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
)

// UART models one USART register block: a single transmit data register
// whose completion raises UDRE, and a receive data register whose arrival
// raises RX complete.
type UART struct {
	id      string
	raiser  halcore.Raiser
	rxVec   halcore.Vector
	udreVec halcore.Vector

	format     halcore.UARTFormat
	configured bool

	txBusy  bool
	txShift byte
	wire    []byte

	rdr      byte
	rxFull   bool
	overruns int
	dropped  int // writes while the data register was busy
}

var _ halcore.UARTRegisters = (*UART)(nil)

func (u *UART) ID() string                 { return u.id }
func (u *UART) RxVector() halcore.Vector   { return u.rxVec }
func (u *UART) UDREVector() halcore.Vector { return u.udreVec }
func (u *UART) Format() halcore.UARTFormat { return u.format }
func (u *UART) Configured() bool           { return u.configured }
func (u *UART) Overruns() int              { return u.overruns }
func (u *UART) DroppedWrites() int         { return u.dropped }
func (u *UART) DataRegisterEmpty() bool    { return !u.txBusy }
func (u *UART) Wire() []byte               { return append([]byte(nil), u.wire...) }
func (u *UART) TxBusy() bool               { return u.txBusy }

func (u *UART) Configure(f halcore.UARTFormat) error {
	if f.Baud == 0 || f.CPUHz == 0 {
		return &errcode.E{C: errcode.InvalidBaud, Op: "sim.UART.Configure"}
	}
	u.format = f
	u.configured = true
	return nil
}

// WriteData loads the transmit register. A write while busy is lost, as on
// the real part.
func (u *UART) WriteData(b byte) {
	if u.txBusy {
		u.dropped++
		return
	}
	u.txBusy = true
	u.txShift = b
}

// ReadData returns the receive register and clears the RX flag.
func (u *UART) ReadData() byte {
	u.rxFull = false
	return u.rdr
}

// Step finishes the byte being shifted out, appends it to the wire log and
// raises UDRE. It reports false when nothing was in flight.
func (u *UART) Step() bool {
	if !u.txBusy {
		return false
	}
	u.wire = append(u.wire, u.txShift)
	u.txBusy = false
	u.raiser.Raise(u.udreVec)
	return true
}

// Drain steps until the transmitter stays idle or max bytes went out.
func (u *UART) Drain(max int) int {
	n := 0
	for n < max && u.Step() {
		n++
	}
	return n
}

// TakeWire returns and clears the wire log.
func (u *UART) TakeWire() []byte {
	w := u.wire
	u.wire = nil
	return w
}

// Receive delivers one byte from the line. If the previous byte has not
// been read yet it is overwritten and counted as an overrun.
func (u *UART) Receive(b byte) {
	if u.rxFull {
		u.overruns++
	}
	u.rdr = b
	u.rxFull = true
	u.raiser.Raise(u.rxVec)
}
