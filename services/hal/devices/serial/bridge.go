package serial

import (
	"errors"

	"mcuhal-go/drivers/sc16is7xx"
	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/types"
	"mcuhal-go/x/cqueue"
)

// bridgeRegs presents one SC16IS7xx channel as a UART register block. The
// chip's FIFOs stand in for the data register: a UDRE is raised while the
// TX FIFO has room, and RX bytes burst-read on Poll are fed to the RX
// vector one at a time.
type bridgeRegs struct {
	dev    *sc16is7xx.Device
	raiser halcore.Raiser
	vec    halcore.UARTVectors

	txSpace  int
	udreOwed bool

	rx        *cqueue.Queue[byte]
	rxBuf     [sc16is7xx.FIFOSize]byte
	burst     [sc16is7xx.FIFOSize]byte
	rdr       byte
	rxPending bool

	busErrs int
	lastErr error
}

var _ halcore.ExternalUART = (*bridgeRegs)(nil)

func newBridgeRegs(dev *sc16is7xx.Device) *bridgeRegs {
	b := &bridgeRegs{dev: dev}
	b.rx = cqueue.MustNew(b.rxBuf[:], false)
	return b
}

func (b *bridgeRegs) Bind(r halcore.Raiser, v halcore.UARTVectors) {
	b.raiser = r
	b.vec = v
}

func (b *bridgeRegs) Configure(f halcore.UARTFormat) error {
	if f.InvertPolarity {
		return &errcode.E{C: errcode.Unsupported, Op: "sc16is7xx", Msg: "inverted polarity"}
	}
	par := sc16is7xx.ParityNone
	switch f.Parity {
	case types.ParityEven:
		par = sc16is7xx.ParityEven
	case types.ParityOdd:
		par = sc16is7xx.ParityOdd
	}
	if err := b.dev.Configure(f.Baud, par); err != nil {
		if errors.Is(err, sc16is7xx.ErrBaud) {
			return &errcode.E{C: errcode.InvalidBaud, Op: "sc16is7xx", Err: err}
		}
		return &errcode.E{C: errcode.Error, Op: "sc16is7xx", Err: err}
	}
	b.txSpace = sc16is7xx.FIFOSize
	return nil
}

func (b *bridgeRegs) DataRegisterEmpty() bool { return b.txSpace > 0 }

func (b *bridgeRegs) WriteData(v byte) {
	if err := b.dev.WriteByte(v); err != nil {
		b.note(err)
	}
	b.txSpace--
	if b.txSpace > 0 {
		b.raise(b.vec.DataRegisterEmpty)
		return
	}
	b.udreOwed = true
}

func (b *bridgeRegs) ReadData() byte {
	b.rxPending = false
	return b.rdr
}

// Poll refills the local RX queue from the chip, feeds the RX vector and
// refreshes the TX FIFO level.
func (b *bridgeRegs) Poll() {
	if b.rx.IsEmpty() {
		n, err := b.dev.ReadFIFO(b.burst[:])
		if err != nil {
			b.note(err)
		}
		for _, c := range b.burst[:n] {
			b.rx.Push(c)
		}
	}
	for !b.rxPending {
		c, ok := b.rx.Pop()
		if !ok {
			break
		}
		b.rdr = c
		b.rxPending = true
		b.raise(b.vec.RxComplete)
	}

	if b.txSpace >= sc16is7xx.FIFOSize && !b.udreOwed {
		return
	}
	space, err := b.dev.TxSpace()
	if err != nil {
		b.note(err)
		return
	}
	b.txSpace = space
	if b.udreOwed && space > 0 {
		b.udreOwed = false
		b.raise(b.vec.DataRegisterEmpty)
	}
}

func (b *bridgeRegs) raise(v halcore.Vector) {
	if b.raiser != nil {
		b.raiser.Raise(v)
	}
}

func (b *bridgeRegs) note(err error) {
	b.busErrs++
	b.lastErr = err
}

// Err is the last I²C error seen.
func (b *bridgeRegs) Err() error     { return b.lastErr }
func (b *bridgeRegs) BusErrors() int { return b.busErrs }
