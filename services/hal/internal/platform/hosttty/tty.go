// Package hosttty backs a HAL UART with a serial device on the host. The
// device is serviced by two goroutines; the register view it presents to the
// UART transport is only touched from the core goroutine.
package hosttty

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"

	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/types"
)

const (
	txFIFO      = 64
	rxFIFO      = 256
	readTimeout = 50 * time.Millisecond
)

// Opener opens the host device. serial.OpenPort by default.
type Opener func(c *serial.Config) (io.ReadWriteCloser, error)

func openTarm(c *serial.Config) (io.ReadWriteCloser, error) { return serial.OpenPort(c) }

type TTY struct {
	name string
	open Opener
	port io.ReadWriteCloser

	rxCh chan byte
	txCh chan byte
	done chan struct{}

	raiser halcore.Raiser
	vec    halcore.UARTVectors

	rdr       byte
	rxPending bool
	udreOwed  bool

	lastErr atomic.Value // error
	rxDrops atomic.Uint32
	txDrops int
}

var _ halcore.ExternalUART = (*TTY)(nil)

// New returns a TTY for the named device. Nothing is opened until Configure.
func New(name string) *TTY { return NewWithOpener(name, openTarm) }

func NewWithOpener(name string, open Opener) *TTY {
	return &TTY{
		name: name,
		open: open,
		rxCh: make(chan byte, rxFIFO),
		txCh: make(chan byte, txFIFO),
	}
}

func (t *TTY) Name() string { return t.name }

func (t *TTY) Bind(r halcore.Raiser, v halcore.UARTVectors) {
	t.raiser = r
	t.vec = v
}

func parityOf(p types.Parity) serial.Parity {
	switch p {
	case types.ParityEven:
		return serial.ParityEven
	case types.ParityOdd:
		return serial.ParityOdd
	default:
		return serial.ParityNone
	}
}

// Configure opens the device at the requested rate and starts the pumps.
// The host clock has no bearing on the rate, so CPUHz is ignored.
func (t *TTY) Configure(f halcore.UARTFormat) error {
	if f.InvertPolarity {
		return &errcode.E{C: errcode.Unsupported, Op: "hosttty.Configure", Msg: "inverted polarity"}
	}
	if t.port != nil {
		return &errcode.E{C: errcode.Busy, Op: "hosttty.Configure", Msg: t.name}
	}
	p, err := t.open(&serial.Config{
		Name:        t.name,
		Baud:        int(f.Baud),
		Parity:      parityOf(f.Parity),
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return &errcode.E{C: errcode.UnknownBus, Op: "hosttty.Configure", Msg: t.name, Err: err}
	}
	t.port = p
	t.done = make(chan struct{})
	go t.readLoop(p, t.done)
	go t.writeLoop(p, t.done)
	return nil
}

// The pumps take the device and stop channel as arguments: Close clears
// t.port from the core goroutine while they may still be running.
func (t *TTY) readLoop(p io.Reader, done <-chan struct{}) {
	buf := make([]byte, 64)
	for {
		n, err := p.Read(buf)
		for _, b := range buf[:n] {
			select {
			case t.rxCh <- b:
			default:
				t.rxDrops.Add(1)
			}
		}
		if err != nil {
			if err != io.EOF {
				t.lastErr.Store(err)
			}
			return
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

func (t *TTY) writeLoop(p io.Writer, done <-chan struct{}) {
	var one [1]byte
	for {
		select {
		case <-done:
			return
		case b := <-t.txCh:
			one[0] = b
			if _, err := p.Write(one[:]); err != nil {
				t.lastErr.Store(err)
				return
			}
		}
	}
}

// DataRegisterEmpty reports room in the outgoing FIFO.
func (t *TTY) DataRegisterEmpty() bool { return len(t.txCh) < cap(t.txCh) }

// WriteData hands b to the writer goroutine. While room remains the next
// UDRE is raised at once; otherwise Poll raises it when the writer catches up.
func (t *TTY) WriteData(b byte) {
	select {
	case t.txCh <- b:
	default:
		t.txDrops++
	}
	if t.DataRegisterEmpty() {
		t.raise(t.vec.DataRegisterEmpty)
		return
	}
	t.udreOwed = true
}

func (t *TTY) ReadData() byte {
	t.rxPending = false
	return t.rdr
}

// Poll moves received bytes into the data register one at a time and pays
// any owed UDRE.
func (t *TTY) Poll() {
	for n := 0; n < rxFIFO && !t.rxPending; n++ {
		b, ok := t.tryRecv()
		if !ok {
			break
		}
		t.rdr = b
		t.rxPending = true
		t.raise(t.vec.RxComplete)
	}
	if t.udreOwed && t.DataRegisterEmpty() {
		t.udreOwed = false
		t.raise(t.vec.DataRegisterEmpty)
	}
}

func (t *TTY) tryRecv() (byte, bool) {
	select {
	case b := <-t.rxCh:
		return b, true
	default:
		return 0, false
	}
}

func (t *TTY) raise(v halcore.Vector) {
	if t.raiser != nil {
		t.raiser.Raise(v)
	}
}

// Err returns the last device error, if any.
func (t *TTY) Err() error {
	if e, ok := t.lastErr.Load().(error); ok {
		return e
	}
	return nil
}

func (t *TTY) RxDrops() uint32 { return t.rxDrops.Load() }
func (t *TTY) TxDrops() int    { return t.txDrops }

// Close stops the pumps and closes the device.
func (t *TTY) Close() error {
	if t.port == nil {
		return nil
	}
	close(t.done)
	err := t.port.Close()
	t.port = nil
	return err
}
