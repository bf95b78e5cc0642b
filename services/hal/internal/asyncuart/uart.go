// Package asyncuart is an interrupt-driven UART transport. Outgoing bytes
// are queued and drained one per data-register-empty interrupt; incoming
// bytes are queued by the receive-complete interrupt.
//
// Write never blocks. When the TX queue overfills, a truncation marker is
// queued so the loss is visible on the wire, and writes are refused until
// the queue has drained completely. Read never blocks.
package asyncuart

import (
	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/irq"
	"mcuhal-go/types"
	"mcuhal-go/x/cqueue"
)

// TruncationMarker is queued in place of the bytes a Write could not fit.
const TruncationMarker = "\r\nTX BUFF FULL\r\n"

// Vectors used by a hardware UART channel.
type Vectors = halcore.UARTVectors

type Config struct {
	Baud           uint32
	CPUHz          uint32
	Parity         types.Parity
	InvertPolarity bool
}

type UART struct {
	regs halcore.UARTRegisters
	ic   halcore.InterruptControl
	cfg  Config

	tx *cqueue.Queue[byte]
	rx *cqueue.Queue[byte]

	state       types.TxState
	txLatched   bool // set on truncation, cleared once tx drains
	overflow    bool // rx byte dropped since the last successful Read
	initialized bool
}

var _ halcore.SerialPort = (*UART)(nil)

// New builds a UART over regs. txBuf must have room for at least one byte
// beyond the truncation marker; rxBuf must be non-empty. Both buffers are
// owned by the UART from here on.
func New(cfg Config, regs halcore.UARTRegisters, ic halcore.InterruptControl, txBuf, rxBuf []byte) (*UART, error) {
	if regs == nil || ic == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "asyncuart.New", Msg: "missing registers or interrupt control"}
	}
	if cfg.Baud == 0 || cfg.CPUHz == 0 || cfg.Baud > cfg.CPUHz/8 {
		return nil, &errcode.E{C: errcode.InvalidBaud, Op: "asyncuart.New"}
	}
	if len(txBuf) <= len(TruncationMarker) {
		return nil, &errcode.E{C: errcode.ZeroCapacity, Op: "asyncuart.New", Msg: "tx buffer must exceed the truncation marker"}
	}
	tx, err := cqueue.New(txBuf, false)
	if err != nil {
		return nil, err
	}
	rx, err := cqueue.New(rxBuf, false)
	if err != nil {
		return nil, err
	}
	return &UART{regs: regs, ic: ic, cfg: cfg, tx: tx, rx: rx}, nil
}

// Initialize programs the register block. It must be called once, after
// the vectors have been installed.
func (u *UART) Initialize() error {
	if u.initialized {
		return &errcode.E{C: errcode.Busy, Op: "asyncuart.Initialize", Msg: "already initialized"}
	}
	if err := u.regs.Configure(halcore.UARTFormat{
		Baud:           u.cfg.Baud,
		CPUHz:          u.cfg.CPUHz,
		Parity:         u.cfg.Parity,
		InvertPolarity: u.cfg.InvertPolarity,
	}); err != nil {
		return &errcode.E{C: errcode.MapDriverErr(err), Op: "asyncuart.Initialize", Err: err}
	}
	u.initialized = true
	return nil
}

// Install registers the UART's ISRs with the vector table.
func (u *UART) Install(vt halcore.VectorTable, v Vectors) error {
	if err := vt.Install(v.RxComplete, u.HandleRxDataAvailable); err != nil {
		return err
	}
	if err := vt.Install(v.DataRegisterEmpty, u.HandleDataRegisterEmpty); err != nil {
		vt.Uninstall(v.RxComplete)
		return err
	}
	return nil
}

// Write queues p for transmission and returns how many bytes of p were
// accepted. A short count comes with errcode.TxFull.
func (u *UART) Write(p []byte) (int, error) {
	if !u.initialized {
		return 0, errcode.HALNotReady
	}
	if len(p) == 0 {
		return 0, nil
	}
	defer irq.Pause(u.ic).Resume()

	if u.txLatched {
		if !u.tx.IsEmpty() {
			return 0, errcode.TxFull
		}
		u.txLatched = false
	}

	limit := u.tx.Cap() - len(TruncationMarker)
	n := 0
	for n < len(p) && u.tx.Len() < limit {
		u.tx.Push(p[n])
		n++
	}
	if n < len(p) {
		for i := 0; i < len(TruncationMarker); i++ {
			u.tx.Push(TruncationMarker[i])
		}
		u.txLatched = true
	}

	u.prime()

	if n < len(p) {
		return n, errcode.TxFull
	}
	return n, nil
}

// prime starts the ISR chain when nothing is in flight. Interrupts are
// masked by the caller.
func (u *UART) prime() {
	if u.state == types.TxIdle && !u.tx.IsEmpty() && u.regs.DataRegisterEmpty() {
		b, _ := u.tx.Pop()
		u.state = types.TxTransmitting
		u.regs.WriteData(b)
	}
}

// Read copies up to len(p) received bytes into p. It returns 0 when nothing
// is pending and never blocks.
func (u *UART) Read(p []byte) (int, error) {
	if !u.initialized {
		return 0, errcode.HALNotReady
	}
	defer irq.Pause(u.ic).Resume()

	n := 0
	for n < len(p) {
		b, ok := u.rx.Pop()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	if n > 0 {
		u.overflow = false
	}
	return n, nil
}

// IsDataAvailable reports whether the RX queue holds at least one byte.
func (u *UART) IsDataAvailable() bool {
	defer irq.Pause(u.ic).Resume()
	return !u.rx.IsEmpty()
}

// Buffered returns the number of received bytes waiting to be read.
func (u *UART) Buffered() int {
	defer irq.Pause(u.ic).Resume()
	return u.rx.Len()
}

// Overflowed reports whether a received byte has been dropped since the
// last successful Read.
func (u *UART) Overflowed() bool {
	defer irq.Pause(u.ic).Resume()
	return u.overflow
}

// TxLatched reports whether writes are being refused after a truncation.
func (u *UART) TxLatched() bool {
	defer irq.Pause(u.ic).Resume()
	return u.txLatched
}

func (u *UART) State() types.TxState {
	defer irq.Pause(u.ic).Resume()
	return u.state
}

// Flush discards everything queued in both directions. A byte already in
// the data register still goes out.
func (u *UART) Flush() {
	defer irq.Pause(u.ic).Resume()
	u.tx.Flush()
	u.rx.Flush()
	u.txLatched = false
	u.overflow = false
}

// Status is a consistent snapshot for diagnostics.
func (u *UART) Status() types.SerialStatus {
	defer irq.Pause(u.ic).Resume()
	return types.SerialStatus{
		TxQueued:   u.tx.Len(),
		TxCap:      u.tx.Cap(),
		RxQueued:   u.rx.Len(),
		RxCap:      u.rx.Cap(),
		TxState:    u.state,
		TxLatched:  u.txLatched,
		Overflowed: u.overflow,
	}
}

// HandleDataRegisterEmpty is the UDRE ISR: feed the next byte or go idle.
func (u *UART) HandleDataRegisterEmpty() {
	b, ok := u.tx.Pop()
	if !ok {
		u.state = types.TxIdle
		u.txLatched = false
		return
	}
	u.state = types.TxTransmitting
	u.regs.WriteData(b)
}

// HandleRxDataAvailable is the receive-complete ISR. The data register is
// always read so the hardware flag clears; a byte that does not fit is
// dropped and flagged.
func (u *UART) HandleRxDataAvailable() {
	b := u.regs.ReadData()
	if !u.rx.Push(b) {
		u.overflow = true
	}
}
