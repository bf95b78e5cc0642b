// Package softserial implements 8N1 serial on general purpose pins.
//
// Transmit busy-waits through each frame with interrupts masked. Receive is
// driven by the RX pin's pin-change interrupt: the line whose RX pin reads
// low samples the byte at calibrated intervals, still inside the ISR.
package softserial

import (
	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/irq"
	"mcuhal-go/types"
	"mcuhal-go/x/cqueue"
)

type Config struct {
	Baud  uint32
	CPUHz uint32
	RX    halcore.IRQPin
	TX    halcore.Pin
}

type Serial struct {
	rxPin halcore.IRQPin
	txPin halcore.Pin
	ic    halcore.InterruptControl
	delay halcore.CycleDelay
	reg   *Registry

	timing Timing
	rx     *cqueue.Queue[byte]

	overflow    bool // byte dropped since the last successful Read
	initialized bool
}

var (
	_ halcore.SerialPort = (*Serial)(nil)
	_ Listener           = (*Serial)(nil)
)

// New calibrates the line and binds it to its collaborators. rxBuf is owned
// by the Serial from here on.
func New(cfg Config, reg *Registry, ic halcore.InterruptControl, delay halcore.CycleDelay, rxBuf []byte) (*Serial, error) {
	if cfg.RX == nil || cfg.TX == nil || reg == nil || ic == nil || delay == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "softserial.New", Msg: "missing pin or collaborator"}
	}
	t, err := Calibrate(cfg.Baud, cfg.CPUHz)
	if err != nil {
		return nil, err
	}
	q, err := cqueue.New(rxBuf, false)
	if err != nil {
		return nil, err
	}
	return &Serial{
		rxPin:  cfg.RX,
		txPin:  cfg.TX,
		ic:     ic,
		delay:  delay,
		reg:    reg,
		timing: t,
		rx:     q,
	}, nil
}

func (s *Serial) Timing() Timing { return s.timing }

// Initialize joins the RX port's listener table, unmasks the RX pin-change
// interrupt and idles the TX line high. The port's vector must have been
// installed through Registry.Install.
func (s *Serial) Initialize() error {
	if s.initialized {
		return &errcode.E{C: errcode.Busy, Op: "softserial.Initialize", Msg: "already initialized"}
	}
	port := s.rxPin.Port()
	if err := s.rxPin.ConfigureInput(halcore.PullUp); err != nil {
		return err
	}
	if err := s.txPin.ConfigureOutput(halcore.High); err != nil {
		return err
	}
	g := irq.Pause(s.ic)
	err := s.reg.Add(port, s)
	g.Resume()
	if err != nil {
		return err
	}
	if err := s.rxPin.EnableChangeInterrupt(); err != nil {
		g := irq.Pause(s.ic)
		s.reg.Remove(port, s)
		g.Resume()
		return err
	}
	s.initialized = true
	return nil
}

// Close leaves the port table and masks the RX pin.
func (s *Serial) Close() error {
	if !s.initialized {
		return nil
	}
	defer irq.Pause(s.ic).Resume()
	s.reg.Remove(s.rxPin.Port(), s)
	s.initialized = false
	return s.rxPin.DisableChangeInterrupt()
}

// Write transmits p and returns once the last stop bit has been held.
func (s *Serial) Write(p []byte) (int, error) {
	if !s.initialized {
		return 0, errcode.HALNotReady
	}
	for _, b := range p {
		s.writeByte(b)
	}
	return len(p), nil
}

func (s *Serial) writeByte(b byte) {
	defer irq.Pause(s.ic).Resume()
	hold := s.timing.TxHold

	s.txPin.Set(halcore.Low)
	s.delay.DelayQuadCycles(hold)

	for i := 0; i < 8; i++ {
		s.txPin.Set(halcore.LevelOf(b&1 == 1))
		b >>= 1
		s.delay.DelayQuadCycles(hold)
	}

	s.txPin.Set(halcore.High)
	s.delay.DelayQuadCycles(hold)
}

// OnPinChange runs in the port's ISR. Only a line whose RX reads low (a
// start bit) takes the event.
func (s *Serial) OnPinChange() bool {
	if s.rxPin.Get() != halcore.Low {
		return false
	}
	s.receiveByte()
	return true
}

func (s *Serial) receiveByte() {
	defer irq.Pause(s.ic).Resume()

	s.delay.DelayQuadCycles(s.timing.RxCentering)
	var data byte
	for i := 0; i < 8; i++ {
		data >>= 1
		if s.rxPin.Get() == halcore.High {
			data |= 0x80
		}
		s.delay.DelayQuadCycles(s.timing.RxInterBit)
	}

	if !s.rx.Push(data) {
		s.overflow = true
	}
}

// Read copies up to len(p) received bytes into p. It never blocks.
func (s *Serial) Read(p []byte) (int, error) {
	if !s.initialized {
		return 0, errcode.HALNotReady
	}
	defer irq.Pause(s.ic).Resume()

	n := 0
	for n < len(p) {
		b, ok := s.rx.Pop()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	if n > 0 {
		s.overflow = false
	}
	return n, nil
}

func (s *Serial) IsDataAvailable() bool {
	defer irq.Pause(s.ic).Resume()
	return !s.rx.IsEmpty()
}

func (s *Serial) Buffered() int {
	defer irq.Pause(s.ic).Resume()
	return s.rx.Len()
}

// Overflowed reports whether a received byte was dropped on a full queue
// since the last successful Read.
func (s *Serial) Overflowed() bool {
	defer irq.Pause(s.ic).Resume()
	return s.overflow
}

// Flush discards received bytes and the overflow flag.
func (s *Serial) Flush() {
	defer irq.Pause(s.ic).Resume()
	s.rx.Flush()
	s.overflow = false
}

func (s *Serial) Status() types.SerialStatus {
	defer irq.Pause(s.ic).Resume()
	return types.SerialStatus{
		RxQueued:   s.rx.Len(),
		RxCap:      s.rx.Cap(),
		Overflowed: s.overflow,
	}
}
