package sim

import (
	"time"

	"tinygo.org/x/drivers"

	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/irq"
)

// Atmega328 vector numbers (zero-based, reset excluded).
const (
	VectorINT0      halcore.Vector = 1
	VectorINT1      halcore.Vector = 2
	VectorPCINT0    halcore.Vector = 3
	VectorPCINT1    halcore.Vector = 4
	VectorPCINT2    halcore.Vector = 5
	VectorTimer0Ovf halcore.Vector = 16
	VectorUSARTRX   halcore.Vector = 18
	VectorUSARTUDRE halcore.Vector = 19
)

const DefaultCPUHz = 16_000_000

// Path costs of the AVR build, in cycles. ISR entry plus one RX scan read
// make up the 240-cycle start-bit latency the software serial calibrates for.
const (
	DefaultPinReadCycles  = 106
	DefaultPinWriteCycles = 86
	DefaultISREntryCycles = 134
)

// maxPollStep caps how much virtual time one Poll may add.
const maxPollStep = 100 * time.Millisecond

// Vectors handed out to attached off-chip UARTs, two at a time.
const (
	firstExtVector = 20
	lastExtVector  = irq.NumVectors - 1
)

// Board wires a clock, an interrupt controller, 20 pins in three pin-change
// ports and the on-chip USART "uart0".
type Board struct {
	IRQ   *irq.Controller
	Clock *Clock

	pins  [NumPins]*Pin
	ports [3]*Port
	uart0 *UART
	ext   map[string]extUART
	order []halcore.ExternalUART
	nextV halcore.Vector
	freeV []halcore.UARTVectors
	i2c   map[string]drivers.I2C

	last    time.Time
	txAccum uint64
}

// extUART is an attached UART and the vector pair it was given.
type extUART struct {
	regs halcore.ExternalUART
	vec  halcore.UARTVectors
}

var (
	_ halcore.Platform      = (*Board)(nil)
	_ halcore.UARTAttacher  = (*Board)(nil)
	_ halcore.Stimulus      = (*Board)(nil)
	_ halcore.I2CBusFactory = (*Board)(nil)
)

// NewBoard returns a board running at cpuHz (DefaultCPUHz if zero).
func NewBoard(cpuHz uint32) *Board {
	if cpuHz == 0 {
		cpuHz = DefaultCPUHz
	}
	b := &Board{
		IRQ:   irq.New(),
		Clock: NewClock(cpuHz),
		ext:   map[string]extUART{},
		nextV: firstExtVector,
		i2c:   map[string]drivers.I2C{},
	}
	b.Clock.PinReadCycles = DefaultPinReadCycles
	b.Clock.PinWriteCycles = DefaultPinWriteCycles
	b.Clock.ISREntryCycles = DefaultISREntryCycles
	b.IRQ.SetEntryHook(func(halcore.Vector) { b.Clock.Advance(b.Clock.ISREntryCycles) })

	vecs := [3]halcore.Vector{VectorPCINT0, VectorPCINT1, VectorPCINT2}
	for i := range b.ports {
		b.ports[i] = &Port{id: i, vector: vecs[i], raiser: b.IRQ}
	}
	for n := 0; n < NumPins; n++ {
		pt := b.ports[PortOf(n)]
		p := &Pin{number: n, port: pt, clock: b.Clock, level: halcore.High}
		pt.pins = append(pt.pins, p)
		b.pins[n] = p
	}
	b.uart0 = &UART{id: "uart0", raiser: b.IRQ, rxVec: VectorUSARTRX, udreVec: VectorUSARTUDRE}
	return b
}

func (b *Board) CPUHz() uint32 { return b.Clock.Hz() }

// Delay is the busy-wait primitive.
func (b *Board) Delay() halcore.CycleDelay { return b.Clock }

// Interrupts exposes the controller as the HAL sees it.
func (b *Board) Interrupts() halcore.InterruptController { return b.IRQ }

func (b *Board) TimerVector() halcore.Vector { return VectorTimer0Ovf }

// Pin returns the concrete simulated pin for tests and tools.
func (b *Board) Pin(n int) (*Pin, bool) {
	if n < 0 || n >= NumPins {
		return nil, false
	}
	return b.pins[n], true
}

func (b *Board) ByNumber(n int) (halcore.Pin, bool) {
	p, ok := b.Pin(n)
	if !ok {
		return nil, false
	}
	return p, true
}

func (b *Board) IRQByNumber(n int) (halcore.IRQPin, bool) {
	p, ok := b.Pin(n)
	if !ok {
		return nil, false
	}
	return p, true
}

// PortVector returns the pin-change vector of a port.
func (b *Board) PortVector(port int) (halcore.Vector, bool) {
	if port < 0 || port >= len(b.ports) {
		return 0, false
	}
	return b.ports[port].vector, true
}

// UART0 is the on-chip USART model.
func (b *Board) UART0() *UART { return b.uart0 }

// AttachUART adds an off-chip register block (bridge or host tty) under id
// and polls it from Poll.
func (b *Board) AttachUART(id string, u halcore.ExternalUART) (halcore.UARTVectors, error) {
	if _, dup := b.ext[id]; dup || id == b.uart0.id {
		return halcore.UARTVectors{}, &errcode.E{C: errcode.Busy, Op: "sim.AttachUART", Msg: id}
	}
	var vec halcore.UARTVectors
	switch {
	case len(b.freeV) > 0:
		vec = b.freeV[len(b.freeV)-1]
		b.freeV = b.freeV[:len(b.freeV)-1]
	case b.nextV+1 <= lastExtVector:
		vec = halcore.UARTVectors{RxComplete: b.nextV, DataRegisterEmpty: b.nextV + 1}
		b.nextV += 2
	default:
		return halcore.UARTVectors{}, &errcode.E{C: errcode.UnknownVector, Op: "sim.AttachUART", Msg: "out of vectors"}
	}
	u.Bind(b.IRQ, vec)
	b.ext[id] = extUART{regs: u, vec: vec}
	b.order = append(b.order, u)
	return vec, nil
}

// DetachUART forgets an attached UART. Its vectors are reused by the next
// attach.
func (b *Board) DetachUART(id string) {
	e, ok := b.ext[id]
	if !ok {
		return
	}
	delete(b.ext, id)
	for i, u := range b.order {
		if u == e.regs {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.freeV = append(b.freeV, e.vec)
}

func (b *Board) ByID(id string) (halcore.UARTRegisters, halcore.UARTVectors, bool) {
	if id == b.uart0.id {
		return b.uart0, halcore.UARTVectors{RxComplete: b.uart0.rxVec, DataRegisterEmpty: b.uart0.udreVec}, true
	}
	e, ok := b.ext[id]
	if !ok {
		return nil, halcore.UARTVectors{}, false
	}
	return e.regs, e.vec, true
}

// AddI2C plugs a bus (typically a tinygo tester bus) in under id.
func (b *Board) AddI2C(id string, bus drivers.I2C) { b.i2c[id] = bus }

func (b *Board) I2CByID(id string) (drivers.I2C, bool) {
	bus, ok := b.i2c[id]
	return bus, ok
}

// EnableTicker raises the timer-0 overflow vector ticsPerSecond times per
// simulated second.
func (b *Board) EnableTicker(ticsPerSecond uint32) {
	if ticsPerSecond == 0 {
		return
	}
	b.Clock.SetTicker(uint64(b.Clock.Hz()/ticsPerSecond), func() { b.IRQ.Raise(VectorTimer0Ovf) })
}

// Poll advances virtual time to match the wall clock, lets the on-chip
// transmitter finish the bytes that time allows and services attached
// UARTs. Call it from the core goroutine only.
func (b *Board) Poll(now time.Time) {
	if b.last.IsZero() {
		b.last = now
	}
	elapsed := now.Sub(b.last)
	b.last = now
	if elapsed > maxPollStep {
		elapsed = maxPollStep
	}
	if elapsed > 0 {
		cycles := uint64(elapsed) * uint64(b.Clock.Hz()) / uint64(time.Second)
		b.Clock.Advance(cycles)
		b.stepUART0(cycles)
	}
	for _, u := range b.order {
		u.Poll()
	}
}

func (b *Board) stepUART0(cycles uint64) {
	f := b.uart0.format
	if !b.uart0.configured || f.Baud == 0 {
		return
	}
	perByte := 10 * uint64(b.Clock.Hz()) / uint64(f.Baud)
	b.txAccum += cycles
	for b.txAccum >= perByte && b.uart0.TxBusy() {
		b.txAccum -= perByte
		b.uart0.Step()
	}
	if !b.uart0.TxBusy() {
		b.txAccum = 0
	}
}
