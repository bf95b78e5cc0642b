//go:build tinygo && avr

// Package avr binds the HAL to an Atmega328 under TinyGo: GPIO and
// pin-change interrupts through machine, USART0 and timer 2 straight from
// device/avr registers, and cycle-counted busy waits in inline assembly.
//
// Build with -serial=none so the runtime does not claim USART0.
package avr

import (
	"device/avr"
	"machine"
	"runtime/interrupt"
	"time"

	"tinygo.org/x/drivers"

	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/platform/boards"
	"mcuhal-go/types"
	"mcuhal-go/x/mathx"
)

// Vector numbers as in the datasheet (reset excluded). Pin-change vectors
// come from the board description.
const (
	vecTimer2Ovf halcore.Vector = 9
	vecUSARTRX   halcore.Vector = 18
	vecUSARTUDRE halcore.Vector = 19

	// Software-only vectors for off-chip UARTs.
	firstExtVector halcore.Vector = 26
	numVectors                    = 32
)

var board = boards.Atmega328

// pinTable maps board numbering (D0..D13, A0..A5) to machine pins.
var pinTable = [...]machine.Pin{
	machine.PD0, machine.PD1, machine.PD2, machine.PD3,
	machine.PD4, machine.PD5, machine.PD6, machine.PD7,
	machine.PB0, machine.PB1, machine.PB2, machine.PB3, machine.PB4, machine.PB5,
	machine.PC0, machine.PC1, machine.PC2, machine.PC3, machine.PC4, machine.PC5,
}

// handlers is the software vector table the hardware ISRs dispatch into.
var handlers [numVectors]func()

func dispatch(v halcore.Vector) {
	if h := handlers[v]; h != nil {
		h()
	}
}

// ---- interrupt control ----

type intr struct{}

func (intr) Enabled() bool { return avr.SREG.HasBits(1 << 7) }
func (intr) Enable()       { avr.Asm("sei") }
func (intr) Disable()      { avr.Asm("cli") }

func (intr) Install(v halcore.Vector, h func()) error {
	if int(v) >= numVectors {
		return &errcode.E{C: errcode.UnknownVector, Op: "avr.Install"}
	}
	if handlers[v] != nil {
		return &errcode.E{C: errcode.Busy, Op: "avr.Install", Msg: "vector in use"}
	}
	handlers[v] = h
	return nil
}

func (intr) Uninstall(v halcore.Vector) {
	if int(v) < numVectors {
		handlers[v] = nil
	}
}

// Raise runs a software vector's handler masked, as the hardware would.
func (intr) Raise(v halcore.Vector) {
	if int(v) >= numVectors {
		return
	}
	st := interrupt.Disable()
	dispatch(v)
	interrupt.Restore(st)
}

// ---- pins ----

type pin struct {
	p    machine.Pin
	n    int
	port boards.Port
}

func (p *pin) ConfigureInput(pull halcore.Pull) error {
	mode := machine.PinInput
	if pull == halcore.PullUp {
		mode = machine.PinInputPullup
	}
	p.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (p *pin) ConfigureOutput(initial halcore.Level) error {
	p.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.p.Set(initial == halcore.High)
	return nil
}

func (p *pin) Set(l halcore.Level) { p.p.Set(l == halcore.High) }
func (p *pin) Get() halcore.Level  { return halcore.LevelOf(p.p.Get()) }
func (p *pin) Toggle()             { p.p.Set(!p.p.Get()) }
func (p *pin) Number() int         { return p.n }
func (p *pin) Port() int           { return p.port.ID }

func (p *pin) EnableChangeInterrupt() error {
	v := halcore.Vector(p.port.Vector)
	return p.p.SetInterrupt(machine.PinToggle, func(machine.Pin) { dispatch(v) })
}

func (p *pin) DisableChangeInterrupt() error {
	return p.p.SetInterrupt(0, nil)
}

// ---- USART0 ----

// usart drives USART0 with the receive-complete and data-register-empty
// interrupts. UDRE is level triggered on the part, so it is unmasked by
// WriteData and masked again on entry.
type usart struct{}

func (usart) Configure(f halcore.UARTFormat) error {
	if f.InvertPolarity {
		return &errcode.E{C: errcode.Unsupported, Op: "avr.usart", Msg: "inverted polarity"}
	}
	if f.Baud == 0 || f.CPUHz == 0 {
		return &errcode.E{C: errcode.InvalidBaud, Op: "avr.usart"}
	}
	ubrr := mathx.RoundDiv(f.CPUHz, 8*f.Baud) - 1 // double speed
	avr.UBRR0H.Set(uint8(ubrr >> 8))
	avr.UBRR0L.Set(uint8(ubrr))
	avr.UCSR0A.Set(avr.UCSR0A_U2X0)

	format := uint8(avr.UCSR0C_UCSZ01 | avr.UCSR0C_UCSZ00)
	switch f.Parity {
	case types.ParityEven:
		format |= avr.UCSR0C_UPM01
	case types.ParityOdd:
		format |= avr.UCSR0C_UPM01 | avr.UCSR0C_UPM00
	}
	avr.UCSR0C.Set(format)
	avr.UCSR0B.Set(avr.UCSR0B_RXEN0 | avr.UCSR0B_TXEN0 | avr.UCSR0B_RXCIE0)
	return nil
}

func (usart) DataRegisterEmpty() bool { return avr.UCSR0A.HasBits(avr.UCSR0A_UDRE0) }

func (usart) WriteData(b byte) {
	avr.UDR0.Set(b)
	avr.UCSR0B.SetBits(avr.UCSR0B_UDRIE0)
}

func (usart) ReadData() byte { return avr.UDR0.Get() }

func init() {
	interrupt.New(avr.IRQ_USART_RX, func(interrupt.Interrupt) { dispatch(vecUSARTRX) })
	interrupt.New(avr.IRQ_USART_UDRE, func(interrupt.Interrupt) {
		avr.UCSR0B.ClearBits(avr.UCSR0B_UDRIE0)
		dispatch(vecUSARTUDRE)
	})
	interrupt.New(avr.IRQ_TIMER2_OVF, func(interrupt.Interrupt) { dispatch(vecTimer2Ovf) })
}

// ---- busy wait ----

type quadDelay struct{}

// DelayQuadCycles busy-waits 4*n cycles, give or take the call. The count
// is only known at run time, so the wait is a counted loop of dec, nop and
// a taken brne (4 cycles a pass), run in chunks an 8-bit register holds.
func (quadDelay) DelayQuadCycles(n uint16) {
	for n > 0 {
		c := uint8(255)
		if n < 255 {
			c = uint8(n)
		}
		avr.AsmFull("mov {}, {c}\n1:\n\tdec {}\n\tnop\n\tbrne 1b", map[string]interface{}{"c": c})
		n -= uint16(c)
	}
}

// ---- platform ----

type ext struct {
	regs halcore.ExternalUART
	vec  halcore.UARTVectors
}

// Platform is the Atmega328 board.
type Platform struct {
	ic    intr
	delay quadDelay
	pins  [len(pinTable)]*pin
	ext   map[string]ext
	order []halcore.ExternalUART
	nextV halcore.Vector
	i2c   *machine.I2C
}

var (
	_ halcore.Platform      = (*Platform)(nil)
	_ halcore.UARTAttacher  = (*Platform)(nil)
	_ halcore.I2CBusFactory = (*Platform)(nil)
	_ drivers.I2C           = (*machine.I2C)(nil)
)

func New() *Platform {
	p := &Platform{
		ext:   map[string]ext{},
		nextV: firstExtVector,
	}
	for n, mp := range pinTable {
		port, _ := board.PortOf(n)
		p.pins[n] = &pin{p: mp, n: n, port: port}
	}
	return p
}

func (p *Platform) CPUHz() uint32                           { return machine.CPUFrequency() }
func (p *Platform) Interrupts() halcore.InterruptController { return p.ic }
func (p *Platform) Delay() halcore.CycleDelay               { return p.delay }
func (p *Platform) TimerVector() halcore.Vector             { return vecTimer2Ovf }

func (p *Platform) ByNumber(n int) (halcore.Pin, bool) {
	if n < 0 || n >= len(p.pins) {
		return nil, false
	}
	return p.pins[n], true
}

func (p *Platform) IRQByNumber(n int) (halcore.IRQPin, bool) {
	if n < 0 || n >= len(p.pins) {
		return nil, false
	}
	return p.pins[n], true
}

func (p *Platform) PortVector(port int) (halcore.Vector, bool) {
	for _, pt := range board.Ports {
		if pt.ID == port {
			return halcore.Vector(pt.Vector), true
		}
	}
	return 0, false
}

func (p *Platform) ByID(id string) (halcore.UARTRegisters, halcore.UARTVectors, bool) {
	if id == "uart0" {
		return usart{}, halcore.UARTVectors{RxComplete: vecUSARTRX, DataRegisterEmpty: vecUSARTUDRE}, true
	}
	e, ok := p.ext[id]
	return e.regs, e.vec, ok
}

// EnableTicker runs timer 2 in normal mode with the prescaler that brings
// the overflow rate closest to ticsPerSecond.
func (p *Platform) EnableTicker(ticsPerSecond uint32) {
	if ticsPerSecond == 0 {
		return
	}
	presc := [...]struct {
		div  uint32
		bits uint8
	}{{1, 1}, {8, 2}, {32, 3}, {64, 4}, {128, 5}, {256, 6}, {1024, 7}}
	sel := presc[len(presc)-1]
	for _, ps := range presc {
		if machine.CPUFrequency()/ps.div/256 <= ticsPerSecond {
			sel = ps
			break
		}
	}
	avr.TCCR2A.Set(0)
	avr.TCCR2B.Set(sel.bits)
	avr.TIMSK2.Set(avr.TIMSK2_TOIE2)
}

// AttachUART registers an off-chip UART on a pair of software vectors.
func (p *Platform) AttachUART(id string, u halcore.ExternalUART) (halcore.UARTVectors, error) {
	if _, dup := p.ext[id]; dup || id == "uart0" {
		return halcore.UARTVectors{}, &errcode.E{C: errcode.Busy, Op: "avr.AttachUART", Msg: id}
	}
	if int(p.nextV)+1 >= numVectors {
		return halcore.UARTVectors{}, &errcode.E{C: errcode.UnknownVector, Op: "avr.AttachUART", Msg: "out of vectors"}
	}
	vec := halcore.UARTVectors{RxComplete: p.nextV, DataRegisterEmpty: p.nextV + 1}
	p.nextV += 2
	u.Bind(p.ic, vec)
	p.ext[id] = ext{regs: u, vec: vec}
	p.order = append(p.order, u)
	return vec, nil
}

// DetachUART stops polling id. Its vectors are not reused.
func (p *Platform) DetachUART(id string) {
	e, ok := p.ext[id]
	if !ok {
		return
	}
	delete(p.ext, id)
	for i, u := range p.order {
		if u == e.regs {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *Platform) I2CByID(id string) (drivers.I2C, bool) {
	if id != "i2c0" {
		return nil, false
	}
	if p.i2c == nil {
		machine.I2C0.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz})
		p.i2c = machine.I2C0
	}
	return p.i2c, true
}

// Poll services attached off-chip UARTs. On-chip hardware needs nothing.
func (p *Platform) Poll(time.Time) {
	for _, u := range p.order {
		u.Poll()
	}
}
