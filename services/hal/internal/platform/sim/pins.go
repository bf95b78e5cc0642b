package sim

import (
	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/platform/boards"
)

// Transition is one level change at a cycle timestamp.
type Transition struct {
	At    uint64
	Level halcore.Level
}

// NumPins covers digital 0..19 of an Atmega328 board.
const NumPins = 20

// PortOf maps a pin number to its pin-change port: 0 = PB (8..13),
// 1 = PC (14..19), 2 = PD (0..7).
func PortOf(n int) int {
	p, _ := boards.Atmega328.PortOf(n)
	return p.ID
}

// Pin is a simulated GPIO. As an output it records every level written;
// as an input its level follows a scheduled waveform (idle high).
type Pin struct {
	number int
	port   *Port
	clock  *Clock

	output bool
	level  halcore.Level
	trace  []Transition

	wave      []Transition // scheduled input levels, ascending At
	changeIRQ bool
}

var _ halcore.IRQPin = (*Pin)(nil)

func (p *Pin) ConfigureInput(_ halcore.Pull) error {
	p.output = false
	return nil
}

func (p *Pin) ConfigureOutput(initial halcore.Level) error {
	p.output = true
	p.level = initial
	return nil
}

// Set drives the pin and charges the write cost.
func (p *Pin) Set(level halcore.Level) {
	p.level = level
	p.trace = append(p.trace, Transition{At: p.clock.Now(), Level: level})
	p.clock.Advance(p.clock.PinWriteCycles)
}

// Get samples the pin at the current cycle and charges the read cost.
func (p *Pin) Get() halcore.Level {
	l := p.levelAt(p.clock.Now())
	p.clock.Advance(p.clock.PinReadCycles)
	return l
}

func (p *Pin) Toggle() {
	if p.level == halcore.High {
		p.Set(halcore.Low)
	} else {
		p.Set(halcore.High)
	}
}

func (p *Pin) Number() int { return p.number }
func (p *Pin) Port() int   { return p.port.id }

func (p *Pin) EnableChangeInterrupt() error {
	if p.output {
		return &errcode.E{C: errcode.InvalidParams, Op: "sim.Pin", Msg: "pin-change on an output"}
	}
	p.changeIRQ = true
	return nil
}

func (p *Pin) DisableChangeInterrupt() error {
	p.changeIRQ = false
	return nil
}

// Trace returns the levels written so far.
func (p *Pin) Trace() []Transition { return append([]Transition(nil), p.trace...) }

// ResetTrace forgets recorded writes.
func (p *Pin) ResetTrace() { p.trace = p.trace[:0] }

// Schedule makes the input read level from cycle at onwards. Transitions
// must be scheduled in time order.
func (p *Pin) Schedule(at uint64, level halcore.Level) {
	// Drop history that can no longer be observed, keeping the newest
	// past level.
	now := p.clock.Now()
	i := 0
	for i+1 < len(p.wave) && p.wave[i+1].At <= now {
		i++
	}
	p.wave = append(p.wave[i:], Transition{At: at, Level: level})
}

func (p *Pin) levelAt(t uint64) halcore.Level {
	if p.output {
		return p.level
	}
	l := halcore.High
	for _, tr := range p.wave {
		if tr.At > t {
			break
		}
		l = tr.Level
	}
	return l
}

// Port is one pin-change interrupt group sharing a vector.
type Port struct {
	id     int
	vector halcore.Vector
	raiser halcore.Raiser
	pins   []*Pin
}

func (pt *Port) ID() int                { return pt.id }
func (pt *Port) Vector() halcore.Vector { return pt.vector }

// Pins returns the pins in this group.
func (pt *Port) Pins() []*Pin { return append([]*Pin(nil), pt.pins...) }

// pinChanged raises the port vector when p is unmasked in the change mask.
func (pt *Port) pinChanged(p *Pin) {
	if p.changeIRQ {
		pt.raiser.Raise(pt.vector)
	}
}
