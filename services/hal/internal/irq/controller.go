// Package irq models the interrupt controller of a single-core MCU: a global
// enable bit, a vector table with one handler per vector and pending flags
// that are delivered when interrupts are (re-)enabled.
package irq

import (
	"math/bits"

	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
)

// NumVectors bounds the vector table.
const NumVectors = 32

// Controller is the host implementation of the interrupt facility.
//
// It is not safe for concurrent use. The goroutine that owns it is the
// "core": application code and every Raise run on it. Other goroutines hand
// events to that goroutine (see platform/sim) instead of raising directly.
type Controller struct {
	enabled  bool
	pending  uint32
	handlers [NumVectors]func()
	served   [NumVectors]uint32
	lost     uint32 // raised with no handler installed

	onEntry func(v halcore.Vector)
}

var (
	_ halcore.InterruptControl = (*Controller)(nil)
	_ halcore.VectorTable      = (*Controller)(nil)
	_ halcore.Raiser           = (*Controller)(nil)
)

// New returns a controller in the reset state: interrupts disabled, no
// handlers installed.
func New() *Controller { return &Controller{} }

// SetEntryHook registers a function run on every ISR entry, before the
// handler. Simulations use it to charge interrupt latency.
func (c *Controller) SetEntryHook(fn func(v halcore.Vector)) { c.onEntry = fn }

func (c *Controller) Enabled() bool { return c.enabled }

func (c *Controller) Disable() { c.enabled = false }

// Enable sets the global enable bit and services anything left pending.
func (c *Controller) Enable() {
	c.enabled = true
	c.deliver()
}

func (c *Controller) Install(v halcore.Vector, handler func()) error {
	if int(v) >= NumVectors {
		return &errcode.E{C: errcode.UnknownVector, Op: "irq.Install"}
	}
	if handler == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "irq.Install", Msg: "nil handler"}
	}
	if c.handlers[v] != nil {
		return &errcode.E{C: errcode.Busy, Op: "irq.Install", Msg: "vector already has a handler"}
	}
	c.handlers[v] = handler
	return nil
}

func (c *Controller) Uninstall(v halcore.Vector) {
	if int(v) < NumVectors {
		c.handlers[v] = nil
		c.pending &^= 1 << v
	}
}

// Raise sets v's pending flag. With interrupts enabled the handler runs
// before Raise returns; otherwise it runs on the next Enable. Raising an
// already pending vector coalesces, as a hardware flag would.
func (c *Controller) Raise(v halcore.Vector) {
	if int(v) >= NumVectors {
		return
	}
	c.pending |= 1 << v
	c.deliver()
}

// Pending reports whether v's flag is set.
func (c *Controller) Pending(v halcore.Vector) bool {
	return int(v) < NumVectors && c.pending&(1<<v) != 0
}

// Served returns how many times v's handler has run.
func (c *Controller) Served(v halcore.Vector) uint32 {
	if int(v) >= NumVectors {
		return 0
	}
	return c.served[v]
}

// Lost returns the number of raises that found no handler.
func (c *Controller) Lost() uint32 { return c.lost }

// deliver runs pending handlers, lowest vector number first, each with the
// global enable bit cleared as the hardware does on ISR entry.
func (c *Controller) deliver() {
	for c.enabled && c.pending != 0 {
		v := halcore.Vector(bits.TrailingZeros32(c.pending))
		c.pending &^= 1 << v
		h := c.handlers[v]
		if h == nil {
			c.lost++
			continue
		}
		c.enabled = false
		if c.onEntry != nil {
			c.onEntry(v)
		}
		h()
		c.served[v]++
		c.enabled = true
	}
}
