// Package sim is a cycle-counting host model of the MCU collaborators the
// transports consume: a CPU clock with busy-wait delays, GPIO pins and their
// pin-change ports, and a hardware UART register block.
//
// Everything here runs on the goroutine that owns the irq.Controller.
package sim

// Clock counts CPU cycles. Delays and pin accesses advance it; nothing
// advances on its own.
type Clock struct {
	hz  uint32
	now uint64

	// Per-operation costs, in CPU cycles.
	PinReadCycles  uint64
	PinWriteCycles uint64
	ISREntryCycles uint64

	tickPeriod uint64
	nextTick   uint64
	onTick     func()
}

func NewClock(hz uint32) *Clock { return &Clock{hz: hz} }

func (c *Clock) Hz() uint32  { return c.hz }
func (c *Clock) Now() uint64 { return c.now }

// DelayQuadCycles implements halcore.CycleDelay.
func (c *Clock) DelayQuadCycles(n uint16) { c.Advance(4 * uint64(n)) }

// Advance moves time forward by n cycles, firing the periodic tick at each
// boundary crossed. Time is stepped from tick to tick so that cycles spent
// in the tick's own handler (ISR entry included) land after it, and push
// the end of the span out by as much.
func (c *Clock) Advance(n uint64) {
	target := c.now + n
	for c.onTick != nil && c.tickPeriod != 0 && c.nextTick <= target {
		if c.nextTick > c.now {
			c.now = c.nextTick
		}
		c.nextTick += c.tickPeriod
		before := c.now
		c.onTick()
		target += c.now - before
	}
	if target > c.now {
		c.now = target
	}
}

// AdvanceTo moves time forward to t; it never moves backwards.
func (c *Clock) AdvanceTo(t uint64) {
	if t > c.now {
		c.Advance(t - c.now)
	}
}

// SetTicker calls fn every period cycles, like a timer overflow flag.
func (c *Clock) SetTicker(period uint64, fn func()) {
	c.tickPeriod = period
	c.onTick = fn
	c.nextTick = c.now + period
}
