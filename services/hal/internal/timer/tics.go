// Package timer counts tics from a periodic interrupt and builds polled
// software timers on top of the count.
package timer

import (
	"sync/atomic"

	"mcuhal-go/errcode"
	"mcuhal-go/x/mathx"
)

// TicCounter is a free-running counter incremented from a timer ISR. Reads
// are atomic so any goroutine may sample it.
type TicCounter struct {
	count         atomic.Uint32
	ticsPerSecond uint32
}

func NewTicCounter(ticsPerSecond uint32) (*TicCounter, error) {
	if ticsPerSecond == 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "timer.NewTicCounter", Msg: "zero tic rate"}
	}
	return &TicCounter{ticsPerSecond: ticsPerSecond}, nil
}

// Tick is the timer overflow ISR.
func (c *TicCounter) Tick() { c.count.Add(1) }

// Now returns the current count. It wraps after 2^32 tics.
func (c *TicCounter) Now() uint32 { return c.count.Load() }

func (c *TicCounter) TicsPerSecond() uint32 { return c.ticsPerSecond }

// MillisToTics converts ms to tics, rounding up so a wait is never short.
func (c *TicCounter) MillisToTics(ms uint32) uint32 {
	return uint32(mathx.CeilDiv(uint64(ms)*uint64(c.ticsPerSecond), 1000))
}

// TicsToMillis converts a tic span to whole milliseconds.
func (c *TicCounter) TicsToMillis(tics uint32) uint32 {
	return uint32(uint64(tics) * 1000 / uint64(c.ticsPerSecond))
}
