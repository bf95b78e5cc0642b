package timer

import "mcuhal-go/errcode"

// Source yields the current tic count.
type Source interface {
	Now() uint32
}

// SoftwareTimer measures periods against a tic Source. It is polled; nothing
// fires on its own. All arithmetic is modulo 2^32 so a counter wrap between
// checks is harmless as long as fewer than 2^32 tics elapse.
type SoftwareTimer struct {
	src     Source
	period  uint32
	enabled bool

	start      uint32 // tic at Enable/Reset
	lastPeriod uint32 // tic of the most recent period boundary reported
	oneShot    bool
}

func NewSoftwareTimer(src Source, periodTics uint32) (*SoftwareTimer, error) {
	if src == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "timer.NewSoftwareTimer", Msg: "nil tic source"}
	}
	if periodTics == 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "timer.NewSoftwareTimer", Msg: "zero period"}
	}
	return &SoftwareTimer{src: src, period: periodTics}, nil
}

// Enable starts (or restarts) the timer from the current tic.
func (t *SoftwareTimer) Enable() {
	t.enabled = true
	t.oneShot = false
	t.start = t.src.Now()
	t.lastPeriod = t.start
}

func (t *SoftwareTimer) Disable() { t.enabled = false }

// Reset is Enable.
func (t *SoftwareTimer) Reset() { t.Enable() }

func (t *SoftwareTimer) Enabled() bool  { return t.enabled }
func (t *SoftwareTimer) Period() uint32 { return t.period }

// SetPeriod changes the period. It is refused while the timer runs.
func (t *SoftwareTimer) SetPeriod(periodTics uint32) error {
	if t.enabled {
		return &errcode.E{C: errcode.Busy, Op: "timer.SetPeriod", Msg: "timer is enabled"}
	}
	if periodTics == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "timer.SetPeriod", Msg: "zero period"}
	}
	t.period = periodTics
	return nil
}

// HasOneShotPassed reports whether one period has elapsed since Enable.
// Once true it stays true until the next Enable.
func (t *SoftwareTimer) HasOneShotPassed() bool {
	if !t.enabled {
		return false
	}
	if !t.oneShot {
		t.oneShot = t.src.Now()-t.start >= t.period
	}
	return t.oneShot
}

// HasPeriodPassed reports whether at least one period boundary has been
// crossed since the last true result. See PeriodsPassed.
func (t *SoftwareTimer) HasPeriodPassed() bool {
	return t.PeriodsPassed() > 0
}

// PeriodsPassed returns how many whole periods elapsed since the last
// reported boundary and moves the boundary forward by that many periods,
// so a late check does not lose phase.
func (t *SoftwareTimer) PeriodsPassed() uint32 {
	if !t.enabled {
		return 0
	}
	n := (t.src.Now() - t.lastPeriod) / t.period
	t.lastPeriod += n * t.period
	return n
}
