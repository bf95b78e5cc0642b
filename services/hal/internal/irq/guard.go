package irq

import "mcuhal-go/services/hal/internal/halcore"

// Guard is a masked-interrupt section. It remembers whether interrupts were
// enabled when it was taken and only re-enables them in that case, so
// guards nest and a guard taken in ISR context leaves the mask alone.
//
//	defer irq.Pause(ic).Resume()
type Guard struct {
	ic      halcore.InterruptControl
	restore bool
}

// Pause disables interrupts and returns the guard that undoes it.
func Pause(ic halcore.InterruptControl) Guard {
	if ic.Enabled() {
		ic.Disable()
		return Guard{ic: ic, restore: true}
	}
	return Guard{ic: ic}
}

// Resume re-enables interrupts if this guard disabled them.
func (g Guard) Resume() {
	if g.restore {
		g.ic.Enable()
	}
}
