package irq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_RestoresPriorState(t *testing.T) {
	c := New()
	c.Enable()

	g := Pause(c)
	assert.False(t, c.Enabled())
	g.Resume()
	assert.True(t, c.Enabled())

	c.Disable()
	g = Pause(c)
	g.Resume()
	assert.False(t, c.Enabled(), "guard taken while masked must not unmask")
}

func TestGuard_Nests(t *testing.T) {
	c := New()
	c.Enable()

	outer := Pause(c)
	inner := Pause(c)
	inner.Resume()
	assert.False(t, c.Enabled(), "inner resume must leave the outer section masked")
	outer.Resume()
	assert.True(t, c.Enabled())
}

func TestGuard_DeferredPendingDelivery(t *testing.T) {
	c := New()
	c.Enable()
	var hits int
	_ = c.Install(2, func() { hits++ })

	func() {
		defer Pause(c).Resume()
		c.Raise(2)
		assert.Equal(t, 0, hits)
	}()
	assert.Equal(t, 1, hits)
}
