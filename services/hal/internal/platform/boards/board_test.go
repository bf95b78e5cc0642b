package boards

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtmega328_PortOf(t *testing.T) {
	cases := map[int]int{0: 2, 7: 2, 8: 0, 13: 0, 14: 1, 19: 1}
	for pin, want := range cases {
		p, ok := Atmega328.PortOf(pin)
		assert.True(t, ok, "pin %d", pin)
		assert.Equal(t, want, p.ID, "pin %d", pin)
	}
	_, ok := Atmega328.PortOf(20)
	assert.False(t, ok)
}
