package mathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 16, Clamp(3, 16, 256))
	assert.Equal(t, 256, Clamp(999, 256, 16))
	assert.Equal(t, 40, Clamp(40, 16, 256))
}

func TestIntDiv(t *testing.T) {
	assert.Equal(t, uint64(2), CeilDiv(uint64(1001), 1000))
	assert.Equal(t, uint64(1), CeilDiv(uint64(1000), 1000))
	assert.Equal(t, uint32(0), CeilDiv(uint32(5), 0))

	// UBRR at 16 MHz, 57600 baud, double speed: round(16e6/460800) = 35.
	assert.Equal(t, uint32(35), RoundDiv(uint32(16_000_000), 8*57600))
	assert.Equal(t, uint32(0), RoundDiv(uint32(5), 0))
}
