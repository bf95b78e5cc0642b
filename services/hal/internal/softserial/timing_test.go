package softserial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcuhal-go/errcode"
)

func TestCalibrate_9600At16MHz(t *testing.T) {
	tm, err := Calibrate(9600, 16_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint32(1666), tm.CyclesPerBit)
	assert.Equal(t, uint16((1666-86)/4), tm.TxHold)
	assert.Equal(t, uint16((1666-106)/4), tm.RxInterBit)
	assert.Equal(t, uint16((1666*3/2-240)/4), tm.RxCentering)
}

func TestCalibrate_TooFastIsRejected(t *testing.T) {
	// 138 cycles per bit leaves no room for the 240-cycle start latency.
	_, err := Calibrate(115200, 16_000_000)
	assert.ErrorIs(t, err, errcode.InvalidBaud)
}

func TestCalibrate_TooSlowIsRejected(t *testing.T) {
	_, err := Calibrate(50, 16_000_000)
	assert.ErrorIs(t, err, errcode.InvalidBaud)
}

func TestCalibrate_Zero(t *testing.T) {
	_, err := Calibrate(0, 16_000_000)
	assert.ErrorIs(t, err, errcode.InvalidBaud)
	_, err = Calibrate(9600, 0)
	assert.ErrorIs(t, err, errcode.InvalidBaud)
}
