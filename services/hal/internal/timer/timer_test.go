package timer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcuhal-go/errcode"
)

type fakeSource struct{ now uint32 }

func (f *fakeSource) Now() uint32 { return f.now }

func TestTicCounter(t *testing.T) {
	_, err := NewTicCounter(0)
	assert.ErrorIs(t, err, errcode.InvalidParams)

	c, err := NewTicCounter(1000)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		c.Tick()
	}
	assert.Equal(t, uint32(5), c.Now())
	assert.Equal(t, uint32(250), c.MillisToTics(250))
	assert.Equal(t, uint32(250), c.TicsToMillis(250))

	slow, _ := NewTicCounter(61)
	assert.Equal(t, uint32(1), slow.MillisToTics(1)) // rounds up
	assert.Equal(t, uint32(61), slow.MillisToTics(1000))
	assert.Equal(t, uint32(1000), slow.TicsToMillis(61))
}

func TestSoftwareTimer_OneShot(t *testing.T) {
	src := &fakeSource{now: 100}
	tm, err := NewSoftwareTimer(src, 10)
	require.NoError(t, err)

	assert.False(t, tm.HasOneShotPassed(), "disabled timer never fires")
	tm.Enable()
	src.now = 109
	assert.False(t, tm.HasOneShotPassed())
	src.now = 110
	assert.True(t, tm.HasOneShotPassed())
	src.now = 500
	assert.True(t, tm.HasOneShotPassed())

	tm.Reset()
	assert.False(t, tm.HasOneShotPassed())
}

func TestSoftwareTimer_Periodic(t *testing.T) {
	src := &fakeSource{}
	tm, _ := NewSoftwareTimer(src, 10)
	tm.Enable()

	src.now = 9
	assert.False(t, tm.HasPeriodPassed())
	src.now = 10
	assert.True(t, tm.HasPeriodPassed())
	assert.False(t, tm.HasPeriodPassed())

	// A late check reports every missed period and keeps phase.
	src.now = 45
	assert.Equal(t, uint32(3), tm.PeriodsPassed())
	src.now = 49
	assert.False(t, tm.HasPeriodPassed())
	src.now = 50
	assert.True(t, tm.HasPeriodPassed())
}

func TestSoftwareTimer_OneShotDoesNotDisturbPeriod(t *testing.T) {
	src := &fakeSource{}
	tm, _ := NewSoftwareTimer(src, 10)
	tm.Enable()
	src.now = 15
	assert.True(t, tm.HasOneShotPassed())
	assert.True(t, tm.HasOneShotPassed())
	assert.Equal(t, uint32(1), tm.PeriodsPassed())
}

func TestSoftwareTimer_Wraps(t *testing.T) {
	src := &fakeSource{now: math.MaxUint32 - 4}
	tm, _ := NewSoftwareTimer(src, 10)
	tm.Enable()

	src.now = 3 // 8 tics later, across the wrap
	assert.False(t, tm.HasPeriodPassed())
	assert.False(t, tm.HasOneShotPassed())
	src.now = 5
	assert.True(t, tm.HasPeriodPassed())
	assert.True(t, tm.HasOneShotPassed())
}

func TestSoftwareTimer_SetPeriod(t *testing.T) {
	src := &fakeSource{}
	tm, _ := NewSoftwareTimer(src, 10)

	require.NoError(t, tm.SetPeriod(20))
	tm.Enable()
	assert.ErrorIs(t, tm.SetPeriod(5), errcode.Busy)
	assert.Equal(t, uint32(20), tm.Period())

	tm.Disable()
	assert.False(t, tm.Enabled())
	assert.ErrorIs(t, tm.SetPeriod(0), errcode.InvalidParams)
	require.NoError(t, tm.SetPeriod(5))

	_, err := NewSoftwareTimer(src, 0)
	assert.ErrorIs(t, err, errcode.InvalidParams)
}
