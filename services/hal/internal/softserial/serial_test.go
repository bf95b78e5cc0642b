package softserial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/platform/sim"
)

const testBaud = 9600

type rig struct {
	board *sim.Board
	reg   *Registry
}

func newRig(t *testing.T) *rig {
	t.Helper()
	b := sim.NewBoard(sim.DefaultCPUHz)
	r := &rig{board: b, reg: NewRegistry()}
	for port := 0; port < 3; port++ {
		v, ok := b.PortVector(port)
		require.True(t, ok)
		require.NoError(t, r.reg.Install(b.IRQ, port, v))
	}
	b.IRQ.Enable()
	return r
}

func (r *rig) line(t *testing.T, rxPin, txPin int, rxSize int) (*Serial, *sim.Pin, *sim.Pin) {
	t.Helper()
	rx, _ := r.board.Pin(rxPin)
	tx, _ := r.board.Pin(txPin)
	s, err := New(Config{Baud: testBaud, CPUHz: sim.DefaultCPUHz, RX: rx, TX: tx},
		r.reg, r.board.IRQ, r.board.Delay(), make([]byte, rxSize))
	require.NoError(t, err)
	require.NoError(t, s.Initialize())
	return s, rx, tx
}

func TestSerial_TransmitWaveform(t *testing.T) {
	r := newRig(t)
	s, _, tx := r.line(t, 2, 4, 8)
	cpb := uint64(s.Timing().CyclesPerBit)

	n, err := s.Write([]byte{0xA5})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tr := tx.Trace()
	require.Len(t, tr, 10)
	// start bit, then LSB first: 1 0 1 0 0 1 0 1, then stop.
	want := []bool{false, true, false, true, false, false, true, false, true, true}
	for i, w := range want {
		assert.Equal(t, w, tr[i].Level == halcore.High, "bit %d", i)
	}
	for i := 1; i < len(tr); i++ {
		d := tr[i].At - tr[i-1].At
		assert.LessOrEqual(t, d, cpb)
		assert.Greater(t, d+4, cpb)
	}
	assert.Equal(t, []byte{0xA5}, sim.DecodeFrames(tr, cpb))
	assert.True(t, r.board.IRQ.Enabled())
}

func TestSerial_TransmitString(t *testing.T) {
	r := newRig(t)
	s, _, tx := r.line(t, 2, 4, 8)
	_, err := s.Write([]byte("hello\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\r\n"), sim.DecodeFrames(tx.Trace(), uint64(s.Timing().CyclesPerBit)))
}

func TestSerial_Receive(t *testing.T) {
	r := newRig(t)
	s, rx, _ := r.line(t, 2, 4, 8)
	cpb := uint64(s.Timing().CyclesPerBit)

	rx.SendFrames([]byte{0x55, 0x00, 0xFF, 0x81}, cpb)
	assert.True(t, s.IsDataAvailable())
	assert.Equal(t, 4, s.Buffered())

	buf := make([]byte, 8)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x00, 0xFF, 0x81}, buf[:n])
	assert.False(t, s.IsDataAvailable())

	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSerial_OverflowFlag(t *testing.T) {
	r := newRig(t)
	s, rx, _ := r.line(t, 2, 4, 2)
	cpb := uint64(s.Timing().CyclesPerBit)

	rx.SendFrames([]byte("abc"), cpb)
	assert.True(t, s.Overflowed())
	assert.True(t, s.Status().Overflowed)

	buf := make([]byte, 4)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(buf[:n]))
	assert.False(t, s.Overflowed())
}

func TestSerial_FlushDropsReceived(t *testing.T) {
	r := newRig(t)
	s, rx, _ := r.line(t, 2, 4, 1)
	cpb := uint64(s.Timing().CyclesPerBit)
	rx.SendFrames([]byte("xy"), cpb)
	require.True(t, s.Overflowed())

	s.Flush()
	assert.False(t, s.IsDataAvailable())
	assert.False(t, s.Overflowed())
}

func TestSerial_SharedPortScan(t *testing.T) {
	r := newRig(t)
	// Pins 2 and 3 share pin-change port 2.
	a, rxA, _ := r.line(t, 2, 4, 8)
	b, rxB, _ := r.line(t, 3, 5, 8)
	assert.Equal(t, 2, r.reg.Len(2))
	cpb := uint64(a.Timing().CyclesPerBit)

	rxB.SendFrame('B', cpb)
	rxA.SendFrame('A', cpb)

	buf := make([]byte, 4)
	n, _ := a.Read(buf)
	assert.Equal(t, "A", string(buf[:n]))
	n, _ = b.Read(buf)
	assert.Equal(t, "B", string(buf[:n]))
}

func TestSerial_MaskedStartBitIsDelayed(t *testing.T) {
	r := newRig(t)
	s, rx, _ := r.line(t, 2, 4, 8)
	cpb := uint64(s.Timing().CyclesPerBit)

	r.board.IRQ.Disable()
	rx.SendFrame('z', cpb)
	assert.False(t, s.IsDataAvailable())
	// By the time the vector is delivered the line is idle again.
	r.board.IRQ.Enable()
	assert.False(t, s.IsDataAvailable())
	assert.Equal(t, uint32(1), r.reg.Spurious(2))
}

func TestSerial_RegistryFullOnFifthLine(t *testing.T) {
	r := newRig(t)
	for i := 0; i < MaxPerPort; i++ {
		r.line(t, 8+i, 14+i, 4)
	}
	rx, _ := r.board.Pin(12)
	tx, _ := r.board.Pin(18)
	s, err := New(Config{Baud: testBaud, CPUHz: sim.DefaultCPUHz, RX: rx, TX: tx},
		r.reg, r.board.IRQ, r.board.Delay(), make([]byte, 4))
	require.NoError(t, err)
	assert.ErrorIs(t, s.Initialize(), errcode.RegistryFull)
}

func TestSerial_ConstructionErrors(t *testing.T) {
	r := newRig(t)
	rx, _ := r.board.Pin(2)
	tx, _ := r.board.Pin(4)

	_, err := New(Config{Baud: 115200, CPUHz: sim.DefaultCPUHz, RX: rx, TX: tx}, r.reg, r.board.IRQ, r.board.Delay(), make([]byte, 4))
	assert.ErrorIs(t, err, errcode.InvalidBaud)

	_, err = New(Config{Baud: testBaud, CPUHz: sim.DefaultCPUHz, RX: rx, TX: tx}, r.reg, r.board.IRQ, r.board.Delay(), nil)
	assert.ErrorIs(t, err, errcode.ZeroCapacity)

	_, err = New(Config{Baud: testBaud, CPUHz: sim.DefaultCPUHz, TX: tx}, r.reg, r.board.IRQ, r.board.Delay(), make([]byte, 4))
	assert.ErrorIs(t, err, errcode.InvalidParams)
}

func TestSerial_NotInitialized(t *testing.T) {
	r := newRig(t)
	rx, _ := r.board.Pin(2)
	tx, _ := r.board.Pin(4)
	s, err := New(Config{Baud: testBaud, CPUHz: sim.DefaultCPUHz, RX: rx, TX: tx}, r.reg, r.board.IRQ, r.board.Delay(), make([]byte, 4))
	require.NoError(t, err)

	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, errcode.HALNotReady)
	_, err = s.Read(make([]byte, 1))
	assert.ErrorIs(t, err, errcode.HALNotReady)

	require.NoError(t, s.Initialize())
	assert.ErrorIs(t, s.Initialize(), errcode.Busy)
	require.NoError(t, s.Close())
	assert.Equal(t, 0, r.reg.Len(2))
}
