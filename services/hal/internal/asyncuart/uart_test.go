package asyncuart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/platform/sim"
	"mcuhal-go/types"
)

func newUART(t *testing.T, txSize, rxSize int) (*UART, *sim.Board) {
	t.Helper()
	b := sim.NewBoard(sim.DefaultCPUHz)
	regs, vec, ok := b.ByID("uart0")
	require.True(t, ok)
	u, err := New(Config{Baud: 9600, CPUHz: sim.DefaultCPUHz}, regs, b.IRQ, make([]byte, txSize), make([]byte, rxSize))
	require.NoError(t, err)
	require.NoError(t, u.Install(b.IRQ, vec))
	b.IRQ.Enable()
	require.NoError(t, u.Initialize())
	return u, b
}

func TestUART_WriteDrainsThroughISR(t *testing.T) {
	u, b := newUART(t, 64, 16)
	assert.True(t, b.UART0().Configured())

	n, err := u.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, types.TxTransmitting, u.State())

	assert.Equal(t, 5, b.UART0().Drain(100))
	assert.Equal(t, "hello", string(b.UART0().TakeWire()))
	assert.Equal(t, types.TxIdle, u.State())
	assert.Equal(t, 0, b.UART0().DroppedWrites())
}

func TestUART_TruncationMarkerAndLatch(t *testing.T) {
	u, b := newUART(t, 32, 16)
	in := "0123456789ABCDEFGHIJ"

	n, err := u.Write([]byte(in))
	assert.ErrorIs(t, err, errcode.TxFull)
	assert.Equal(t, 16, n)
	assert.True(t, u.TxLatched())

	// Refused until the queue has drained.
	n, err = u.Write([]byte("x"))
	assert.ErrorIs(t, err, errcode.TxFull)
	assert.Equal(t, 0, n)

	b.UART0().Drain(100)
	assert.Equal(t, in[:16]+TruncationMarker, string(b.UART0().TakeWire()))
	assert.False(t, u.TxLatched())

	n, err = u.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	b.UART0().Drain(100)
	assert.Equal(t, "ok", string(b.UART0().TakeWire()))
}

func TestUART_LatchReleasedOnceQueueEmpty(t *testing.T) {
	u, b := newUART(t, 32, 16)
	_, err := u.Write([]byte(strings.Repeat("z", 40)))
	require.ErrorIs(t, err, errcode.TxFull)

	// 32 bytes queued: after 31 completions the last marker byte is in the
	// data register and the queue is empty.
	b.UART0().Drain(31)
	require.True(t, u.TxLatched())
	assert.Equal(t, 0, u.Status().TxQueued)

	n, err := u.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, u.TxLatched())

	b.UART0().Drain(100)
	wire := string(b.UART0().TakeWire())
	assert.Equal(t, strings.Repeat("z", 16)+TruncationMarker+"ok", wire)
}

func TestUART_QueueNeverExceedsCapacity(t *testing.T) {
	u, b := newUART(t, 24, 16)
	for i := 0; i < 10; i++ {
		u.Write([]byte("abcdefgh"))
		st := u.Status()
		assert.LessOrEqual(t, st.TxQueued, st.TxCap)
		b.UART0().Step()
	}
}

func TestUART_WriteFromMaskedContext(t *testing.T) {
	u, b := newUART(t, 64, 16)
	b.IRQ.Disable()

	_, err := u.Write([]byte("ab"))
	require.NoError(t, err)
	assert.False(t, b.IRQ.Enabled(), "guard must restore the caller's state")

	// Completion pends until the caller unmasks.
	b.UART0().Step()
	assert.Equal(t, "a", string(b.UART0().Wire()))
	assert.False(t, b.UART0().TxBusy())
	b.IRQ.Enable()
	assert.True(t, b.UART0().TxBusy())
	b.UART0().Drain(10)
	assert.Equal(t, "ab", string(b.UART0().TakeWire()))
}

func TestUART_ReceiveAndOverflow(t *testing.T) {
	u, b := newUART(t, 64, 4)
	assert.False(t, u.IsDataAvailable())

	for _, c := range []byte("12345") {
		b.UART0().Receive(c)
	}
	assert.True(t, u.IsDataAvailable())
	assert.Equal(t, 4, u.Buffered())
	assert.True(t, u.Overflowed())
	assert.Equal(t, 0, b.UART0().Overruns())

	buf := make([]byte, 8)
	n, err := u.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "1234", string(buf[:n]))
	assert.False(t, u.Overflowed())

	n, err = u.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUART_Flush(t *testing.T) {
	u, b := newUART(t, 32, 4)
	u.Write([]byte(strings.Repeat("q", 20)))
	for _, c := range []byte("rx") {
		b.UART0().Receive(c)
	}
	u.Flush()
	st := u.Status()
	assert.Equal(t, 0, st.TxQueued)
	assert.Equal(t, 0, st.RxQueued)
	assert.False(t, st.TxLatched)

	// The byte already in the data register still completes.
	b.UART0().Drain(10)
	assert.Equal(t, "q", string(b.UART0().TakeWire()))
	assert.Equal(t, types.TxIdle, u.State())
}

func TestUART_Lifecycle(t *testing.T) {
	b := sim.NewBoard(0)
	regs, vec, _ := b.ByID("uart0")

	_, err := New(Config{Baud: 9600, CPUHz: sim.DefaultCPUHz}, regs, b.IRQ, make([]byte, 16), make([]byte, 4))
	assert.ErrorIs(t, err, errcode.ZeroCapacity)
	_, err = New(Config{Baud: 9600, CPUHz: sim.DefaultCPUHz}, regs, b.IRQ, make([]byte, 32), nil)
	assert.ErrorIs(t, err, errcode.ZeroCapacity)
	_, err = New(Config{Baud: 4_000_000, CPUHz: sim.DefaultCPUHz}, regs, b.IRQ, make([]byte, 32), make([]byte, 4))
	assert.ErrorIs(t, err, errcode.InvalidBaud)
	_, err = New(Config{Baud: 9600, CPUHz: sim.DefaultCPUHz}, nil, b.IRQ, make([]byte, 32), make([]byte, 4))
	assert.ErrorIs(t, err, errcode.InvalidParams)

	u, err := New(Config{Baud: 9600, CPUHz: sim.DefaultCPUHz, Parity: types.ParityEven}, regs, b.IRQ, make([]byte, 32), make([]byte, 4))
	require.NoError(t, err)
	_, err = u.Write([]byte("x"))
	assert.ErrorIs(t, err, errcode.HALNotReady)
	_, err = u.Read(make([]byte, 1))
	assert.ErrorIs(t, err, errcode.HALNotReady)

	require.NoError(t, u.Install(b.IRQ, vec))
	assert.ErrorIs(t, u.Install(b.IRQ, vec), errcode.Busy)
	require.NoError(t, u.Initialize())
	assert.ErrorIs(t, u.Initialize(), errcode.Busy)
	assert.Equal(t, types.ParityEven, b.UART0().Format().Parity)
}
