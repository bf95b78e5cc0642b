// services/hal/internal/halcore/types.go
package halcore

import (
	"io"
	"time"

	"tinygo.org/x/drivers"

	"mcuhal-go/types"
)

// ---- Interrupts ----

// InterruptControl is the global interrupt enable facility (sei/cli).
type InterruptControl interface {
	Enabled() bool
	Enable()
	Disable()
}

// Vector identifies one hardware interrupt source.
type Vector uint8

// VectorTable installs handlers for hardware vectors. One handler per vector.
type VectorTable interface {
	Install(v Vector, handler func()) error
	Uninstall(v Vector)
}

// Raiser is implemented by whatever delivers hardware interrupts. Hardware
// models call it when a flag becomes pending.
type Raiser interface {
	Raise(v Vector)
}

// InterruptController is the whole interrupt facility of a platform.
type InterruptController interface {
	InterruptControl
	VectorTable
	Raiser
}

// ---- GPIO abstractions ----

type Level uint8

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// LevelOf maps a bool to a Level.
func LevelOf(b bool) Level {
	if b {
		return High
	}
	return Low
}

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Pin is a digital IO line.
type Pin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial Level) error
	Set(level Level)
	Get() Level
	Toggle()
	Number() int
}

// IRQPin is a pin whose changes raise its port's pin-change vector.
type IRQPin interface {
	Pin
	// Port is the pin-change port (one vector per port).
	Port() int
	// EnableChangeInterrupt unmasks this pin in its port's change mask.
	EnableChangeInterrupt() error
	DisableChangeInterrupt() error
}

// PinFactory supplies GPIO pins by the configured number scheme.
type PinFactory interface {
	ByNumber(n int) (Pin, bool)
	IRQByNumber(n int) (IRQPin, bool)
}

// ---- Timing ----

// CycleDelay busy-waits for n units of four CPU cycles (_delay_loop_2).
type CycleDelay interface {
	DelayQuadCycles(n uint16)
}

// ---------------- UART abstractions ----------------

// UARTFormat is the frame and line configuration of a hardware UART.
type UARTFormat struct {
	Baud           uint32
	CPUHz          uint32
	Parity         types.Parity
	InvertPolarity bool
}

// UARTRegisters is the register block of one hardware UART channel.
type UARTRegisters interface {
	// Configure programs rate and frame and enables TX/RX with their
	// interrupts.
	Configure(f UARTFormat) error
	// DataRegisterEmpty reports that the transmit data register can take
	// a byte (UDRE).
	DataRegisterEmpty() bool
	WriteData(b byte)
	ReadData() byte
}

// UARTVectors are the two vectors a UART channel raises.
type UARTVectors struct {
	RxComplete        Vector
	DataRegisterEmpty Vector
}

// UARTFactory resolves register blocks and their vectors by channel id.
type UARTFactory interface {
	ByID(id string) (UARTRegisters, UARTVectors, bool)
}

// SerialPort is the byte-stream contract both transports implement.
type SerialPort interface {
	io.Reader
	io.Writer
	Initialize() error
	Buffered() int
	IsDataAvailable() bool
	Overflowed() bool
	Flush()
}

var _ drivers.UART = SerialPort(nil)

// ExternalUART is an off-chip register block (I²C bridge, host tty). It
// raises its vectors itself and is serviced from the core goroutine.
type ExternalUART interface {
	UARTRegisters
	Bind(r Raiser, v UARTVectors)
	Poll()
}

// UARTAttacher is implemented by platforms that can host ExternalUARTs.
type UARTAttacher interface {
	// AttachUART allocates vectors for u, binds it and makes it resolvable
	// through ByID.
	AttachUART(id string, u ExternalUART) (UARTVectors, error)
	// DetachUART stops polling id and frees its vectors.
	DetachUART(id string)
}

// ---- I²C ----

type I2CBusFactory interface {
	I2CByID(id string) (drivers.I2C, bool)
}

// ---- Platform ----

// Platform is everything the HAL service needs from a board.
type Platform interface {
	PinFactory
	UARTFactory
	CPUHz() uint32
	Interrupts() InterruptController
	Delay() CycleDelay
	// PortVector is the pin-change vector shared by a port's pins.
	PortVector(port int) (Vector, bool)
	// TimerVector is raised EnableTicker times per second.
	TimerVector() Vector
	EnableTicker(ticsPerSecond uint32)
	// Poll services the hardware. It is called from the core goroutine
	// between loop iterations.
	Poll(now time.Time)
}

// Stimulus drives and observes serial lines of a simulated platform.
type Stimulus interface {
	InjectPin(pin int, data []byte, baud uint32) error
	CapturePin(pin int, baud uint32) ([]byte, error)
	InjectUART(id string, data []byte) error
	CaptureUART(id string) ([]byte, error)
}

// ---- Adaptors ----

// CapInfo describes one public capability of a device. Name defaults to the
// device id.
type CapInfo struct {
	Domain string
	Kind   string
	Name   string
	Info   types.Info
}

// Adaptor binds a configured device to the bus.
type Adaptor interface {
	ID() string
	Capabilities() []CapInfo
	// Control runs a verb on the core goroutine. It must not block.
	Control(kind, method string, payload any) (any, error)
	Close() error
}
