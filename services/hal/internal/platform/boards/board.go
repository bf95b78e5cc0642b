// Package boards describes what a board offers: pin range, pin-change
// ports and controllers. Wiring choices live in setups.
package boards

// Port is one pin-change interrupt group.
type Port struct {
	ID     int
	Vector uint8
	Pins   [2]int // first..last, inclusive
}

// Board describes what the PCB/SoC can do (controllers present, GPIO range).
// It must not include wiring choices (pins) or operating parameters (baud).
type Board struct {
	Name    string
	CPUHz   uint32
	NumPins int
	Ports   []Port

	// Controllers present (identities only; e.g. "i2c0", "uart0").
	I2C  []string
	UART []string

	// Defaults are plain pin numbers for setups and tools.
	Defaults struct {
		UART0_RX, UART0_TX int
		I2C0_SDA, I2C0_SCL int
	}
}

// PortOf returns the pin-change port holding pin n.
func (b Board) PortOf(n int) (Port, bool) {
	for _, p := range b.Ports {
		if n >= p.Pins[0] && n <= p.Pins[1] {
			return p, true
		}
	}
	return Port{}, false
}

// Atmega328 is an Arduino Uno class board: D0..D13 and A0..A5 numbered
// 0..19, USART0 on D0/D1 and TWI on A4/A5.
var Atmega328 = func() Board {
	b := Board{
		Name:    "atmega328",
		CPUHz:   16_000_000,
		NumPins: 20,
		Ports: []Port{
			{ID: 0, Vector: 3, Pins: [2]int{8, 13}},  // PCINT0, PORTB
			{ID: 1, Vector: 4, Pins: [2]int{14, 19}}, // PCINT1, PORTC
			{ID: 2, Vector: 5, Pins: [2]int{0, 7}},   // PCINT2, PORTD
		},
		I2C:  []string{"i2c0"},
		UART: []string{"uart0"},
	}
	b.Defaults.UART0_RX, b.Defaults.UART0_TX = 0, 1
	b.Defaults.I2C0_SDA, b.Defaults.I2C0_SCL = 18, 19
	return b
}()
