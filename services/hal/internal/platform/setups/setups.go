// Package setups holds the device lists HAL instantiates on boot. Names are
// chosen for meaningful public addresses under hal/cap/io/serial/<name>/…
package setups

import (
	"mcuhal-go/services/hal/config"
	"mcuhal-go/services/hal/internal/consts"
	"mcuhal-go/services/hal/internal/platform/boards"
	"mcuhal-go/types"
)

// Sim is the host simulator's boot config: the console on USART0 and a
// software serial line on D2/D3.
var Sim = types.HALConfig{
	CPUHz:          boards.Atmega328.CPUHz,
	StatusPeriodMS: 5000,
	Devices: []types.Device{
		{ID: "console", Type: consts.TypeUART, Params: config.UARTParams{
			Baud: 115200, Reader: config.Reader{Mode: config.ModeLines, EchoTX: true},
		}},
		{ID: "aux", Type: consts.TypeSoftSerial, Params: config.SoftSerialParams{
			Baud: 9600, RXPin: 2, TXPin: 3,
		}},
	},
}

// Uno is the hardware boot config. USART0 runs the console at 57600 (U2X
// keeps the rate error under 2.2% at 16 MHz); a GPS style receiver sits
// on D8/D9 at 9600.
var Uno = types.HALConfig{
	CPUHz: boards.Atmega328.CPUHz,
	Devices: []types.Device{
		{ID: "console", Type: consts.TypeUART, Params: config.UARTParams{
			Baud: 57600, Reader: config.Reader{Mode: config.ModeLines},
		}},
		{ID: "gps", Type: consts.TypeSoftSerial, Params: config.SoftSerialParams{
			Baud: 9600, RXPin: 8, TXPin: 9, RxSize: 128,
			Reader: config.Reader{Mode: config.ModeLines, MaxFrame: 96},
		}},
	},
}
