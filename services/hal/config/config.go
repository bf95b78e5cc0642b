// Package config holds the HAL configuration and the per-type device
// parameters carried in Device.Params.
package config

import (
	"time"

	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/consts"
	"mcuhal-go/types"
	"mcuhal-go/x/mathx"
)

// HALConfig is supplied on the "config/hal" bus topic.
type HALConfig = types.HALConfig

// Device describes one transport to be managed by HAL.
type Device = types.Device

// BusRef names an I²C bus for a bridged UART.
type BusRef = types.BusRef

const (
	DefaultTicsPerSecond = 1000
	DefaultStatusPeriod  = 5000 // ms

	DefaultTxSize = 64
	DefaultRxSize = 64
	MinTxSize     = 17 // one byte beyond the truncation marker
	MaxQueueSize  = 1024

	DefaultMaxFrame = 128
	DefaultIdleMS   = 100
	MaxIdleMS       = 2000

	TypeUART       = consts.TypeUART
	TypeSoftSerial = consts.TypeSoftSerial

	ModeBytes = "bytes"
	ModeLines = "lines"
)

// Reader controls how received bytes are framed into events.
type Reader struct {
	Mode        string `json:"mode,omitempty"`          // "bytes" | "lines"
	MaxFrame    int    `json:"max_frame,omitempty"`     // 16..256
	IdleFlushMS int    `json:"idle_flush_ms,omitempty"` // lines mode only
	EchoTX      bool   `json:"echo_tx,omitempty"`
}

func (r *Reader) normalise() error {
	switch r.Mode {
	case "":
		r.Mode = ModeBytes
	case ModeBytes, ModeLines:
	default:
		return &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "mode must be bytes or lines"}
	}
	if r.MaxFrame == 0 {
		r.MaxFrame = DefaultMaxFrame
	}
	r.MaxFrame = mathx.Clamp(r.MaxFrame, 16, 256)
	if r.Mode == ModeLines && r.IdleFlushMS == 0 {
		r.IdleFlushMS = DefaultIdleMS
	}
	r.IdleFlushMS = mathx.Clamp(r.IdleFlushMS, 0, MaxIdleMS)
	return nil
}

func (r Reader) IdleFlush() time.Duration { return time.Duration(r.IdleFlushMS) * time.Millisecond }

// Bridge selects an SC16IS7xx I²C bridge channel as the UART backend. The
// bus is named by the device's bus_ref.
type Bridge struct {
	Addr      uint16 `json:"addr,omitempty"`
	Channel   uint8  `json:"channel,omitempty"`
	CrystalHz uint32 `json:"xtal_hz,omitempty"`
}

// UARTParams configure an interrupt-driven UART. Port names an on-chip
// channel; TTY or Bridge select an off-chip backend instead.
type UARTParams struct {
	Port           string       `json:"port,omitempty"`
	Baud           uint32       `json:"baud"`
	Parity         types.Parity `json:"parity,omitempty"`
	InvertPolarity bool         `json:"invert_polarity,omitempty"`
	TxSize         int          `json:"tx_size,omitempty"`
	RxSize         int          `json:"rx_size,omitempty"`
	TTY            string       `json:"tty,omitempty"`
	Bridge         *Bridge      `json:"bridge,omitempty"`
	Reader
}

// Normalise applies defaults and clamps sizes.
func (p *UARTParams) Normalise() error {
	if p.Port == "" && p.TTY == "" && p.Bridge == nil {
		p.Port = "uart0"
	}
	if p.TTY != "" && p.Bridge != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "config", Msg: "tty and bridge are exclusive"}
	}
	if p.Baud == 0 {
		return &errcode.E{C: errcode.InvalidBaud, Op: "config"}
	}
	if p.TxSize == 0 {
		p.TxSize = DefaultTxSize
	}
	if p.RxSize == 0 {
		p.RxSize = DefaultRxSize
	}
	p.TxSize = mathx.Clamp(p.TxSize, MinTxSize, MaxQueueSize)
	p.RxSize = mathx.Clamp(p.RxSize, 1, MaxQueueSize)
	return p.Reader.normalise()
}

// SoftSerialParams configure a bit-banged 8N1 line. Port, when set, must
// match the pin-change port of RXPin.
type SoftSerialParams struct {
	Baud   uint32 `json:"baud"`
	RXPin  int    `json:"rx_pin"`
	TXPin  int    `json:"tx_pin"`
	Port   *int   `json:"port,omitempty"`
	RxSize int    `json:"rx_size,omitempty"`
	Reader
}

func (p *SoftSerialParams) Normalise() error {
	if p.Baud == 0 {
		return &errcode.E{C: errcode.InvalidBaud, Op: "config"}
	}
	if p.RXPin == p.TXPin {
		return &errcode.E{C: errcode.PinInUse, Op: "config", Msg: "rx_pin and tx_pin must differ"}
	}
	if p.RxSize == 0 {
		p.RxSize = DefaultRxSize
	}
	p.RxSize = mathx.Clamp(p.RxSize, 1, MaxQueueSize)
	return p.Reader.normalise()
}

// Normalise fills the top-level defaults.
func Normalise(c *HALConfig) {
	if c.TicsPerSecond == 0 {
		c.TicsPerSecond = DefaultTicsPerSecond
	}
	if c.StatusPeriodMS == 0 {
		c.StatusPeriodMS = DefaultStatusPeriod
	}
}
