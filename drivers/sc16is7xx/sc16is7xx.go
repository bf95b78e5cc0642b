// Package sc16is7xx drives the UART side of an SC16IS740/750/752 I2C bridge.
//
// The chip's interrupt output is not used: callers poll LineStatus, TxSpace
// and RxLevel and move bytes through the 64-byte FIFOs.
package sc16is7xx

import (
	"errors"

	"tinygo.org/x/drivers"
)

type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

var (
	ErrBaud    = errors.New("sc16is7xx: baud rate not reachable from crystal")
	ErrChannel = errors.New("sc16is7xx: channel must be 0 or 1")
)

type Config struct {
	// Address defaults to AddressDefault.
	Address uint16
	// Channel selects A (0) or B (1) on the dual-channel part.
	Channel uint8
	// CrystalHz defaults to CrystalDefault.
	CrystalHz uint32
}

type Device struct {
	i2c  drivers.I2C
	addr uint16
	ch   uint8
	xtal uint32

	w [2]byte
	r [1]byte
}

func New(bus drivers.I2C, cfg Config) (*Device, error) {
	if cfg.Channel > 1 {
		return nil, ErrChannel
	}
	if cfg.Address == 0 {
		cfg.Address = AddressDefault
	}
	if cfg.CrystalHz == 0 {
		cfg.CrystalHz = CrystalDefault
	}
	return &Device{i2c: bus, addr: cfg.Address, ch: cfg.Channel, xtal: cfg.CrystalHz}, nil
}

func (d *Device) Address() uint16 { return d.addr }
func (d *Device) Channel() uint8  { return d.ch }

// Divisor returns the baud generator divisor (prescaler 1).
func (d *Device) Divisor(baud uint32) (uint16, error) {
	if baud == 0 {
		return 0, ErrBaud
	}
	div := d.xtal / (16 * baud)
	if div == 0 || div > 0xFFFF {
		return 0, ErrBaud
	}
	return uint16(div), nil
}

// Configure programs 8 data bits, one stop bit, the given parity and baud,
// and resets both FIFOs. Interrupts stay disabled.
func (d *Device) Configure(baud uint32, p Parity) error {
	div, err := d.Divisor(baud)
	if err != nil {
		return err
	}
	lcr := byte(lcr8Bits)
	switch p {
	case ParityEven:
		lcr |= lcrParityEn | lcrParityEvn
	case ParityOdd:
		lcr |= lcrParityEn
	}
	steps := []struct{ reg, val byte }{
		{regLCR, lcrDivisorEn},
		{regDLL, byte(div)},
		{regDLH, byte(div >> 8)},
		{regLCR, lcr},
		{regFCR, fcrFIFOEnable | fcrRxReset | fcrTxReset},
		{regIER, 0},
		{regMCR, 0},
	}
	for _, s := range steps {
		if err := d.writeReg(s.reg, s.val); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) readReg(reg byte) (byte, error) {
	d.w[0] = subaddr(reg, d.ch)
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) writeReg(reg, val byte) error {
	d.w[0] = subaddr(reg, d.ch)
	d.w[1] = val
	return d.i2c.Tx(d.addr, d.w[:2], nil)
}

// LineStatus reads LSR. Reading clears the error bits.
func (d *Device) LineStatus() (byte, error) { return d.readReg(regLSR) }

// TxSpace is the number of free TX FIFO slots.
func (d *Device) TxSpace() (int, error) {
	v, err := d.readReg(regTXLVL)
	return int(v), err
}

// RxLevel is the number of bytes waiting in the RX FIFO.
func (d *Device) RxLevel() (int, error) {
	v, err := d.readReg(regRXLVL)
	return int(v), err
}

// ReadFIFO reads up to len(buf) received bytes in one burst.
func (d *Device) ReadFIFO(buf []byte) (int, error) {
	n, err := d.RxLevel()
	if err != nil || n == 0 {
		return 0, err
	}
	if n > len(buf) {
		n = len(buf)
	}
	d.w[0] = subaddr(regRHR, d.ch)
	if err := d.i2c.Tx(d.addr, d.w[:1], buf[:n]); err != nil {
		return 0, err
	}
	return n, nil
}

// WriteByte loads one byte into the TX FIFO. The caller checks TxSpace.
func (d *Device) WriteByte(b byte) error { return d.writeReg(regTHR, b) }
