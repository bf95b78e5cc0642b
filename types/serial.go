package types

// ------------------------
// Serial
// ------------------------

type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	default:
		return "none"
	}
}

func (p Parity) MarshalJSON() ([]byte, error) { return []byte(`"` + p.String() + `"`), nil }

func (p *Parity) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case `"even"`, "1":
		*p = ParityEven
	case `"odd"`, "2":
		*p = ParityOdd
	default:
		*p = ParityNone
	}
	return nil
}

// TxState is the transmit side of an interrupt-driven UART.
type TxState uint8

const (
	TxIdle TxState = iota
	TxTransmitting
)

func (s TxState) String() string {
	if s == TxTransmitting {
		return "transmitting"
	}
	return "idle"
}

// SerialInfo is the static description of a configured transport.
type SerialInfo struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"` // "uart" | "soft_serial"
	Backend string `json:"backend"`
	Baud    uint32 `json:"baud"`
	Parity  Parity `json:"parity"`
	Pins    []int  `json:"pins,omitempty"` // rx, tx
}

// SerialStatus is a point-in-time snapshot of a transport's queues and flags.
type SerialStatus struct {
	ID         string  `json:"id"`
	TxQueued   int     `json:"tx_queued"`
	TxCap      int     `json:"tx_cap,omitempty"`
	RxQueued   int     `json:"rx_queued"`
	RxCap      int     `json:"rx_cap"`
	TxState    TxState `json:"-"`
	TxLatched  bool    `json:"tx_latched,omitempty"`
	Overflowed bool    `json:"overflowed"`

	// Loss counters, cumulative since the device was built.
	EventsDropped uint32 `json:"events_dropped,omitempty"` // rx/tx events a slow consumer missed
	Dropped       uint32 `json:"dropped,omitempty"`        // bytes lost in host device FIFOs
	Spurious      uint32 `json:"spurious,omitempty"`       // pin changes on the port no line took
	BusErrors     int    `json:"bus_errors,omitempty"`
	LastError     string `json:"last_error,omitempty"`
}

// ------------------------
// Serial control payloads
// ------------------------

// SerialWrite is the payload of the "write" verb.
type SerialWrite struct {
	Data []byte `json:"data"`
}

type SerialWriteAck struct {
	OK        bool   `json:"ok"`
	N         int    `json:"n"`
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SerialInject is the payload of the "inject" verb: bytes played into the
// transport's RX line on a simulated platform.
type SerialInject struct {
	Data []byte `json:"data"`
}

// SerialCapture is the reply to "capture": bytes seen on the TX line since
// the previous capture.
type SerialCapture struct {
	Data []byte `json:"data"`
}

// SerialEvent is published on hal/cap/io/serial/<id>/event/<dir>.
type SerialEvent struct {
	Dir      string `json:"dir"` // "rx" | "tx"
	Data     []byte `json:"data"`
	Overflow bool   `json:"overflow,omitempty"`
	TS       int64  `json:"ts_ms"`
}
