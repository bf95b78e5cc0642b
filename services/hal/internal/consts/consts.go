// services/hal/internal/consts/consts.go
package consts

// Top-level topics
const (
	TokConfig  = "config"
	TokHAL     = "hal"
	TokCap     = "cap"
	TokInfo    = "info"
	TokState   = "state"
	TokStatus  = "status"
	TokValue   = "value"
	TokControl = "control"
	TokEvent   = "event"
)

// Public address of serial capabilities: hal/cap/io/serial/<name>/...
const (
	DomainIO   = "io"
	KindSerial = "serial"
)

// Control verbs
const (
	CtrlWrite   = "write"
	CtrlFlush   = "flush"
	CtrlStatus  = "status"
	CtrlInject  = "inject"
	CtrlCapture = "capture"
)

// Event tags
const (
	TagRX = "rx"
	TagTX = "tx"
)

// Device types accepted in HAL config.
const (
	TypeUART       = "uart"
	TypeSoftSerial = "soft_serial"
)
