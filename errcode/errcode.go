package errcode

// Code is a stable, caller-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK            Code = "ok"
	Busy          Code = "busy"
	Unsupported   Code = "unsupported"
	InvalidParams Code = "invalid_params"
	HALNotReady   Code = "hal_not_ready"

	UnknownDevice     Code = "unknown_device"
	UnknownCapability Code = "unknown_capability"
	UnknownPin        Code = "unknown_pin"
	PinInUse          Code = "pin_in_use"
	UnknownBus        Code = "unknown_bus"
	BusInUse          Code = "bus_in_use"
	UnknownVector     Code = "unknown_vector"
	Timeout           Code = "timeout"

	// Control plane.
	InvalidTopic   Code = "invalid_topic"
	InvalidPayload Code = "invalid_payload"

	// Transport configuration.
	InvalidBaud  Code = "invalid_baud"
	ZeroCapacity Code = "zero_capacity"
	RegistryFull Code = "registry_full"

	// Transient capacity.
	TxFull Code = "tx_full"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.X) match a wrapped code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps low-level driver errors to a Code.
// Codes pass through; anything else is reported as a generic error.
func MapDriverErr(err error) Code {
	if err == nil {
		return OK
	}
	if c := Of(err); c != Error {
		return c
	}
	return Error
}
