// services/hal/internal/halerr/errors.go
package halerr

import "mcuhal-go/errcode"

// Service-level errors. Each carries an errcode.Code so replies stay stable.
var (
	// Service/control plane
	ErrInvalidCapAddr = &errcode.E{C: errcode.InvalidTopic, Msg: "invalid capability address"}
	ErrUnknownCap     = &errcode.E{C: errcode.UnknownCapability}
	ErrNoAdaptor      = &errcode.E{C: errcode.UnknownDevice, Msg: "no adaptor"}
	ErrNoStimulus     = &errcode.E{C: errcode.Unsupported, Msg: "platform has no stimulus"}

	// Build/config
	ErrNoBuilder      = &errcode.E{C: errcode.Unsupported, Msg: "no builder for device type"}
	ErrMissingBusRef  = &errcode.E{C: errcode.InvalidParams, Msg: "missing bus_ref"}
	ErrUnknownBus     = &errcode.E{C: errcode.UnknownBus}
	ErrUnknownPin     = &errcode.E{C: errcode.UnknownPin}
	ErrInvalidMode    = &errcode.E{C: errcode.InvalidParams, Msg: "invalid mode"}
	ErrClockMismatch  = &errcode.E{C: errcode.InvalidParams, Msg: "cpu_hz does not match platform clock"}
	ErrNoExternalUART = &errcode.E{C: errcode.Unsupported, Msg: "platform cannot attach external uarts"}
)
