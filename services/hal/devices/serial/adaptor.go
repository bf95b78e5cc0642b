// Package serial builds the HAL's serial devices: "uart" (interrupt-driven,
// on-chip, host tty or I²C bridge) and "soft_serial" (bit-banged on two
// GPIOs). Both are exposed as hal/cap/io/serial/<id>.
package serial

import (
	"errors"

	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/consts"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/util"
	"mcuhal-go/types"
)

// port is what both transports offer beyond halcore.SerialPort.
type port interface {
	halcore.SerialPort
	Status() types.SerialStatus
}

type adaptor struct {
	id     string
	driver string
	info   types.SerialInfo
	port   port

	// Nil when the platform cannot drive or observe this line.
	inject  func(data []byte) error
	capture func() ([]byte, error)

	// health adds backend loss counters to a status snapshot.
	health func(st *types.SerialStatus)

	closeFn func() error
}

func (a *adaptor) ID() string { return a.id }

func (a *adaptor) Capabilities() []halcore.CapInfo {
	return []halcore.CapInfo{{
		Domain: consts.DomainIO,
		Kind:   consts.KindSerial,
		Name:   a.id,
		Info:   types.Info{SchemaVersion: 1, Driver: a.driver, Detail: a.info},
	}}
}

// Controls:
//   - write:   types.SerialWrite | []byte | string → types.SerialWriteAck
//   - flush:   → types.OKReply
//   - status:  → types.SerialStatus
//   - inject:  types.SerialInject → types.OKReply (simulated platforms)
//   - capture: → types.SerialCapture (simulated platforms)
func (a *adaptor) Control(kind, method string, payload any) (any, error) {
	if kind != consts.KindSerial {
		return nil, errcode.Unsupported
	}
	switch method {
	case consts.CtrlWrite:
		data, err := writeData(payload)
		if err != nil {
			return nil, err
		}
		n, err := a.port.Write(data)
		ack := types.SerialWriteAck{OK: err == nil, N: n}
		switch {
		case err == nil:
		case errors.Is(err, errcode.TxFull):
			ack.Truncated = true
			ack.Error = string(errcode.TxFull)
		default:
			return nil, err
		}
		return ack, nil

	case consts.CtrlFlush:
		a.port.Flush()
		return types.OKReply{OK: true}, nil

	case consts.CtrlStatus:
		return a.Status(), nil

	case consts.CtrlInject:
		if a.inject == nil {
			return nil, errcode.Unsupported
		}
		p, err := util.As[types.SerialInject](payload)
		if err != nil {
			return nil, err
		}
		if err := a.inject(p.Data); err != nil {
			return nil, err
		}
		return types.OKReply{OK: true}, nil

	case consts.CtrlCapture:
		if a.capture == nil {
			return nil, errcode.Unsupported
		}
		b, err := a.capture()
		if err != nil {
			return nil, err
		}
		return types.SerialCapture{Data: b}, nil
	}
	return nil, errcode.Unsupported
}

// Status is the transport snapshot tagged with the device id.
func (a *adaptor) Status() types.SerialStatus {
	st := a.port.Status()
	st.ID = a.id
	if a.health != nil {
		a.health(&st)
	}
	return st
}

func (a *adaptor) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}

func writeData(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	p, err := util.As[types.SerialWrite](payload)
	if err != nil {
		return nil, err
	}
	return p.Data, nil
}
