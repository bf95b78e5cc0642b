package serial

import (
	"strconv"

	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/config"
	"mcuhal-go/services/hal/internal/consts"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/halerr"
	"mcuhal-go/services/hal/internal/registry"
	"mcuhal-go/services/hal/internal/softserial"
	"mcuhal-go/services/hal/internal/util"
	"mcuhal-go/types"
)

func init() { registry.RegisterBuilder(consts.TypeSoftSerial, softBuilder{}) }

type softBuilder struct{}

func (softBuilder) Build(in registry.BuildInput) (registry.BuildOutput, error) {
	var p config.SoftSerialParams
	if err := util.DecodeJSON(in.ParamsJSON, &p); err != nil {
		return registry.BuildOutput{}, &errcode.E{C: errcode.InvalidParams, Op: "soft_serial.Build", Err: err}
	}
	if err := p.Normalise(); err != nil {
		return registry.BuildOutput{}, err
	}
	if in.Soft == nil {
		return registry.BuildOutput{}, &errcode.E{C: errcode.InvalidParams, Op: "soft_serial.Build", Msg: "no line registry"}
	}

	rx, ok := in.Plat.IRQByNumber(p.RXPin)
	if !ok {
		return registry.BuildOutput{}, halerr.ErrUnknownPin
	}
	tx, ok := in.Plat.ByNumber(p.TXPin)
	if !ok {
		return registry.BuildOutput{}, halerr.ErrUnknownPin
	}
	port := rx.Port()
	if p.Port != nil && *p.Port != port {
		return registry.BuildOutput{}, &errcode.E{C: errcode.InvalidParams, Op: "soft_serial.Build",
			Msg: "rx_pin " + strconv.Itoa(p.RXPin) + " is on port " + strconv.Itoa(port)}
	}
	if err := in.Claims.ClaimPin(in.DeviceID, p.RXPin); err != nil {
		return registry.BuildOutput{}, err
	}
	if err := in.Claims.ClaimPin(in.DeviceID, p.TXPin); err != nil {
		return registry.BuildOutput{}, err
	}

	vec, ok := in.Plat.PortVector(port)
	if !ok {
		return registry.BuildOutput{}, &errcode.E{C: errcode.UnknownVector, Op: "soft_serial.Build"}
	}
	ic := in.Plat.Interrupts()
	if err := in.Soft.Install(ic, port, vec); err != nil {
		return registry.BuildOutput{}, err
	}

	s, err := softserial.New(softserial.Config{
		Baud:  p.Baud,
		CPUHz: in.Plat.CPUHz(),
		RX:    rx,
		TX:    tx,
	}, in.Soft, ic, in.Plat.Delay(), make([]byte, p.RxSize))
	if err != nil {
		return registry.BuildOutput{}, err
	}
	if err := s.Initialize(); err != nil {
		return registry.BuildOutput{}, err
	}

	ad := &adaptor{
		id:     in.DeviceID,
		driver: "softserial",
		info: types.SerialInfo{
			ID:      in.DeviceID,
			Kind:    consts.TypeSoftSerial,
			Backend: "pcint" + strconv.Itoa(port),
			Baud:    p.Baud,
			Pins:    []int{p.RXPin, p.TXPin},
		},
		port:    s,
		health:  func(st *types.SerialStatus) { st.Spurious = in.Soft.Spurious(port) },
		closeFn: s.Close,
	}
	if stim, ok := in.Plat.(halcore.Stimulus); ok {
		ad.inject = func(data []byte) error { return stim.InjectPin(p.RXPin, data, p.Baud) }
		ad.capture = func() ([]byte, error) { return stim.CapturePin(p.TXPin, p.Baud) }
	}

	return registry.BuildOutput{
		Adaptor: ad,
		UART: &registry.UARTRequest{
			DevID:         in.DeviceID,
			Port:          s,
			Mode:          p.Mode,
			MaxFrame:      p.MaxFrame,
			IdleFlushMS:   p.IdleFlushMS,
			PublishTXEcho: p.EchoTX,
		},
	}, nil
}
