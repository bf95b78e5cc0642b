package serial

import (
	"strconv"

	"mcuhal-go/drivers/sc16is7xx"
	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/config"
	"mcuhal-go/services/hal/internal/asyncuart"
	"mcuhal-go/services/hal/internal/consts"
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/halerr"
	"mcuhal-go/services/hal/internal/registry"
	"mcuhal-go/services/hal/internal/util"
	"mcuhal-go/types"
)

func init() { registry.RegisterBuilder(consts.TypeUART, uartBuilder{}) }

type uartBuilder struct{}

// backend is a resolved register block plus how to let go of it.
type backend struct {
	name    string // claim key and SerialInfo.Backend
	regs    halcore.UARTRegisters
	vec     halcore.UARTVectors
	onChip  bool
	health  func(st *types.SerialStatus)
	release func()
}

func (uartBuilder) Build(in registry.BuildInput) (registry.BuildOutput, error) {
	var p config.UARTParams
	if err := util.DecodeJSON(in.ParamsJSON, &p); err != nil {
		return registry.BuildOutput{}, &errcode.E{C: errcode.InvalidParams, Op: "uart.Build", Err: err}
	}
	if err := p.Normalise(); err != nil {
		return registry.BuildOutput{}, err
	}

	be, err := resolveBackend(in, &p)
	if err != nil {
		return registry.BuildOutput{}, err
	}
	fail := func(err error) (registry.BuildOutput, error) {
		be.release()
		return registry.BuildOutput{}, err
	}
	if err := in.Claims.ClaimUART(in.DeviceID, be.name); err != nil {
		return fail(err)
	}

	ic := in.Plat.Interrupts()
	u, err := asyncuart.New(asyncuart.Config{
		Baud:           p.Baud,
		CPUHz:          in.Plat.CPUHz(),
		Parity:         p.Parity,
		InvertPolarity: p.InvertPolarity,
	}, be.regs, ic, make([]byte, p.TxSize), make([]byte, p.RxSize))
	if err != nil {
		return fail(err)
	}
	if err := u.Install(ic, be.vec); err != nil {
		return fail(err)
	}
	uninstall := func() {
		ic.Uninstall(be.vec.RxComplete)
		ic.Uninstall(be.vec.DataRegisterEmpty)
	}
	if err := u.Initialize(); err != nil {
		uninstall()
		return fail(err)
	}

	ad := &adaptor{
		id:     in.DeviceID,
		driver: "asyncuart",
		info: types.SerialInfo{
			ID:      in.DeviceID,
			Kind:    consts.TypeUART,
			Backend: be.name,
			Baud:    p.Baud,
			Parity:  p.Parity,
		},
		port:   u,
		health: be.health,
		closeFn: func() error {
			u.Flush()
			uninstall()
			be.release()
			return nil
		},
	}
	if stim, ok := in.Plat.(halcore.Stimulus); ok && be.onChip {
		portID := p.Port
		ad.inject = func(data []byte) error { return stim.InjectUART(portID, data) }
		ad.capture = func() ([]byte, error) { return stim.CaptureUART(portID) }
	}

	return registry.BuildOutput{
		Adaptor: ad,
		UART: &registry.UARTRequest{
			DevID:         in.DeviceID,
			Port:          u,
			Mode:          p.Mode,
			MaxFrame:      p.MaxFrame,
			IdleFlushMS:   p.IdleFlushMS,
			PublishTXEcho: p.EchoTX,
		},
	}, nil
}

func resolveBackend(in registry.BuildInput, p *config.UARTParams) (backend, error) {
	switch {
	case p.TTY != "":
		return openTTY(in, p.TTY)

	case p.Bridge != nil:
		if in.BusRefType != "i2c" || in.BusRefID == "" {
			return backend{}, halerr.ErrMissingBusRef
		}
		if in.Buses == nil {
			return backend{}, halerr.ErrUnknownBus
		}
		bus, ok := in.Buses.I2CByID(in.BusRefID)
		if !ok {
			return backend{}, halerr.ErrUnknownBus
		}
		dev, err := sc16is7xx.New(bus, sc16is7xx.Config{
			Address:   p.Bridge.Addr,
			Channel:   p.Bridge.Channel,
			CrystalHz: p.Bridge.CrystalHz,
		})
		if err != nil {
			return backend{}, &errcode.E{C: errcode.InvalidParams, Op: "uart.Build", Err: err}
		}
		name := in.BusRefID + "/0x" + strconv.FormatUint(uint64(dev.Address()), 16) + "/" + strconv.Itoa(int(dev.Channel()))
		return attach(in, name, newBridgeRegs(dev), func() {})

	default:
		regs, vec, ok := in.Plat.ByID(p.Port)
		if !ok || regs == nil {
			return backend{}, halerr.ErrUnknownBus
		}
		return backend{name: p.Port, regs: regs, vec: vec, onChip: true, release: func() {}}, nil
	}
}

// attach hands an off-chip block to the platform under the device id.
func attach(in registry.BuildInput, name string, u halcore.ExternalUART, closeFn func()) (backend, error) {
	at, ok := in.Plat.(halcore.UARTAttacher)
	if !ok {
		return backend{}, halerr.ErrNoExternalUART
	}
	vec, err := at.AttachUART(in.DeviceID, u)
	if err != nil {
		return backend{}, err
	}
	return backend{
		name:   name,
		regs:   u,
		vec:    vec,
		health: healthOf(u),
		release: func() {
			at.DetachUART(in.DeviceID)
			closeFn()
		},
	}, nil
}

// healthOf reads whichever loss counters an off-chip block keeps.
func healthOf(u halcore.ExternalUART) func(st *types.SerialStatus) {
	type fifoDrops interface {
		RxDrops() uint32
		TxDrops() int
	}
	type busErrors interface{ BusErrors() int }
	type lastErr interface{ Err() error }
	return func(st *types.SerialStatus) {
		if d, ok := u.(fifoDrops); ok {
			st.Dropped = d.RxDrops() + uint32(d.TxDrops())
		}
		if b, ok := u.(busErrors); ok {
			st.BusErrors = b.BusErrors()
		}
		if e, ok := u.(lastErr); ok {
			if err := e.Err(); err != nil {
				st.LastError = err.Error()
			}
		}
	}
}
