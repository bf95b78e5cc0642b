// services/hal/internal/registry/registry.go
package registry

import (
	"context"
	"fmt"
	"sync"

	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/softserial"
)

// BuildInput is passed to a device builder.
type BuildInput struct {
	Ctx        context.Context
	Plat       halcore.Platform
	Buses      halcore.I2CBusFactory // nil when the platform has no I²C
	Soft       *softserial.Registry
	Claims     *Claims
	DeviceID   string
	Type       string
	ParamsJSON interface{}
	BusRefType string // e.g. "i2c"
	BusRefID   string // e.g. "i2c0"
}

// BuildOutput describes a constructed device.
type BuildOutput struct {
	Adaptor halcore.Adaptor
	UART    *UARTRequest // nil if the device produces no RX stream
}

// UARTRequest asks the service to frame a port's RX bytes into events.
type UARTRequest struct {
	DevID         string
	Port          halcore.SerialPort
	Mode          string
	MaxFrame      int
	IdleFlushMS   int
	PublishTXEcho bool
}

// Builder creates an adaptor from config and factories. Build runs on the
// core goroutine with interrupts enabled or not yet enabled.
type Builder interface {
	Build(in BuildInput) (BuildOutput, error)
}

var (
	mu       sync.RWMutex
	builders = map[string]Builder{}
)

func RegisterBuilder(deviceType string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := builders[deviceType]; exists {
		panic(fmt.Sprintf("device builder already registered for type %q", deviceType))
	}
	builders[deviceType] = b
}

func Lookup(deviceType string) (Builder, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := builders[deviceType]
	return b, ok
}

// Types lists the registered device types.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(builders))
	for t := range builders {
		out = append(out, t)
	}
	return out
}
