//go:build tinygo

package serial

import (
	"mcuhal-go/errcode"
	"mcuhal-go/services/hal/internal/registry"
)

func openTTY(registry.BuildInput, string) (backend, error) {
	return backend{}, &errcode.E{C: errcode.Unsupported, Op: "serial.tty", Msg: "no host ttys on this target"}
}
