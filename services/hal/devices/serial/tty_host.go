//go:build !tinygo

package serial

import (
	"mcuhal-go/services/hal/internal/platform/hosttty"
	"mcuhal-go/services/hal/internal/registry"
)

func openTTY(in registry.BuildInput, path string) (backend, error) {
	tty := hosttty.New(path)
	return attach(in, "tty:"+path, tty, func() { tty.Close() })
}
