//go:build !(tinygo && avr)

package platform

import (
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/platform/setups"
	"mcuhal-go/services/hal/internal/platform/sim"
	"mcuhal-go/types"
)

func boardName() string              { return "sim" }
func selectedSetup() types.HALConfig { return setups.Sim }
func newPlatform() halcore.Platform  { return sim.NewBoard(0) }
