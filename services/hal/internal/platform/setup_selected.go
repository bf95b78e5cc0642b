//go:build tinygo && avr

package platform

import (
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/services/hal/internal/platform/avr"
	"mcuhal-go/services/hal/internal/platform/setups"
	"mcuhal-go/types"
)

func boardName() string              { return "uno" }
func selectedSetup() types.HALConfig { return setups.Uno }
func newPlatform() halcore.Platform  { return avr.New() }
