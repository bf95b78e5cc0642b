package platform

import (
	"mcuhal-go/services/hal/internal/halcore"
	"mcuhal-go/types"
)

// Public accessors used by hal.Run.
func GetInitialConfig() types.HALConfig { return selectedSetup() }
func New() halcore.Platform             { return newPlatform() }

// BoardName keys the board's embedded configuration.
func BoardName() string { return boardName() }
