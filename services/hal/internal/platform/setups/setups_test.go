package setups

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcuhal-go/services/hal/config"
	"mcuhal-go/services/hal/internal/platform/boards"
	"mcuhal-go/types"
)

func TestSetups_PinsAndParamsAreValid(t *testing.T) {
	for name, cfg := range map[string]types.HALConfig{"sim": Sim, "uno": Uno} {
		used := map[int]string{}
		for _, d := range cfg.Devices {
			switch p := d.Params.(type) {
			case config.UARTParams:
				require.NoError(t, p.Normalise(), "%s/%s", name, d.ID)
			case config.SoftSerialParams:
				require.NoError(t, p.Normalise(), "%s/%s", name, d.ID)
				for _, pin := range []int{p.RXPin, p.TXPin} {
					_, ok := boards.Atmega328.PortOf(pin)
					assert.True(t, ok, "%s/%s pin %d", name, d.ID, pin)
					assert.NotContains(t, used, pin, "%s pin %d reused", name, pin)
					used[pin] = d.ID
				}
			default:
				t.Fatalf("%s/%s: unexpected params %T", name, d.ID, d.Params)
			}
		}
	}
}
