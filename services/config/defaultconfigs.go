package config

// Embedded per-board configuration. Top-level keys become config/<key>.
// A board without a "hal" entry boots with the HAL's built-in setup.

const cfgSim = `{
  "heartbeat": {
    "interval": 10
  }
}`

const cfgUno = `{
  "heartbeat": {
    "interval": 30
  }
}`

var embeddedConfigs = map[string][]byte{
	"sim": []byte(cfgSim),
	"uno": []byte(cfgUno),
}
