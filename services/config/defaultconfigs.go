package config

// Built-in configurations, keyed by name.

const cfgSim = `
hal:
  devices:
    - id: pressure0
      type: mpr
      bus_ref: {type: i2c, id: i2c0}
      params: {addr: 0x18, unit: kpa, period_ms: 1000}
    - id: pressure1
      type: mpr
      bus_ref: {type: i2c, id: i2c1}
      params: {unit: psi, period_ms: 5000}
heartbeat:
  interval: 10
`

var embeddedConfigs = map[string][]byte{
	"sim": []byte(cfgSim),
}
