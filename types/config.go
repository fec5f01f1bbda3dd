package types

// HAL configuration supplied on topic "config/hal".

type HALConfig struct {
	Devices []HALDevice `json:"devices" yaml:"devices"`
}

type HALDevice struct {
	ID     string `json:"id" yaml:"id"`
	Type   string `json:"type" yaml:"type"` // e.g. "mpr"
	Params any    `json:"params,omitempty" yaml:"params,omitempty"`
	BusRef BusRef `json:"bus_ref,omitempty" yaml:"bus_ref,omitempty"`
}

// BusRef names a bus instance provided by the platform layer.
type BusRef struct {
	Type string `json:"type" yaml:"type"` // "i2c"
	ID   string `json:"id" yaml:"id"`     // e.g. "i2c0"
}
