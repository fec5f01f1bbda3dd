package types

// ------------------------
// Pressure
// ------------------------

type PressureInfo struct {
	Sensor string  `json:"sensor"` // "mpr"
	Addr   uint16  `json:"addr"`   // I2C address
	Bus    string  `json:"bus"`    // "i2c0", ...
	Unit   string  `json:"unit"`   // output unit of Value
	MinPSI float32 `json:"min_psi"`
	MaxPSI float32 `json:"max_psi"`
}

type PressureValue struct {
	Value float32 `json:"value"` // in Unit
	Unit  string  `json:"unit"`
	// Pascal rounded to integer, unit independent.
	Pa  int32  `json:"pa"`
	Raw uint32 `json:"raw"` // 24-bit count
	TS  int64  `json:"ts_ms"`
}

// SetUnit is the "set_unit" payload for pressure capabilities.
type SetUnit struct {
	Unit string `json:"unit"`
}

type SetUnitAck struct {
	OK   bool   `json:"ok"`
	Unit string `json:"unit"`
}
