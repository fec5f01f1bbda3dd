package mpr

import (
	"strings"

	"periph.io/x/conn/v3/physic"

	"mprcode-go/x/mathx"
)

// Unit selects the output unit of a pressure reading.
type Unit uint8

const (
	PSI Unit = iota
	Pascal
	Kilopascal
	Torr
	InchMercury
	Atmosphere
	Bar
)

type unitDef struct {
	name   string
	factor float32 // multiplier applied to psi
}

var unitTable = [...]unitDef{
	PSI:         {"psi", 1.0},
	Pascal:      {"pa", 6894.7573},
	Kilopascal:  {"kpa", 6.89476},
	Torr:        {"torr", 51.7149},
	InchMercury: {"inhg", 2.03602},
	Atmosphere:  {"atm", 0.06805},
	Bar:         {"bar", 0.06895},
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool { return int(u) < len(unitTable) }

// Factor returns the psi multiplier for u.
func (u Unit) Factor() (float32, bool) {
	if !u.Valid() {
		return 0, false
	}
	return unitTable[u].factor, true
}

func (u Unit) String() string {
	if !u.Valid() {
		return "unknown"
	}
	return unitTable[u].name
}

// FromPSI scales a psi value into u. Invalid units yield 0.
func (u Unit) FromPSI(psi float32) float32 {
	f, _ := u.Factor()
	return psi * f
}

// ParseUnit accepts the short names returned by Unit.String, case-insensitive.
// An empty string selects PSI.
func ParseUnit(s string) (Unit, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PSI, nil
	}
	for i, def := range unitTable {
		if def.name == s {
			return Unit(i), nil
		}
	}
	return 0, ErrUnknownUnit
}

// RawToPSI applies the linear transfer function over the full calibration
// range. No clamping is done; counts outside the range extrapolate.
func RawToPSI(raw uint32) float32 {
	return mathx.MapLinear(float32(raw), OutputMin, OutputMax, MinimumPSI, MaximumPSI)
}

// Convert returns the pressure for a raw count in unit u.
func Convert(raw uint32, u Unit) float32 {
	return u.FromPSI(RawToPSI(raw))
}

// PSIToPhysic converts psi to a physic.Pressure (nano-pascal resolution).
func PSIToPhysic(psi float32) physic.Pressure {
	return physic.Pressure(float64(psi) * float64(unitTable[Pascal].factor) * float64(physic.Pascal))
}
