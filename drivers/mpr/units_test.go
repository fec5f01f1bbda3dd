package mpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferFunctionEndpoints(t *testing.T) {
	assert.Equal(t, MinimumPSI, RawToPSI(OutputMin))
	assert.InDelta(t, MaximumPSI, RawToPSI(OutputMax), 1e-5)
}

func TestTransferFunctionExtrapolates(t *testing.T) {
	// No clamping outside the calibrated span.
	assert.Less(t, RawToPSI(0), float32(0))
	assert.Greater(t, RawToPSI(0xFFFFFF), MaximumPSI)
}

func TestUnitTableConsistency(t *testing.T) {
	want := map[Unit]float32{
		PSI:         1.0,
		Pascal:      6894.7573,
		Kilopascal:  6.89476,
		Torr:        51.7149,
		InchMercury: 2.03602,
		Atmosphere:  0.06805,
		Bar:         0.06895,
	}
	raws := []uint32{OutputMin, 0x3A129F, 0x800000, 0xC00000, OutputMax}
	for u, f := range want {
		got, ok := u.Factor()
		require.True(t, ok, u.String())
		assert.Equal(t, f, got, u.String())
		for _, r := range raws {
			assert.Equal(t, RawToPSI(r)*f, Convert(r, u), "unit %s raw 0x%06x", u, r)
		}
	}
}

func TestUnitNames(t *testing.T) {
	for i := range unitTable {
		u := Unit(i)
		got, err := ParseUnit(u.String())
		require.NoError(t, err)
		assert.Equal(t, u, got)
	}

	u, err := ParseUnit(" KPa ")
	require.NoError(t, err)
	assert.Equal(t, Kilopascal, u)

	u, err = ParseUnit("")
	require.NoError(t, err)
	assert.Equal(t, PSI, u)

	_, err = ParseUnit("mmh2o")
	assert.ErrorIs(t, err, ErrUnknownUnit)
	assert.Equal(t, "unknown", Unit(99).String())
}

func TestInvalidUnitFactor(t *testing.T) {
	_, ok := Unit(7).Factor()
	assert.False(t, ok)
	assert.Zero(t, Unit(7).FromPSI(10))
}

func TestPSIToPhysic(t *testing.T) {
	p := PSIToPhysic(1)
	assert.InDelta(t, 6894.7573, float64(p)/1e9, 1e-3)
}
