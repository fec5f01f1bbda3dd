package mathx

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(7, 0, 5))
	assert.Equal(t, 0, Clamp(-1, 0, 5))
	assert.Equal(t, 3, Clamp(3, 5, 0), "swapped bounds")
	assert.Equal(t, 200*time.Millisecond, Clamp(time.Millisecond, 200*time.Millisecond, time.Hour))
}

func TestBetween(t *testing.T) {
	assert.True(t, Between(5, 0, 5))
	assert.True(t, Between(1, 5, 0))
	assert.False(t, Between(6, 0, 5))
}

func TestRoundInt32(t *testing.T) {
	assert.Equal(t, int32(3), RoundInt32(2.5))
	assert.Equal(t, int32(-3), RoundInt32(-2.5))
	assert.Equal(t, int32(math.MaxInt32), RoundInt32(1e12))
	assert.Equal(t, int32(math.MinInt32), RoundInt32(-1e12))
	assert.Equal(t, int32(0), RoundInt32(math.NaN()))
	assert.Equal(t, int32(86184), RoundInt32(float32(86184.47)))
}

func TestMapLinear(t *testing.T) {
	assert.Equal(t, 50.0, MapLinear(5.0, 0, 10, 0, 100))
	assert.Equal(t, -10.0, MapLinear(-1.0, 0, 10, 0, 100), "extrapolates below")
	assert.Equal(t, 110.0, MapLinear(11.0, 0, 10, 0, 100), "extrapolates above")
	assert.Equal(t, float32(7), MapLinear(float32(3), 2, 2, 7, 9), "degenerate range")
}
