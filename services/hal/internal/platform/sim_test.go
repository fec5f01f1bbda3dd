package platform

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimSensorConversion(t *testing.T) {
	s := NewSimSensor(0x18)
	s.SetRaw(0x123456)
	s.SetConvTime(20 * time.Millisecond)
	b := NewSimBus(s)

	require.NoError(t, b.Tx(0x18, []byte{0xAA, 0, 0}, nil))
	r := make([]byte, 4)
	require.NoError(t, b.Tx(0x18, nil, r))
	assert.Equal(t, byte(0x60), r[0], "busy while converting")

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, b.Tx(0x18, nil, r))
	assert.Equal(t, []byte{0x40, 0x12, 0x34, 0x56}, r)
	assert.Equal(t, 1, s.Triggers())
}

func TestSimSensorLatchesOnTrigger(t *testing.T) {
	s := NewSimSensor(0x18)
	s.SetConvTime(0)
	b := NewSimBus(s)

	s.SetRaw(0x111111)
	require.NoError(t, b.Tx(0x18, []byte{0xAA, 0, 0}, nil))
	s.SetRaw(0x222222)

	r := make([]byte, 4)
	require.NoError(t, b.Tx(0x18, nil, r))
	assert.Equal(t, []byte{0x40, 0x11, 0x11, 0x11}, r)
}

func TestSimBusErrors(t *testing.T) {
	b := NewSimBus(NewSimSensor(0x18))
	assert.ErrorIs(t, b.Tx(0x28, nil, make([]byte, 4)), ErrNack)

	boom := errors.New("boom")
	b.FailWith(boom)
	assert.ErrorIs(t, b.Tx(0x18, []byte{0xAA, 0, 0}, nil), boom)
	b.FailWith(nil)
	assert.NoError(t, b.Tx(0x18, []byte{0xAA, 0, 0}, nil))
}

func TestStatusBitsForced(t *testing.T) {
	s := NewSimSensor(0x18)
	s.SetConvTime(0)
	s.SetStatus(0x04)
	b := NewSimBus(s)
	require.NoError(t, b.Tx(0x18, []byte{0xAA, 0, 0}, nil))
	r := make([]byte, 4)
	require.NoError(t, b.Tx(0x18, nil, r))
	assert.Equal(t, byte(0x44), r[0])
}

func TestFactory(t *testing.T) {
	f := DefaultSimFactory()
	assert.Equal(t, []string{"i2c0", "i2c1"}, f.IDs())
	_, ok := f.ByID("i2c0")
	assert.True(t, ok)
	_, ok = f.ByID("i2c9")
	assert.False(t, ok)
}
