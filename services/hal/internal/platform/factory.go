// services/hal/internal/platform/factory.go
package platform

import (
	"sort"

	"tinygo.org/x/drivers"
)

// I2CFactory maps bus ids ("i2c0", ...) to configured buses.
type I2CFactory struct {
	buses map[string]drivers.I2C
}

func NewI2CFactory(buses map[string]drivers.I2C) *I2CFactory {
	if buses == nil {
		buses = map[string]drivers.I2C{}
	}
	return &I2CFactory{buses: buses}
}

func (f *I2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// IDs returns the configured bus ids in sorted order.
func (f *I2CFactory) IDs() []string {
	out := make([]string, 0, len(f.buses))
	for id := range f.buses {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DefaultSimFactory creates simulated buses "i2c0" and "i2c1", each with an
// MPR sensor at the standard address.
func DefaultSimFactory() *I2CFactory {
	return NewI2CFactory(map[string]drivers.I2C{
		"i2c0": NewSimBus(NewSimSensor(0x18)),
		"i2c1": NewSimBus(NewSimSensor(0x18)),
	})
}
