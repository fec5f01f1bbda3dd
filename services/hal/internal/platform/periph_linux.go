// services/hal/internal/platform/periph_linux.go
//go:build linux

package platform

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// OpenLinuxI2C opens host I²C buses through periph. names maps bus ids
// ("i2c0") to periph bus names ("/dev/i2c-1", "1", or "" for the first).
// The returned closer releases every opened bus.
func OpenLinuxI2C(names map[string]string) (*I2CFactory, func() error, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph host init: %w", err)
	}
	buses := make(map[string]drivers.I2C, len(names))
	var closers []i2c.BusCloser
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
		return errors.Join(errs...)
	}
	for id, name := range names {
		b, err := i2creg.Open(name)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("open %s (%q): %w", id, name, err)
		}
		closers = append(closers, b)
		// periph's i2c.Bus.Tx has the same shape as drivers.I2C.
		buses[id] = b
	}
	return NewI2CFactory(buses), closeAll, nil
}
