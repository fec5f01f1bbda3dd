// services/hal/hal.go
package hal

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/drivers"

	"mprcode-go/bus"
	"mprcode-go/services/hal/internal/halcore"
	"mprcode-go/services/hal/internal/metrics"
	"mprcode-go/services/hal/internal/platform"
	"mprcode-go/services/hal/internal/service"

	// Device builders register with the registry.
	_ "mprcode-go/services/hal/internal/devices/mpradpt"
)

// I2CBusFactory resolves bus ids named in config ("i2c0") to buses.
type I2CBusFactory = halcore.I2CBusFactory

// Options configure Run.
type Options struct {
	// Buses defaults to simulated buses "i2c0" and "i2c1".
	Buses I2CBusFactory
	Log   *logrus.Entry
	// Registerer receives the HAL metrics when non-nil.
	Registerer prometheus.Registerer
}

// Run serves the HAL on conn until ctx ends.
func Run(ctx context.Context, conn *bus.Connection, opts Options) error {
	buses := opts.Buses
	if buses == nil {
		buses = platform.DefaultSimFactory()
	}
	var m *metrics.Metrics
	if opts.Registerer != nil {
		m = metrics.New()
		if err := m.Register(opts.Registerer); err != nil {
			return err
		}
	}
	service.New(conn, buses, service.Options{Log: opts.Log, Metrics: m}).Run(ctx)
	return nil
}

// SimBuses returns simulated buses, each with a mid-scale sensor at 0x18.
func SimBuses() I2CBusFactory { return platform.DefaultSimFactory() }

// SimBus returns a single simulated bus for one-shot reads.
func SimBus() drivers.I2C { return platform.NewSimBus(platform.NewSimSensor(0x18)) }

// OpenBuses opens hardware buses; names maps config ids to host bus names.
// The returned func closes them.
func OpenBuses(names map[string]string) (I2CBusFactory, func() error, error) {
	f, closeFn, err := platform.OpenLinuxI2C(names)
	if err != nil {
		return nil, nil, err
	}
	return f, closeFn, nil
}
