// services/hal/internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics counts measurement outcomes per device and keeps the last reading.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	measurements *prometheus.CounterVec
	errors       *prometheus.CounterVec
	pressure     *prometheus.GaugeVec
}

func New() *Metrics {
	return &Metrics{
		measurements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mprcode_measurements_total",
				Help: "Completed measurement cycles by device and result.",
			},
			[]string{"device", "result"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mprcode_measurement_errors_total",
				Help: "Failed measurement cycles by device and error code.",
			},
			[]string{"device", "code"},
		),
		pressure: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mprcode_pressure_pascals",
				Help: "Last pressure reading in pascals.",
			},
			[]string{"device"},
		),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.measurements, m.errors, m.pressure} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveOK(device string, pa int32) {
	if m == nil {
		return
	}
	m.measurements.WithLabelValues(device, ResultOK).Inc()
	m.pressure.WithLabelValues(device).Set(float64(pa))
}

func (m *Metrics) ObserveError(device, code string) {
	if m == nil {
		return
	}
	m.measurements.WithLabelValues(device, ResultError).Inc()
	m.errors.WithLabelValues(device, code).Inc()
}

// Forget drops the pressure gauge of a removed device. Counters are kept.
func (m *Metrics) Forget(device string) {
	if m == nil {
		return
	}
	m.pressure.DeleteLabelValues(device)
}
