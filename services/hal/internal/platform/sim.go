// services/hal/internal/platform/sim.go
package platform

import (
	"errors"
	"sync"
	"time"
)

// ErrNack is returned for transfers to an address with no simulated device.
var ErrNack = errors.New("i2c: nack")

const (
	simStatusPowered = 0x40
	simStatusBusy    = 0x20
)

// SimSensor emulates an MPR sensor at the byte level: a 0xAA write starts a
// conversion that stays busy for ConvTime, and a 4-byte read returns the
// status byte followed by the 24-bit count.
type SimSensor struct {
	mu       sync.Mutex
	addr     uint16
	raw      uint32
	status   byte // extra status bits OR'ed into every response
	convTime time.Duration
	readyAt  time.Time
	latched  uint32
	triggers int
}

// NewSimSensor returns a sensor reading mid-scale (12.5 psi).
func NewSimSensor(addr uint16) *SimSensor {
	return &SimSensor{addr: addr, raw: 0x800000, convTime: 5 * time.Millisecond}
}

// SetRaw sets the count latched by the next conversion.
func (s *SimSensor) SetRaw(raw uint32) {
	s.mu.Lock()
	s.raw = raw & 0xFFFFFF
	s.mu.Unlock()
}

// SetStatus forces status bits (e.g. 0x04 integrity, 0x01 saturation).
func (s *SimSensor) SetStatus(bits byte) {
	s.mu.Lock()
	s.status = bits
	s.mu.Unlock()
}

// SetConvTime changes how long a conversion keeps the busy bit set.
func (s *SimSensor) SetConvTime(d time.Duration) {
	s.mu.Lock()
	s.convTime = d
	s.mu.Unlock()
}

// Triggers reports how many measurement commands were received.
func (s *SimSensor) Triggers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggers
}

func (s *SimSensor) write(w []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(w) == 3 && w[0] == 0xAA {
		s.triggers++
		s.readyAt = time.Now().Add(s.convTime)
		s.latched = s.raw
	}
	return nil
}

func (s *SimSensor) read(r []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := byte(simStatusPowered) | s.status
	if time.Now().Before(s.readyAt) {
		st |= simStatusBusy
	}
	resp := [4]byte{st, byte(s.latched >> 16), byte(s.latched >> 8), byte(s.latched)}
	copy(r, resp[:])
}

// SimBus is a host-side drivers.I2C with attached simulated sensors.
type SimBus struct {
	mu      sync.Mutex
	devices map[uint16]*SimSensor
	failTx  error
}

func NewSimBus(sensors ...*SimSensor) *SimBus {
	b := &SimBus{devices: map[uint16]*SimSensor{}}
	for _, s := range sensors {
		b.devices[s.addr] = s
	}
	return b
}

// Sensor returns the simulated sensor at addr.
func (b *SimBus) Sensor(addr uint16) (*SimSensor, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.devices[addr]
	return s, ok
}

// FailWith makes every transfer fail with err until cleared with nil.
func (b *SimBus) FailWith(err error) {
	b.mu.Lock()
	b.failTx = err
	b.mu.Unlock()
}

func (b *SimBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	s, ok := b.devices[addr]
	fail := b.failTx
	b.mu.Unlock()
	if fail != nil {
		return fail
	}
	if !ok {
		return ErrNack
	}
	if len(w) > 0 {
		if err := s.write(w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		s.read(r)
	}
	return nil
}
