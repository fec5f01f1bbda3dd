// Package mpr provides a driver for the Honeywell MPR series of digital
// pressure sensors on an I²C bus.
//
// A measurement is split-phase:
//
//	d.StartMeasurement()         // write the trigger command
//	d.Settle()                   // wait SettleTime for the conversion
//	p, err := d.ReadPressure(u)  // read status + 24-bit count, convert
//
// GetPressure performs all three steps. StartMeasurement and ReadSample are
// exposed so a caller that owns the bus can schedule other traffic during
// the settle window instead of blocking.
//
// The Device is not safe for concurrent use; one transaction must complete
// before the next is started.
package mpr

import (
	"time"

	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// Address is one of the eight factory I²C addresses.
type Address uint16

const (
	AddressStandard Address = 0x18
	AddressAlt1     Address = 0x08
	AddressAlt2     Address = 0x28
	AddressAlt3     Address = 0x38
	AddressAlt4     Address = 0x48
	AddressAlt5     Address = 0x58
	AddressAlt6     Address = 0x68
	AddressAlt7     Address = 0x78
)

var addresses = [...]Address{
	AddressStandard,
	AddressAlt1, AddressAlt2, AddressAlt3, AddressAlt4,
	AddressAlt5, AddressAlt6, AddressAlt7,
}

// Valid reports whether a is one of the factory addresses.
func (a Address) Valid() bool {
	for _, v := range addresses {
		if a == v {
			return true
		}
	}
	return false
}

// ParseAddress converts a raw 7-bit address, rejecting anything the part
// cannot be ordered with. Zero selects AddressStandard.
func ParseAddress(v uint16) (Address, error) {
	if v == 0 {
		return AddressStandard, nil
	}
	a := Address(v)
	if !a.Valid() {
		return 0, ErrInvalidAddress
	}
	return a, nil
}

// Protocol constants.
const (
	cmdMeasure = 0xAA

	// SettleTime is the conversion time between trigger and read.
	SettleTime = 20 * time.Millisecond
)

// Calibration (transfer function A: 10% to 90% of 2^24 counts, 0..25 psi).
const (
	OutputMin  = 0x19999A
	OutputMax  = 0xE66666
	MinimumPSI = float32(0.0)
	MaximumPSI = float32(25.0)
)

// Delayer suspends the caller for a duration.
type Delayer interface {
	Sleep(d time.Duration)
}

// DelayFunc adapts a plain function to Delayer.
type DelayFunc func(d time.Duration)

func (f DelayFunc) Sleep(d time.Duration) { f(d) }

// SystemDelay sleeps using time.Sleep.
var SystemDelay Delayer = DelayFunc(time.Sleep)

// Sample is one validated raw reading.
type Sample struct {
	Status byte
	Raw    uint32 // 24-bit count
}

// PSI converts the raw count with the factory transfer function.
func (s Sample) PSI() float32 { return RawToPSI(s.Raw) }

// Pressure returns the reading as a physic.Pressure.
func (s Sample) Pressure() physic.Pressure { return PSIToPhysic(s.PSI()) }

// Device wraps an I2C connection to an MPR sensor.
type Device struct {
	bus   drivers.I2C
	addr  Address
	delay Delayer

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [4]byte
}

// New creates a Device. It does not touch the bus. A nil delay uses
// SystemDelay.
func New(bus drivers.I2C, addr Address, delay Delayer) *Device {
	if delay == nil {
		delay = SystemDelay
	}
	return &Device{
		bus:   bus,
		addr:  addr,
		delay: delay,
	}
}

// Address returns the configured bus address.
func (d *Device) Address() Address { return d.addr }

// StartMeasurement writes the measurement trigger command.
func (d *Device) StartMeasurement() error {
	d.w = [3]byte{cmdMeasure, 0x00, 0x00}
	if err := d.bus.Tx(uint16(d.addr), d.w[:], nil); err != nil {
		return &BusError{Op: "write", Addr: d.addr, Err: err}
	}
	return nil
}

// Settle blocks for SettleTime using the configured Delayer.
func (d *Device) Settle() { d.delay.Sleep(SettleTime) }

// ReadSample reads the status byte and the 24-bit count, and validates the
// status. The count is only assembled when the status is clean.
func (d *Device) ReadSample() (Sample, error) {
	d.r = [4]byte{}
	if err := d.bus.Tx(uint16(d.addr), nil, d.r[:]); err != nil {
		return Sample{}, &BusError{Op: "read", Addr: d.addr, Err: err}
	}
	if err := CheckStatus(d.r[0]); err != nil {
		return Sample{Status: d.r[0]}, err
	}
	raw := uint32(d.r[1])<<16 | uint32(d.r[2])<<8 | uint32(d.r[3])
	return Sample{Status: d.r[0], Raw: raw}, nil
}

// ReadPressure reads a completed measurement and converts it to unit u.
func (d *Device) ReadPressure(u Unit) (float32, error) {
	if !u.Valid() {
		return 0, ErrUnknownUnit
	}
	s, err := d.ReadSample()
	if err != nil {
		return 0, err
	}
	return Convert(s.Raw, u), nil
}

// GetPressure runs a full trigger, settle and read cycle.
func (d *Device) GetPressure(u Unit) (float32, error) {
	if !u.Valid() {
		return 0, ErrUnknownUnit
	}
	if err := d.StartMeasurement(); err != nil {
		return 0, err
	}
	d.Settle()
	return d.ReadPressure(u)
}

// ReadPhysic runs a full cycle and returns the pressure as physic.Pressure.
func (d *Device) ReadPhysic() (physic.Pressure, error) {
	if err := d.StartMeasurement(); err != nil {
		return 0, err
	}
	d.Settle()
	s, err := d.ReadSample()
	if err != nil {
		return 0, err
	}
	return s.Pressure(), nil
}
