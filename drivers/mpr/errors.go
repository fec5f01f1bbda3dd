package mpr

import (
	"errors"
	"strconv"
)

// Errors returned by the driver.
var (
	ErrBusy           = errors.New("mpr: busy")
	ErrIntegrity      = errors.New("mpr: memory integrity failure")
	ErrSaturation     = errors.New("mpr: math saturation")
	ErrUnknownUnit    = errors.New("mpr: unknown pressure unit")
	ErrInvalidAddress = errors.New("mpr: invalid address")
)

// BusError reports a failed transfer on the underlying I²C bus. Err is the
// transport's own error.
type BusError struct {
	Op   string // "write" or "read"
	Addr Address
	Err  error
}

func (e *BusError) Error() string {
	return "mpr: i2c " + e.Op + " 0x" + strconv.FormatUint(uint64(e.Addr), 16) + ": " + e.Err.Error()
}

func (e *BusError) Unwrap() error { return e.Err }
