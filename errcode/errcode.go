package errcode

import (
	"context"
	"errors"

	"mprcode-go/drivers/mpr"
)

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK                Code = "ok"
	Busy              Code = "busy"
	Unsupported       Code = "unsupported"
	InvalidParams     Code = "invalid_params"
	InvalidPayload    Code = "invalid_payload"
	UnknownCapability Code = "unknown_capability"
	HALNotReady       Code = "hal_not_ready"
	InvalidTopic      Code = "invalid_topic"

	UnknownBus Code = "unknown_bus"
	Timeout    Code = "timeout"

	// Sensor status and transport.
	IOError          Code = "io_error"
	IntegrityFailure Code = "integrity_failure"
	MathSaturation   Code = "math_saturation"

	Error Code = "error" // generic fallback
)

// E wraps a cause with a code and context.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps low-level driver errors to a Code.
func MapDriverErr(err error) Code {
	var be *mpr.BusError
	switch {
	case err == nil:
		return OK
	case errors.Is(err, mpr.ErrBusy):
		return Busy
	case errors.Is(err, mpr.ErrIntegrity):
		return IntegrityFailure
	case errors.Is(err, mpr.ErrSaturation):
		return MathSaturation
	case errors.Is(err, mpr.ErrUnknownUnit), errors.Is(err, mpr.ErrInvalidAddress):
		return InvalidParams
	case errors.As(err, &be):
		return IOError
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	}
	return Of(err)
}
