package types

import "time"

// ---- Common HAL state (retained) ----

type HALState struct {
	Level  string    `json:"level"`  // "idle", "ready", "error", "stopped"
	Status string    `json:"status"` // short code
	Error  string    `json:"error,omitempty"`
	TS     time.Time `json:"ts"`
}

// Link is the link/state reported for a capability.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type CapabilityState struct {
	Link  Link      `json:"link"`
	TS    time.Time `json:"ts"`
	Error string    `json:"error,omitempty"` // errcode.Code
}

// ---- Capability info ----

// Info envelope each capability exposes (retained).
type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"`
	Detail        any    `json:"detail,omitempty"`
}

// ---- Generic replies ----

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- Scheduling controls (any capability) ----

// ReadNowAck answers "read_now".
type ReadNowAck struct {
	OK bool `json:"ok"`
}

// SetRate is the "set_rate" payload.
type SetRate struct {
	Period time.Duration `json:"period"`
}

type SetRateAck struct {
	OK     bool          `json:"ok"`
	Period time.Duration `json:"period"`
}
