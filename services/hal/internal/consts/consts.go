// services/hal/internal/consts/consts.go
package consts

// Top-level topics
const (
	TokConfig     = "config"
	TokHAL        = "hal"
	TokCapability = "capability"
	TokInfo       = "info"
	TokState      = "state"
	TokValue      = "value"
	TokControl    = "control"
)

// Control verbs
const (
	CtrlReadNow = "read_now"
	CtrlSetRate = "set_rate"
	CtrlSetUnit = "set_unit"
)

// Capability kinds used in service wiring
const (
	KindPressure = "pressure"
)

// HAL levels published on hal/state.
const (
	LevelIdle    = "idle"
	LevelReady   = "ready"
	LevelError   = "error"
	LevelStopped = "stopped"
)
