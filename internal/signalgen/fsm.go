package signalgen

// State is the generator's explicit mode. The whole anti-flapping design
// lives in the transition table over these states; scattered boolean flags
// are exactly what this enum replaces.
type State string

const (
	// StateIdle: no qualifying agreement observed.
	StateIdle State = "idle"

	// StateArmed: agreement observed, debounce window counting.
	StateArmed State = "armed"

	// StateActive: signal emitted, position assumed open downstream.
	StateActive State = "active"

	// StateCooldown: close emitted; re-arming suppressed for a fixed number
	// of evaluations to prevent immediate re-entry on whipsaw.
	StateCooldown State = "cooldown"
)
