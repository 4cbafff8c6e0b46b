// Package network brings the dashboard online: it associates the WiFi link,
// checks connectivity, and establishes wall-clock time before any polling.
package network

// State is the bootstrapper's position in the bring-up sequence.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	TimeUnknown
	TimeValid
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case TimeUnknown:
		return "time-unknown"
	case TimeValid:
		return "time-valid"
	default:
		return "unknown"
	}
}

// Online reports whether the link is up.
func (s State) Online() bool {
	return s >= Connected
}
