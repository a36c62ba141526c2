package bus

import "fmt"

// Mode decides when a subscription receives a message of its category.
// The zero value is not a valid mode.
type Mode int

const (
	// ModeTargeted delivers messages that have no target or target this subscriber.
	ModeTargeted Mode = iota + 1
	// ModeAny delivers every message regardless of target.
	ModeAny
)

func (m Mode) Valid() bool {
	return m == ModeTargeted || m == ModeAny
}

func (m Mode) String() string {
	switch m {
	case ModeTargeted:
		return "targeted"
	case ModeAny:
		return "any"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is the dispatcher lifecycle.
type State int32

const (
	// StateRunning routes messages normally.
	StateRunning State = iota
	// StateDraining follows a terminate message: subscribers have been told
	// to shut down and the bus waits for every list to empty.
	StateDraining
	// StateStopped means the dispatcher goroutine has exited.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
