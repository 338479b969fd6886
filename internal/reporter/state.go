package reporter

import (
	"fmt"
	"slices"
)

// RunState is the scheduler's own lifecycle.
type RunState int

const (
	Stopped RunState = iota
	Starting
	Running
	Backgrounded
)

func (s RunState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Backgrounded:
		return "backgrounded"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// MarshalText renders the state by name.
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsRunning reports whether the background task is registered or about to be.
func (s RunState) IsRunning() bool {
	return s == Running || s == Backgrounded
}

var transitions = map[RunState][]RunState{
	Stopped:      {Starting},
	Starting:     {Running, Backgrounded, Stopped},
	Running:      {Backgrounded, Stopped},
	Backgrounded: {Running, Stopped},
}

func checkTransition(from, to RunState) error {
	if slices.Contains(transitions[from], to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}
