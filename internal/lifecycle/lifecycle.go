// Package lifecycle tracks the host application's foreground/background state
// and broadcasts transitions to interested components.
package lifecycle

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
)

// State mirrors the host OS classification of the application.
type State string

const (
	Active     State = "active"
	Background State = "background"
	Inactive   State = "inactive"
)

// ParseState converts a raw state name into a State.
func ParseState(s string) (State, error) {
	switch State(s) {
	case Active, Background, Inactive:
		return State(s), nil
	default:
		return "", fmt.Errorf("unknown app state %q", s)
	}
}

// Foreground reports whether the OS still treats the application as in front
// of the user.
func (s State) Foreground() bool {
	return s == Active || s == Inactive
}

// Monitor holds the current app state and notifies subscribers on change.
// Subscribers run synchronously on the goroutine calling Set, after the new
// state is visible through Current.
type Monitor struct {
	mu      sync.Mutex
	current State
	subs    map[int]func(State)
	nextID  int
	logger  *slog.Logger
}

// NewMonitor creates a Monitor starting in the given state.
func NewMonitor(initial State, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Monitor{
		current: initial,
		subs:    make(map[int]func(State)),
		logger:  logger.With("component", "lifecycle"),
	}
}

// Current returns the state last reported by the OS.
func (m *Monitor) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set records a new state and notifies subscribers. It returns false when the
// state did not change, in which case nobody is notified.
func (m *Monitor) Set(next State) bool {
	m.mu.Lock()
	if next == m.current {
		m.mu.Unlock()
		return false
	}
	prev := m.current
	m.current = next

	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(State), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, m.subs[id])
	}
	m.mu.Unlock()

	m.logger.Info("App state changed", "from", prev, "to", next, "subscribers", len(subs))
	for _, fn := range subs {
		fn(next)
	}
	return true
}

// Subscribe registers fn for future transitions. The returned function removes
// the subscription and is safe to call more than once.
func (m *Monitor) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}
