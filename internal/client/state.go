package client

import (
	"sync"
	"time"
)

// State is one point in the connection lifecycle (§4.E).
type State int

const (
	Unauthorized State = iota
	Unclaimed
	Established
	Disconnected
	Terminating
)

func (s State) String() string {
	switch s {
	case Unauthorized:
		return "unauthorized"
	case Unclaimed:
		return "unclaimed"
	case Established:
		return "established"
	case Disconnected:
		return "disconnected"
	case Terminating:
		return "terminating"
	default:
		return "unknown"
	}
}

// IdleTimeout is how long a client may remain in Unauthorized, Unclaimed,
// or Disconnected before it is moved to Terminating.
const IdleTimeout = 90 * time.Second

// stateMachine guards State transitions and the time the current state was
// entered, so an idle sweeper can find expired states without touching any
// other client-owned data.
type stateMachine struct {
	mu       sync.Mutex
	state    State
	enteredAt time.Time
}

func newStateMachine(initial State) *stateMachine {
	return &stateMachine{state: initial, enteredAt: time.Now()}
}

func (s *stateMachine) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transitionLegal reports whether moving from cur to next is ever permitted
// by the diagram in §4.E, independent of any particular packet's content.
func transitionLegal(cur, next State) bool {
	switch cur {
	case Unauthorized:
		return next == Unclaimed || next == Terminating
	case Unclaimed:
		return next == Established || next == Terminating
	case Established:
		return next == Disconnected || next == Terminating
	case Disconnected:
		return next == Unclaimed || next == Established || next == Terminating
	case Terminating:
		return false
	default:
		return false
	}
}

// Set moves to next if the transition is legal, reporting whether it took
// effect.
func (s *stateMachine) Set(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !transitionLegal(s.state, next) {
		return false
	}
	s.state = next
	s.enteredAt = time.Now()
	return true
}

// Expired reports whether the current state has been held longer than
// IdleTimeout. Established is never subject to the idle timeout.
func (s *stateMachine) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Established || s.state == Terminating {
		return false
	}
	return now.Sub(s.enteredAt) > IdleTimeout
}
