package core

import (
	"errors"
	"sync"
	"time"
)

// AgentState represents the lifecycle state of the agent.
// The intended transitions:
//
// inactive -> starting
// starting -> active | error | inactive
// active   -> stopping | error
// stopping -> inactive | error
// error    -> inactive | starting
//
// Transitions outside this set are rejected by SetAgentState.
type AgentState string

const (
	StateInactive AgentState = "inactive"
	StateStarting AgentState = "starting"
	StateActive   AgentState = "active"
	StateStopping AgentState = "stopping"
	StateError    AgentState = "error"
)

// Totals counts recorded probes per outcome.
type Totals struct {
	Reachable   int64
	Suspect     int64
	Unreachable int64
}

// Snapshot is a threadsafe read model returned to the API layer.
// Nested slices and maps are copies; callers may retain it without locking.
type Snapshot struct {
	AgentState AgentState
	StartedAt  time.Time
	Warnings   []string
	Totals     Totals
	LastProbe  *ProbeResult // nil until the first probe is recorded
}

// State holds mutable agent state with synchronization.
// Use the provided methods to mutate; callers should never take the lock directly.
type State struct {
	mu        sync.RWMutex
	agent     AgentState
	startedAt time.Time
	warnings  []string
	totals    Totals
	lastProbe *ProbeResult
}

// NewState constructs a default-inactive state.
func NewState() *State {
	return &State{agent: StateInactive}
}

// GetSnapshot returns a deep copy safe for concurrent reads.
func (s *State) GetSnapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		AgentState: s.agent,
		StartedAt:  s.startedAt,
		Warnings:   append([]string(nil), s.warnings...),
		Totals:     s.totals,
	}
	if s.lastProbe != nil {
		p := s.lastProbe.Clone()
		snap.LastProbe = &p
	}
	return snap
}

// Uptime returns the wall-clock duration since the agent entered Active state.
// Returns zero if never started or after returning to Inactive.
func (s *State) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// AppendWarning adds a non-fatal warning to the state.
func (s *State) AppendWarning(msg string) {
	if msg == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, msg)
}

// RecordProbe stores p as the last probe and bumps the matching total.
// p is copied.
func (s *State) RecordProbe(p ProbeResult) {
	cp := p.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastProbe = &cp
	switch p.Outcome {
	case OutcomeReachable:
		s.totals.Reachable++
	case OutcomeSuspect:
		s.totals.Suspect++
	case OutcomeUnreachable:
		s.totals.Unreachable++
	}
}

// ErrInvalidTransition is returned when SetAgentState receives an illegal transition.
var ErrInvalidTransition = errors.New("invalid agent state transition")

// SetAgentState transitions the agent to next. Entering Active sets
// startedAt if unset; entering Inactive clears it.
//
// Returns ErrInvalidTransition if the (current -> next) edge is not allowed.
func (s *State) SetAgentState(next AgentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.agent
	if cur == next {
		return nil
	}
	if !allowedTransition(cur, next) {
		return ErrInvalidTransition
	}

	switch next {
	case StateActive:
		if s.startedAt.IsZero() {
			s.startedAt = time.Now()
		}
	case StateInactive:
		s.startedAt = time.Time{}
	}
	s.agent = next
	return nil
}

func allowedTransition(cur, next AgentState) bool {
	switch cur {
	case StateInactive:
		return next == StateStarting
	case StateStarting:
		return next == StateActive || next == StateError || next == StateInactive
	case StateActive:
		return next == StateStopping || next == StateError
	case StateStopping:
		return next == StateInactive || next == StateError
	case StateError:
		return next == StateInactive || next == StateStarting
	default:
		return false
	}
}

// Reset clears warnings, totals and the last probe. If clearLifecycle is
// true, the agent also returns to Inactive with a zero StartedAt.
func (s *State) Reset(clearLifecycle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if clearLifecycle {
		s.agent = StateInactive
		s.startedAt = time.Time{}
	}
	s.warnings = nil
	s.totals = Totals{}
	s.lastProbe = nil
}
