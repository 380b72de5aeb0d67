// Package state defines the session state machine and the navigation
// progress of a single vehicle.
package state

import "fmt"

// SessionState represents the state of a session.
type SessionState int

const (
	// StateIdle is the initial state before the session starts.
	StateIdle SessionState = iota
	// StateStarting indicates the browser is being initialized.
	StateStarting
	// StateLoggingIn indicates the login process is in progress.
	StateLoggingIn
	// StateReady indicates the session is authenticated and idle.
	StateReady
	// StateNavigating indicates a page traversal is in progress.
	StateNavigating
	// StateStopping indicates the session is shutting down.
	StateStopping
	// StateStopped indicates the browser has been closed.
	StateStopped
	// StateDetached indicates the session let go of a browser that stays open.
	StateDetached
)

// String returns the string representation of the state.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateLoggingIn:
		return "LoggingIn"
	case StateReady:
		return "Ready"
	case StateNavigating:
		return "Navigating"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateDetached:
		return "Detached"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// validTransitions defines the allowed state transitions.
// Key is the current state, value is a list of valid target states.
var validTransitions = map[SessionState][]SessionState{
	StateIdle:       {StateStarting},
	StateStarting:   {StateLoggingIn, StateStopping, StateStopped},
	StateLoggingIn:  {StateReady, StateNavigating, StateStopping, StateStopped, StateDetached},
	StateReady:      {StateNavigating, StateStopping, StateDetached},
	StateNavigating: {StateReady, StateStopping, StateDetached},
	StateStopping:   {StateStopped},
	StateStopped:    {}, // Terminal state, no transitions allowed
	StateDetached:   {},
}

// CanTransitionTo checks if transitioning from the current state to the target state is valid.
func (s SessionState) CanTransitionTo(target SessionState) bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// ValidTransitions returns the list of valid target states from the current state.
func (s SessionState) ValidTransitions() []SessionState {
	return validTransitions[s]
}

// IsTerminal returns true if the state is a terminal state (no further transitions).
func (s SessionState) IsTerminal() bool {
	return s == StateStopped || s == StateDetached
}

// IsActive returns true if the session holds a live browser.
func (s SessionState) IsActive() bool {
	return s != StateIdle && !s.IsTerminal()
}

// CanAcceptOperations returns true if the browser can be driven.
// This includes LoggingIn so that screenshots can be taken during login.
func (s SessionState) CanAcceptOperations() bool {
	return s == StateLoggingIn || s == StateReady || s == StateNavigating
}

// CanNavigate returns true if a traversal can begin in this state.
func (s SessionState) CanNavigate() bool {
	return s == StateReady || s == StateLoggingIn
}

// TransitionError represents an invalid state transition attempt.
type TransitionError struct {
	From   SessionState
	To     SessionState
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid state transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// NewTransitionError creates a new TransitionError.
func NewTransitionError(from, to SessionState, reason string) *TransitionError {
	return &TransitionError{From: from, To: to, Reason: reason}
}
