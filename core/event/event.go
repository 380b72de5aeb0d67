// Package event defines the events published while a run progresses.
// Events are consumed by the run recorder and by log subscribers.
package event

import "ulogscraper-go/core/state"

// Event is the base interface for all events.
type Event interface {
	// EventName returns the name of the event for logging/debugging
	EventName() string
}

// SessionEvent is an event that originates from a specific session.
type SessionEvent interface {
	Event
	// SessionID returns the source session ID
	SessionID() string
}

// baseSessionEvent provides common implementation for session events.
type baseSessionEvent struct {
	sessionID string
}

func (e *baseSessionEvent) SessionID() string {
	return e.sessionID
}

// SessionStateChanged is published when a session's state changes.
type SessionStateChanged struct {
	baseSessionEvent
	OldState state.SessionState
	NewState state.SessionState
}

func NewSessionStateChanged(sessionID string, oldState, newState state.SessionState) *SessionStateChanged {
	return &SessionStateChanged{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		OldState:         oldState,
		NewState:         newState,
	}
}

func (e *SessionStateChanged) EventName() string {
	return "SessionStateChanged"
}

// SessionClosed is published when a session ends, either by closing the
// browser or by detaching from it.
type SessionClosed struct {
	baseSessionEvent
	Detached bool
	URL      string
}

func NewSessionClosed(sessionID string, detached bool, url string) *SessionClosed {
	return &SessionClosed{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Detached:         detached,
		URL:              url,
	}
}

func (e *SessionClosed) EventName() string {
	return "SessionClosed"
}

// ScreenshotSaved is published when a checkpoint screenshot is written.
type ScreenshotSaved struct {
	baseSessionEvent
	Name string
	Path string
}

func NewScreenshotSaved(sessionID, name, path string) *ScreenshotSaved {
	return &ScreenshotSaved{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Name:             name,
		Path:             path,
	}
}

func (e *ScreenshotSaved) EventName() string {
	return "ScreenshotSaved"
}

// LoginSucceeded is published when login completes successfully.
type LoginSucceeded struct {
	baseSessionEvent
	URL string
}

func NewLoginSucceeded(sessionID, url string) *LoginSucceeded {
	return &LoginSucceeded{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		URL:              url,
	}
}

func (e *LoginSucceeded) EventName() string {
	return "LoginSucceeded"
}

// LoginFailed is published when login fails.
type LoginFailed struct {
	baseSessionEvent
	Error error
}

func NewLoginFailed(sessionID string, err error) *LoginFailed {
	return &LoginFailed{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Error:            err,
	}
}

func (e *LoginFailed) EventName() string {
	return "LoginFailed"
}
