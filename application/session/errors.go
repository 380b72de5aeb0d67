package session

import (
	"errors"
	"fmt"

	"ulogscraper-go/core/state"
)

// ErrLoginTimeout is returned when the dashboard never finishes loading after
// the credentials were submitted.
var ErrLoginTimeout = errors.New("login did not complete in time")

// ElementNotFoundError reports a control that no candidate locator matched.
type ElementNotFoundError struct {
	Control string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s", e.Control)
}

// NavigationError wraps an unexpected failure during a traversal step.
type NavigationError struct {
	Step  state.NavStep
	Cause error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed at %s: %v", e.Step, e.Cause)
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// IsElementNotFound reports whether err is or wraps an ElementNotFoundError.
func IsElementNotFound(err error) bool {
	var nf *ElementNotFoundError
	return errors.As(err, &nf)
}
