package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ulogscraper-go/core/event"
	"ulogscraper-go/core/state"
	"ulogscraper-go/domain/credential"
	"ulogscraper-go/infrastructure/browser"
)

// Login flow and its controls in the locator catalogue.
const (
	FlowLogin            = "login"
	ControlLoginButton   = "login_button"
	ControlEmailField    = "email_field"
	ControlContinue      = "continue_button"
	ControlPasswordField = "password_field"
	ControlSubmit        = "submit_button"
)

// LoginControls lists the controls the login flow requires.
var LoginControls = []string{
	ControlLoginButton,
	ControlEmailField,
	ControlContinue,
	ControlPasswordField,
	ControlSubmit,
}

// Authenticator signs a started session in to the dashboard.
type Authenticator struct {
	session *Session

	// AfterLogin, when set, runs once the dashboard has loaded and before
	// Login returns. Its error is logged and does not fail the login.
	AfterLogin func(ctx context.Context) error
}

// NewAuthenticator creates an authenticator for s.
func NewAuthenticator(s *Session) *Authenticator {
	return &Authenticator{session: s}
}

// Login walks the multi-step sign-in form. Any error is fatal to the run:
// *ElementNotFoundError when a required field is missing, ErrLoginTimeout
// when the dashboard never loads.
func (a *Authenticator) Login(ctx context.Context, creds credential.Credentials) (bool, error) {
	s := a.session
	if err := creds.Validate(); err != nil {
		return false, err
	}
	if st := s.State(); st != state.StateLoggingIn {
		return false, fmt.Errorf("cannot log in from state %s", st)
	}

	s.logger.Info("Starting login process", "user", creds.Username)
	landedURL, err := a.login(ctx, creds)
	if err != nil {
		s.logger.Error("Login failed", "error", err)
		var nf *ElementNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, ErrLoginTimeout) {
			s.Screenshot(ctx, "login_error")
		}
		s.publishEvent(event.NewLoginFailed(s.id, err))
		return false, err
	}

	if err := s.transitionTo(state.StateReady); err != nil {
		return false, err
	}
	s.publishEvent(event.NewLoginSucceeded(s.id, landedURL))
	s.logger.Info("Login successful", "url", landedURL)

	if a.AfterLogin != nil {
		if err := a.AfterLogin(ctx); err != nil {
			s.logger.Warn("Post-login step failed", "error", err)
		}
	}
	return true, nil
}

func (a *Authenticator) login(ctx context.Context, creds credential.Credentials) (string, error) {
	s := a.session
	ctrl := s.browserCtrl
	t := s.timings

	if err := ctrl.Navigate(ctx, s.URL("/login")); err != nil {
		return "", fmt.Errorf("open login page: %w", err)
	}
	if err := ctrl.WaitReady(ctx, t.PageTimeout); err != nil {
		s.logger.Warn("Login page did not report ready", "error", err)
	}
	if err := ctrl.Settle(ctx, t.Settle); err != nil {
		return "", err
	}
	s.Screenshot(ctx, "login_page")

	// Landing page button that reveals the form.
	loginButton, err := s.Control(FlowLogin, ControlLoginButton)
	if err != nil {
		return "", err
	}
	m, err := ctrl.Find(ctx, loginButton)
	if err != nil {
		if IsElementNotFound(err) {
			s.Screenshot(ctx, "no_login_button")
		}
		return "", err
	}
	if err := m.Element.Click(ctx); err != nil {
		return "", fmt.Errorf("click login button: %w", err)
	}
	s.logger.Info("Clicked login button", "locator", m.Candidate.String())
	if err := ctrl.Settle(ctx, t.Settle); err != nil {
		return "", err
	}

	emailControl, err := s.Control(FlowLogin, ControlEmailField)
	if err != nil {
		return "", err
	}
	m, err = ctrl.Find(ctx, emailControl)
	if err != nil {
		if IsElementNotFound(err) {
			s.Screenshot(ctx, "no_email_field")
			a.logInputs(ctx)
		}
		return "", err
	}
	email := m.Element
	if err := ctrl.Type(ctx, email, creds.Username); err != nil {
		return "", fmt.Errorf("enter email: %w", err)
	}
	s.logger.Info("Entered email", "locator", m.Candidate.String())

	continueControl, err := s.Control(FlowLogin, ControlContinue)
	if err != nil {
		return "", err
	}
	if _, err := ctrl.ClickOrSubmit(ctx, continueControl, email); err != nil {
		return "", err
	}

	if err := ctrl.Settle(ctx, t.Form); err != nil {
		return "", err
	}

	passwordControl, err := s.Control(FlowLogin, ControlPasswordField)
	if err != nil {
		return "", err
	}
	if t.PasswordWait > 0 {
		passwordControl.Wait = t.PasswordWait
	}
	m, err = ctrl.Find(ctx, passwordControl)
	if err != nil {
		if IsElementNotFound(err) {
			s.Screenshot(ctx, "password_not_found")
		}
		return "", err
	}
	password := m.Element
	if err := ctrl.Type(ctx, password, creds.Password); err != nil {
		return "", fmt.Errorf("enter password: %w", err)
	}
	s.logger.Info("Entered password", "locator", m.Candidate.String())

	submitControl, err := s.Control(FlowLogin, ControlSubmit)
	if err != nil {
		return "", err
	}
	if _, err := ctrl.ClickOrSubmit(ctx, submitControl, password); err != nil {
		return "", err
	}

	s.logger.Info("Waiting for login to complete", "timeout", t.LoginTimeout)
	landedURL, err := a.waitForDashboard(ctx)
	if err != nil {
		s.Screenshot(ctx, "login_completion_failure")
		return "", err
	}
	s.Screenshot(ctx, "post_login_state")
	return landedURL, nil
}

// waitForDashboard waits until the page is a fully loaded page of the dashboard host.
func (a *Authenticator) waitForDashboard(ctx context.Context) (string, error) {
	s := a.session
	host := s.Host()

	var landedURL string
	err := browser.WaitUntil(ctx, s.timings.LoginTimeout, 0, func(ctx context.Context) (bool, error) {
		u, err := s.driver.CurrentURL(ctx)
		if err != nil {
			return false, err
		}
		if !strings.Contains(u, host) {
			return false, nil
		}
		rs, err := s.driver.ReadyState(ctx)
		if err != nil {
			return false, err
		}
		landedURL = u
		return rs == "complete", nil
	})
	if errors.Is(err, browser.ErrWaitTimeout) {
		return "", ErrLoginTimeout
	}
	if err != nil {
		return "", err
	}
	return landedURL, nil
}

// logInputs logs the attributes of every input on the page.
func (a *Authenticator) logInputs(ctx context.Context) {
	s := a.session
	fields, err := s.browserCtrl.Inputs(ctx)
	if err != nil {
		s.logger.Warn("Failed to list page inputs", "error", err)
		return
	}
	s.logger.Warn("Email field not found, page inputs follow", "count", len(fields))
	for i, f := range fields {
		s.logger.Warn("Page input",
			"index", i,
			"type", f.Type,
			"name", f.Name,
			"id", f.ID,
			"placeholder", f.Placeholder,
		)
	}
}
