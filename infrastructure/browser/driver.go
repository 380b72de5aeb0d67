// Package browser provides browser automation infrastructure.
package browser

import (
	"context"
	"errors"
)

// ErrNotRunning is returned by drivers that have not been started or were stopped.
var ErrNotRunning = errors.New("browser not running")

// By selects how a selector string is interpreted.
type By string

const (
	// ByCSS interprets the selector as a CSS selector.
	ByCSS By = "css"
	// ByXPath interprets the selector as an XPath expression.
	ByXPath By = "xpath"
)

// Driver defines the interface for browser automation.
// It mirrors the handful of operations the automation needs so that the
// workflows can run against a fake driver in tests.
type Driver interface {
	// Start initializes the browser instance.
	Start(ctx context.Context) error

	// Stop closes the browser and releases resources.
	Stop() error

	// Detach releases the driver's handle on the browser without closing it.
	// The browser window stays open after the process exits.
	Detach() error

	// IsRunning returns true if the browser is active.
	IsRunning() bool

	// Navigate navigates to the specified URL.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the URL of the current page.
	CurrentURL(ctx context.Context) (string, error)

	// ReadyState returns document.readyState of the current page.
	ReadyState(ctx context.Context) (string, error)

	// FindElements returns every element matching the selector.
	// An empty result is not an error.
	FindElements(ctx context.Context, by By, selector string) ([]Element, error)

	// CaptureScreenshot returns a PNG of the current viewport.
	CaptureScreenshot(ctx context.Context) ([]byte, error)

	// GetCookies retrieves all browser cookies.
	GetCookies(ctx context.Context) ([]Cookie, error)
}

// Element is a handle to a node of the current page.
type Element interface {
	// Click clicks the element.
	Click(ctx context.Context) error

	// Clear empties an input element.
	Clear(ctx context.Context) error

	// SendKeys types text into the element.
	SendKeys(ctx context.Context, text string) error

	// Submit sends a return keystroke to the element.
	Submit(ctx context.Context) error

	// IsDisplayed reports whether the element is rendered with a non-empty box.
	IsDisplayed(ctx context.Context) (bool, error)

	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)

	// Attribute returns the value of an attribute, or "" when absent.
	Attribute(ctx context.Context, name string) (string, error)

	// FindElements returns descendants matching the selector.
	FindElements(ctx context.Context, by By, selector string) ([]Element, error)
}

// Cookie represents a browser cookie.
type Cookie struct {
	Name         string
	Value        string
	Domain       string
	Path         string
	HTTPOnly     bool
	Secure       bool
	SourcePort   int
	SourceScheme string
	Priority     string
}

// CookieMap flattens cookies into a name to value mapping.
// Later cookies with the same name win.
func CookieMap(cookies []Cookie) map[string]string {
	m := make(map[string]string, len(cookies))
	for _, c := range cookies {
		m[c.Name] = c.Value
	}
	return m
}

// DriverConfig holds configuration for browser drivers.
type DriverConfig struct {
	// Headless runs the browser without a visible window.
	Headless bool

	// WindowWidth is the browser window width.
	WindowWidth int

	// WindowHeight is the browser window height.
	WindowHeight int

	// DisableGPU disables GPU acceleration.
	DisableGPU bool

	// UserDataDir specifies a custom user data directory.
	UserDataDir string

	// DownloadDir is where files downloaded by clicking in the page land.
	// Empty leaves the browser default.
	DownloadDir string

	// KeepAlive launches the browser so that it survives the process when detached.
	KeepAlive bool
}

// DefaultDriverConfig returns default browser configuration.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		Headless:     true,
		WindowWidth:  1440,
		WindowHeight: 900,
		DisableGPU:   true,
	}
}
