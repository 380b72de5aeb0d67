package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ulogscraper-go/domain/locator"
	"ulogscraper-go/infrastructure/browser"
)

// BrowserController handles browser operations for a session.
type BrowserController struct {
	driver browser.Driver
	logger *slog.Logger
}

// NewBrowserController creates a new browser controller.
func NewBrowserController(driver browser.Driver, logger *slog.Logger) *BrowserController {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserController{
		driver: driver,
		logger: logger,
	}
}

// Navigate navigates to the specified URL.
func (c *BrowserController) Navigate(ctx context.Context, url string) error {
	if !c.driver.IsRunning() {
		return browser.ErrNotRunning
	}
	c.logger.Debug("Navigating", "url", url)
	return c.driver.Navigate(ctx, url)
}

// CurrentURL returns the URL of the current page.
func (c *BrowserController) CurrentURL(ctx context.Context) (string, error) {
	if !c.driver.IsRunning() {
		return "", browser.ErrNotRunning
	}
	return c.driver.CurrentURL(ctx)
}

// WaitReady waits for the current document to finish loading.
func (c *BrowserController) WaitReady(ctx context.Context, timeout time.Duration) error {
	if !c.driver.IsRunning() {
		return browser.ErrNotRunning
	}
	if err := browser.WaitUntil(ctx, timeout, 0, browser.PageReady(c.driver)); err != nil {
		return fmt.Errorf("page not ready after %s: %w", timeout, err)
	}
	return nil
}

// Settle pauses for d, returning early only when ctx is done.
func (c *BrowserController) Settle(ctx context.Context, d time.Duration) error {
	return browser.Sleep(ctx, d)
}

// Find resolves a control on the current page.
func (c *BrowserController) Find(ctx context.Context, control locator.Control) (*Match, error) {
	if !c.driver.IsRunning() {
		return nil, browser.ErrNotRunning
	}
	return FirstMatch(ctx, c.driver, control, c.logger)
}

// Type clears the element and types text into it.
func (c *BrowserController) Type(ctx context.Context, el browser.Element, text string) error {
	if err := el.Clear(ctx); err != nil {
		return fmt.Errorf("clear field: %w", err)
	}
	if err := el.SendKeys(ctx, text); err != nil {
		return fmt.Errorf("type into field: %w", err)
	}
	return nil
}

// ClickOrSubmit clicks the control when it is present on the page and
// otherwise sends a return keystroke to fallback.
// It reports whether the control was clicked.
func (c *BrowserController) ClickOrSubmit(ctx context.Context, control locator.Control, fallback browser.Element) (bool, error) {
	m, err := c.Find(ctx, control)
	if err == nil {
		if err := m.Element.Click(ctx); err != nil {
			return false, fmt.Errorf("click %s: %w", control.DisplayName(), err)
		}
		c.logger.Info("Clicked control", "control", control.DisplayName())
		return true, nil
	}
	if !IsElementNotFound(err) {
		return false, err
	}

	c.logger.Warn("Control not found, submitting with Enter key", "control", control.DisplayName())
	if err := fallback.Submit(ctx); err != nil {
		return false, fmt.Errorf("submit with Enter key: %w", err)
	}
	return false, nil
}

// InputField summarises an <input> element for diagnostics.
type InputField struct {
	Type        string
	Name        string
	ID          string
	Placeholder string
}

// Inputs lists the input elements of the current page.
func (c *BrowserController) Inputs(ctx context.Context) ([]InputField, error) {
	if !c.driver.IsRunning() {
		return nil, browser.ErrNotRunning
	}
	elements, err := c.driver.FindElements(ctx, browser.ByCSS, "input")
	if err != nil {
		return nil, err
	}

	fields := make([]InputField, 0, len(elements))
	for _, el := range elements {
		attr := func(name string) string {
			v, _ := el.Attribute(ctx, name)
			return v
		}
		fields = append(fields, InputField{
			Type:        attr("type"),
			Name:        attr("name"),
			ID:          attr("id"),
			Placeholder: attr("placeholder"),
		})
	}
	return fields, nil
}

// GetCookies retrieves all browser cookies.
func (c *BrowserController) GetCookies(ctx context.Context) ([]browser.Cookie, error) {
	if !c.driver.IsRunning() {
		return nil, browser.ErrNotRunning
	}
	return c.driver.GetCookies(ctx)
}

// IsRunning returns true if the browser is active.
func (c *BrowserController) IsRunning() bool {
	return c.driver.IsRunning()
}
