package browser

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// findTimeout bounds a single element query when the caller set no deadline.
const findTimeout = 10 * time.Second

const (
	jsVisible = `function() {
		return !!(this.offsetWidth || this.offsetHeight || this.getClientRects().length);
	}`
	jsText  = `function() { return this.innerText || this.textContent || ""; }`
	jsClear = `function() {
		this.value = "";
		this.dispatchEvent(new Event("input", { bubbles: true }));
	}`
	jsClick = `function() { this.click(); }`
)

// ChromeDPDriver implements Driver using chromedp.
type ChromeDPDriver struct {
	config      *DriverConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	running     bool
}

// NewChromeDPDriver creates a new ChromeDP-based browser driver.
func NewChromeDPDriver(config *DriverConfig) *ChromeDPDriver {
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &ChromeDPDriver{
		config: config,
	}
}

// buildExecAllocatorOptions builds chromedp options from config.
func (d *ChromeDPDriver) buildExecAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.config.Headless),
		chromedp.Flag("disable-gpu", d.config.DisableGPU),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(d.config.WindowWidth, d.config.WindowHeight),
	)

	if d.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(d.config.UserDataDir))
	}

	if d.config.KeepAlive {
		// Drop the parent-death signal so a detached browser outlives us.
		opts = append(opts, chromedp.ModifyCmdFunc(func(cmd *exec.Cmd) {
			cmd.SysProcAttr = nil
		}))
	}

	return opts
}

// Start initializes the browser instance.
func (d *ChromeDPDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}

	// Browser lifecycle is independent of the caller's context.
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(
		context.Background(),
		d.buildExecAllocatorOptions()...,
	)
	d.ctx, d.cancel = chromedp.NewContext(d.allocCtx)

	// Run once so the browser process and first tab exist before use.
	actions := []chromedp.Action{chromedp.ActionFunc(func(context.Context) error { return nil })}
	if d.config.DownloadDir != "" {
		actions = append(actions, cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(d.config.DownloadDir).
			WithEventsEnabled(true))
	}
	if err := chromedp.Run(d.ctx, actions...); err != nil {
		d.cleanup()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	d.running = true
	return nil
}

// Stop closes the browser and releases resources.
func (d *ChromeDPDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.cleanup()
	return nil
}

// Detach forgets the browser without cancelling its contexts, leaving it open.
func (d *ChromeDPDriver) Detach() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.running = false
	d.ctx = nil
	d.cancel = nil
	d.allocCtx = nil
	d.allocCancel = nil
	return nil
}

func (d *ChromeDPDriver) cleanup() {
	d.running = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
	}
	d.ctx = nil
	d.allocCtx = nil
}

// IsRunning returns true if the browser is active.
func (d *ChromeDPDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// run executes actions on the browser context, honouring the caller's
// deadline and cancellation.
func (d *ChromeDPDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	browserCtx := d.ctx
	running := d.running
	d.mu.Unlock()

	if !running || browserCtx == nil {
		return ErrNotRunning
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var execCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		execCtx, cancel = context.WithDeadline(browserCtx, deadline)
	} else {
		execCtx, cancel = context.WithCancel(browserCtx)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(execCtx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Navigate navigates to the specified URL.
func (d *ChromeDPDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

// CurrentURL returns the URL of the current page.
func (d *ChromeDPDriver) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := d.run(ctx, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

// ReadyState returns document.readyState of the current page.
func (d *ChromeDPDriver) ReadyState(ctx context.Context) (string, error) {
	var state string
	if err := d.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
		return "", err
	}
	return state, nil
}

// FindElements returns every element matching the selector on the current page.
func (d *ChromeDPDriver) FindElements(ctx context.Context, by By, selector string) ([]Element, error) {
	return d.findNodes(ctx, by, selector, nil)
}

func (d *ChromeDPDriver) findNodes(ctx context.Context, by By, selector string, parent *cdp.Node) ([]Element, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, findTimeout)
		defer cancel()
	}

	opts := []chromedp.QueryOption{chromedp.AtLeast(0)}
	switch by {
	case ByXPath:
		opts = append(opts, chromedp.BySearch)
	case ByCSS, "":
		opts = append(opts, chromedp.ByQueryAll)
	default:
		return nil, fmt.Errorf("unsupported selector strategy %q", by)
	}
	if parent != nil {
		opts = append(opts, chromedp.FromNode(parent))
	}

	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %s %q: %w", by, selector, err)
	}

	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		if n.NodeType != cdp.NodeTypeElement {
			continue
		}
		elements = append(elements, &chromeElement{driver: d, node: n})
	}
	return elements, nil
}

// CaptureScreenshot returns a PNG of the current viewport.
func (d *ChromeDPDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var buf []byte
	if err := d.run(timeoutCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// GetCookies retrieves all browser cookies.
func (d *ChromeDPDriver) GetCookies(ctx context.Context) ([]Cookie, error) {
	var networkCookies []*network.Cookie
	if err := d.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			networkCookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}

	cookies := make([]Cookie, len(networkCookies))
	for i, nc := range networkCookies {
		cookies[i] = Cookie{
			Name:         nc.Name,
			Value:        nc.Value,
			Domain:       nc.Domain,
			Path:         nc.Path,
			HTTPOnly:     nc.HTTPOnly,
			Secure:       nc.Secure,
			SourcePort:   int(nc.SourcePort),
			SourceScheme: string(nc.SourceScheme),
			Priority:     string(nc.Priority),
		}
	}

	return cookies, nil
}

// chromeElement is an Element backed by a DOM node of the driver's tab.
type chromeElement struct {
	driver *ChromeDPDriver
	node   *cdp.Node
}

func (e *chromeElement) call(ctx context.Context, function string, res interface{}) error {
	return e.driver.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.CallFunctionOnNode(ctx, e.node, function, res)
	}))
}

// Click clicks the element with the mouse, falling back to a DOM click when
// the node has no box to aim at.
func (e *chromeElement) Click(ctx context.Context) error {
	if err := e.driver.run(ctx, chromedp.MouseClickNode(e.node)); err == nil {
		return nil
	}
	return e.call(ctx, jsClick, nil)
}

// Clear empties an input element.
func (e *chromeElement) Clear(ctx context.Context) error {
	return e.call(ctx, jsClear, nil)
}

// SendKeys types text into the element.
func (e *chromeElement) SendKeys(ctx context.Context, text string) error {
	return e.driver.run(ctx, chromedp.SendKeys([]cdp.NodeID{e.node.NodeID}, text, chromedp.ByNodeID))
}

// Submit sends a return keystroke to the element.
func (e *chromeElement) Submit(ctx context.Context) error {
	return e.SendKeys(ctx, kb.Enter)
}

// IsDisplayed reports whether the element is rendered with a non-empty box.
func (e *chromeElement) IsDisplayed(ctx context.Context) (bool, error) {
	var visible bool
	if err := e.call(ctx, jsVisible, &visible); err != nil {
		return false, err
	}
	return visible, nil
}

// Text returns the rendered text of the element.
func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.call(ctx, jsText, &text); err != nil {
		return "", err
	}
	return text, nil
}

// Attribute returns the attribute value captured when the node was queried.
func (e *chromeElement) Attribute(_ context.Context, name string) (string, error) {
	return e.node.AttributeValue(name), nil
}

// FindElements returns descendants matching the selector.
func (e *chromeElement) FindElements(ctx context.Context, by By, selector string) ([]Element, error) {
	return e.driver.findNodes(ctx, by, selector, e.node)
}

// Ensure ChromeDPDriver implements Driver
var _ Driver = (*ChromeDPDriver)(nil)
