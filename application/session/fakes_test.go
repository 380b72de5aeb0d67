package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"ulogscraper-go/core/event"
	"ulogscraper-go/core/eventbus"
	"ulogscraper-go/domain/locator"
	"ulogscraper-go/infrastructure/browser"
)

// fakeElement is an in-memory browser.Element.
type fakeElement struct {
	driver      *fakeDriver
	name        string
	text        string
	placeholder string
	attrs       map[string]string
	hidden      bool
	children    map[string][]*fakeElement
	clickErr    error
	// navigates, when set, is the URL the page moves to on click
	navigates string

	clicks    int
	cleared   int
	submitted int
	typed     []string
}

func (e *fakeElement) Click(ctx context.Context) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	if e.driver != nil {
		e.driver.record("click:" + e.name)
		if e.navigates != "" {
			e.driver.setURL(e.navigates)
		}
	}
	return nil
}

func (e *fakeElement) Clear(ctx context.Context) error {
	e.cleared++
	return nil
}

func (e *fakeElement) SendKeys(ctx context.Context, text string) error {
	e.typed = append(e.typed, text)
	if e.driver != nil {
		e.driver.record("type:" + e.name)
	}
	return nil
}

func (e *fakeElement) Submit(ctx context.Context) error {
	e.submitted++
	if e.driver != nil {
		e.driver.record("submit:" + e.name)
	}
	return nil
}

func (e *fakeElement) IsDisplayed(ctx context.Context) (bool, error) {
	return !e.hidden, nil
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	return e.text, nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, error) {
	if name == "placeholder" {
		return e.placeholder, nil
	}
	return e.attrs[name], nil
}

func (e *fakeElement) FindElements(ctx context.Context, by browser.By, selector string) ([]browser.Element, error) {
	return toElements(e.children[selector]), nil
}

// fakeDriver is an in-memory browser.Driver whose page is a fixed map from
// selector to elements.
type fakeDriver struct {
	mu         sync.Mutex
	running    bool
	startErr   error
	url        string
	readyState string
	elements   map[string][]*fakeElement
	findErrs   map[string]error
	cookies    []browser.Cookie
	screenshot []byte

	navigated []string
	queries   []string
	actions   []string
	stopped   bool
	detached  bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		readyState: "complete",
		elements:   make(map[string][]*fakeElement),
		findErrs:   make(map[string]error),
		screenshot: []byte("\x89PNG fake"),
	}
}

// add places an element on the page under selector.
func (d *fakeDriver) add(selector string, el *fakeElement) *fakeElement {
	d.mu.Lock()
	defer d.mu.Unlock()
	el.driver = d
	if el.name == "" {
		el.name = selector
	}
	d.elements[selector] = append(d.elements[selector], el)
	return el
}

func (d *fakeDriver) record(action string) {
	d.mu.Lock()
	d.actions = append(d.actions, action)
	d.mu.Unlock()
}

func (d *fakeDriver) setURL(u string) {
	d.mu.Lock()
	d.url = u
	d.mu.Unlock()
}

func (d *fakeDriver) Start(ctx context.Context) error {
	if d.startErr != nil {
		return d.startErr
	}
	d.running = true
	return nil
}

func (d *fakeDriver) Stop() error {
	d.running = false
	d.stopped = true
	return nil
}

func (d *fakeDriver) Detach() error {
	d.running = false
	d.detached = true
	return nil
}

func (d *fakeDriver) IsRunning() bool { return d.running }

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	if !d.running {
		return browser.ErrNotRunning
	}
	d.mu.Lock()
	d.navigated = append(d.navigated, url)
	d.url = url
	d.mu.Unlock()
	d.record("navigate:" + url)
	return nil
}

func (d *fakeDriver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *fakeDriver) ReadyState(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readyState, nil
}

func (d *fakeDriver) FindElements(ctx context.Context, by browser.By, selector string) ([]browser.Element, error) {
	if !d.running {
		return nil, browser.ErrNotRunning
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries = append(d.queries, selector)
	if err := d.findErrs[selector]; err != nil {
		return nil, err
	}
	return toElements(d.elements[selector]), nil
}

func (d *fakeDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	return d.screenshot, nil
}

func (d *fakeDriver) GetCookies(ctx context.Context) ([]browser.Cookie, error) {
	return d.cookies, nil
}

func (d *fakeDriver) queried(selector string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, q := range d.queries {
		if q == selector {
			return true
		}
	}
	return false
}

func (d *fakeDriver) didAction(action string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.actions {
		if a == action {
			return true
		}
	}
	return false
}

func toElements(els []*fakeElement) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out
}

// recordingBus collects published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *recordingBus) Publish(e event.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

func (b *recordingBus) Subscribe(handler eventbus.EventHandler) string { return "" }

func (b *recordingBus) SubscribeSession(sessionID string, handler eventbus.EventHandler) string {
	return ""
}

func (b *recordingBus) Unsubscribe(subscriptionID string) {}

func (b *recordingBus) Close() {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.events))
	for i, e := range b.events {
		names[i] = e.EventName()
	}
	return names
}

func (b *recordingBus) count(name string) int {
	n := 0
	for _, got := range b.names() {
		if got == name {
			n++
		}
	}
	return n
}

// testLocators is a small catalogue with one CSS candidate per control,
// named after the control, plus a second email candidate.
func testLocators() *locator.Registry {
	css := func(v string) locator.Candidate {
		return locator.Candidate{Strategy: locator.StrategyCSS, Value: v}
	}

	reg := locator.NewRegistry()
	reg.Register(&locator.Flow{
		Name: FlowLogin,
		Controls: []locator.Control{
			{Name: ControlLoginButton, Label: "login button", Candidates: []locator.Candidate{css("#login")}},
			{Name: ControlEmailField, Label: "email field", Candidates: []locator.Candidate{css("#email"), css("#username")}},
			{Name: ControlContinue, Label: "continue button", Candidates: []locator.Candidate{css("#continue")}},
			{Name: ControlPasswordField, Label: "password field", Candidates: []locator.Candidate{css("#password")}},
			{Name: ControlSubmit, Label: "submit button", Candidates: []locator.Candidate{css("#submit")}},
		},
	})
	reg.Register(&locator.Flow{
		Name: FlowNavigation,
		Controls: []locator.Control{
			{Name: ControlSearchInput, Label: "search input", Candidates: []locator.Candidate{css("input[placeholder='{query}']")}, Filter: locator.Filter{Visible: true}},
			{Name: ControlVehicleLink, Label: "vehicle link", Candidates: []locator.Candidate{css("a.vehicle")}, Filter: locator.Filter{Visible: true, TextContains: "{target}"}},
			{Name: ControlAllFlights, Label: "All Flights link", Candidates: []locator.Candidate{css("a.flights")}},
			{Name: ControlFlightEntry, Label: "flight entry", Candidates: []locator.Candidate{css("tr")}, Filter: locator.Filter{TextContains: "{flight}"}, ClickChild: "a"},
			{Name: ControlLogsTab, Label: "log tab", Candidates: []locator.Candidate{css("a.tab")}, Filter: locator.Filter{TextContains: "log", TextExcludes: []string{"login"}, IgnoreCase: true}},
			{Name: ControlViewAnalytics, Label: "View Analytics button", Candidates: []locator.Candidate{css("a.analytics")}},
			{Name: ControlDownloadLog, Label: "Download log button", Candidates: []locator.Candidate{css("button.download")}},
		},
	})
	return reg
}

var errBoom = errors.New("boom")

// newTestSession returns a session over driver with every delay zeroed.
func newTestSession(driver *fakeDriver, bus *recordingBus, logDir string) *Session {
	s := New(&Config{
		ID:          "test",
		Driver:      driver,
		EventBus:    bus,
		Locators:    testLocators(),
		BaseURL:     "https://suite.example.com/",
		LogDir:      logDir,
		Screenshots: logDir != "",
		Timings: Timings{
			LoginTimeout: 200 * time.Millisecond,
			PageTimeout:  200 * time.Millisecond,
		},
	})
	s.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }
	return s
}
