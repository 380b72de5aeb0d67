// Package locator defines the ordered candidate lists used to find UI
// controls on pages whose markup is not stable.
package locator

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects how a candidate value is interpreted.
type Strategy string

const (
	StrategyCSS   Strategy = "css"
	StrategyXPath Strategy = "xpath"
)

// Placeholders expanded by Control.Expand.
const (
	VarQuery  = "query"
	VarTarget = "target"
	VarFlight = "flight"
)

// Flow groups the controls used by one stage of the automation (login, navigation, logs).
type Flow struct {
	// Name is the unique identifier for this flow
	Name string

	// Description provides a human-readable explanation of the flow
	Description string

	// Controls are the controls in the order the flow visits them
	Controls []Control
}

// Control is a UI element located by trying its candidates in order.
type Control struct {
	// Name is the key used to look the control up, e.g. "email_field"
	Name string

	// Label is the human-readable name used in errors and logs, e.g. "email field"
	Label string

	// Candidates are tried in order; the first one yielding an accepted element wins
	Candidates []Candidate

	// Filter restricts which found elements are accepted
	Filter Filter

	// Wait, when set, polls each candidate for up to this long before moving on
	Wait time.Duration

	// ClickChild is a CSS selector for a clickable descendant. When the matched
	// element has one, it is clicked instead of the element itself.
	ClickChild string
}

// Candidate is one (strategy, selector) pair.
type Candidate struct {
	Strategy Strategy
	Value    string
}

func (c Candidate) String() string {
	return string(c.Strategy) + ":" + c.Value
}

// Filter describes the checks an element must pass beyond being found.
type Filter struct {
	// Visible requires the element to be displayed
	Visible bool

	// TextContains requires the element text to contain this substring
	TextContains string

	// PlaceholderContains accepts elements whose placeholder attribute
	// contains this substring, as an alternative to TextContains
	PlaceholderContains string

	// TextExcludes rejects elements whose text contains any of these substrings
	TextExcludes []string

	// IgnoreCase compares text case-insensitively
	IgnoreCase bool
}

// IsZero reports whether the filter accepts every element.
func (f Filter) IsZero() bool {
	return !f.Visible && f.TextContains == "" && f.PlaceholderContains == "" && len(f.TextExcludes) == 0
}

// NeedsText reports whether Accepts inspects the element text.
func (f Filter) NeedsText() bool {
	return f.TextContains != "" || len(f.TextExcludes) > 0
}

// NeedsPlaceholder reports whether Accepts inspects the placeholder attribute.
func (f Filter) NeedsPlaceholder() bool {
	return f.PlaceholderContains != ""
}

// Accepts applies the text checks of the filter. Visibility is checked by the caller.
func (f Filter) Accepts(text, placeholder string) bool {
	fold := func(s string) string {
		if f.IgnoreCase {
			return strings.ToLower(s)
		}
		return s
	}
	text = fold(text)

	for _, ex := range f.TextExcludes {
		if ex != "" && strings.Contains(text, fold(ex)) {
			return false
		}
	}

	if f.TextContains == "" && f.PlaceholderContains == "" {
		return true
	}
	if f.TextContains != "" && strings.Contains(text, fold(f.TextContains)) {
		return true
	}
	if f.PlaceholderContains != "" && strings.Contains(fold(placeholder), fold(f.PlaceholderContains)) {
		return true
	}
	return false
}

// Expand returns a copy of the control with {name} placeholders replaced
// from vars. Candidate values receive the value escaped for their strategy:
// an XPath placeholder written as a whole quoted literal ('{name}') becomes
// a literal matching the value exactly, and a CSS placeholder is backslash
// escaped. Filter strings receive the raw value.
func (c Control) Expand(vars map[string]string) Control {
	if len(vars) == 0 {
		return c
	}

	raw := make([]string, 0, len(vars)*2)
	css := make([]string, 0, len(vars)*2)
	xpath := make([]string, 0, len(vars)*6)
	for k, v := range vars {
		ph := "{" + k + "}"
		raw = append(raw, ph, v)
		css = append(css, ph, cssEscaper.Replace(v))
		lit := XPathLiteral(v)
		xpath = append(xpath, "'"+ph+"'", lit, `"`+ph+`"`, lit, ph, v)
	}
	r := strings.NewReplacer(raw...)
	byStrategy := map[Strategy]*strings.Replacer{
		StrategyCSS:   strings.NewReplacer(css...),
		StrategyXPath: strings.NewReplacer(xpath...),
	}

	out := c
	out.Candidates = make([]Candidate, len(c.Candidates))
	for i, cand := range c.Candidates {
		rep, ok := byStrategy[cand.Strategy]
		if !ok {
			rep = r
		}
		out.Candidates[i] = Candidate{Strategy: cand.Strategy, Value: rep.Replace(cand.Value)}
	}
	out.Filter.TextContains = r.Replace(c.Filter.TextContains)
	out.Filter.PlaceholderContains = r.Replace(c.Filter.PlaceholderContains)
	if len(c.Filter.TextExcludes) > 0 {
		out.Filter.TextExcludes = make([]string, len(c.Filter.TextExcludes))
		for i, ex := range c.Filter.TextExcludes {
			out.Filter.TextExcludes[i] = r.Replace(ex)
		}
	}
	return out
}

var cssEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `"`, `\"`, "\n", `\a `)

// XPathLiteral returns an XPath 1.0 expression equal to the string s.
// XPath has no escape syntax, so a value holding both quote kinds is built
// with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	args := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `"'"`)
		}
		if p != "" {
			args = append(args, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}

// bareXPathPlaceholder reports whether value uses a known placeholder other
// than as a whole quoted literal.
func bareXPathPlaceholder(value string) (string, bool) {
	for _, k := range []string{VarQuery, VarTarget, VarFlight} {
		ph := "{" + k + "}"
		rest := strings.NewReplacer("'"+ph+"'", "", `"`+ph+`"`, "").Replace(value)
		if strings.Contains(rest, ph) {
			return k, true
		}
	}
	return "", false
}

// DisplayName returns Label, or Name when no label was given.
func (c Control) DisplayName() string {
	if c.Label != "" {
		return c.Label
	}
	return strings.ReplaceAll(c.Name, "_", " ")
}

// Validate checks that the control can be probed.
func (c Control) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("control name is required")
	}
	if len(c.Candidates) == 0 {
		return fmt.Errorf("control %s has no candidates", c.Name)
	}
	for i, cand := range c.Candidates {
		switch cand.Strategy {
		case StrategyCSS, StrategyXPath:
		default:
			return fmt.Errorf("control %s candidate %d: unknown strategy %q", c.Name, i, cand.Strategy)
		}
		if strings.TrimSpace(cand.Value) == "" {
			return fmt.Errorf("control %s candidate %d: empty selector", c.Name, i)
		}
		if cand.Strategy == StrategyXPath {
			if k, bare := bareXPathPlaceholder(cand.Value); bare {
				return fmt.Errorf("control %s candidate %d: {%s} must be a whole quoted literal", c.Name, i, k)
			}
		}
	}
	if c.Wait < 0 {
		return fmt.Errorf("control %s: negative wait", c.Name)
	}
	return nil
}

// Control returns the named control of the flow.
func (f *Flow) Control(name string) (Control, bool) {
	for _, c := range f.Controls {
		if c.Name == name {
			return c, true
		}
	}
	return Control{}, false
}

// Validate checks every control and that control names are unique.
func (f *Flow) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("flow name is required")
	}
	seen := make(map[string]bool, len(f.Controls))
	for _, c := range f.Controls {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("flow %s: %w", f.Name, err)
		}
		if seen[c.Name] {
			return fmt.Errorf("flow %s: duplicate control %s", f.Name, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}
