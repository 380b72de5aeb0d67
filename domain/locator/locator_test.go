package locator

import (
	"testing"
	"testing/fstest"
	"time"

	"ulogscraper-go/resources"
)

func TestFilter_Accepts(t *testing.T) {
	logTab := Filter{
		Visible:      true,
		TextContains: "log",
		TextExcludes: []string{"login", "logout", "catalog"},
		IgnoreCase:   true,
	}
	download := Filter{TextContains: "Download", PlaceholderContains: "Download"}

	tests := []struct {
		name        string
		filter      Filter
		text        string
		placeholder string
		want        bool
	}{
		{"zero filter accepts anything", Filter{}, "", "", true},
		{"text contains", Filter{TextContains: "All Flights"}, "See All Flights", "", true},
		{"text missing", Filter{TextContains: "All Flights"}, "Recent flights", "", false},
		{"case sensitive by default", Filter{TextContains: "DV21"}, "astro dv21", "", false},
		{"log tab plain", logTab, "Log", "", true},
		{"log tab rejects login", logTab, "Login", "", false},
		{"log tab rejects logout", logTab, "LOGOUT", "", false},
		{"log tab rejects catalog", logTab, "Catalog", "", false},
		{"download by text", download, "Download log", "", true},
		{"download by placeholder", download, "", "Download log", true},
		{"download neither", download, "Export", "Search", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Accepts(tt.text, tt.placeholder); got != tt.want {
				t.Errorf("Accepts(%q, %q) = %v, want %v", tt.text, tt.placeholder, got, tt.want)
			}
		})
	}
}

func TestFilter_Needs(t *testing.T) {
	if !(Filter{}).IsZero() {
		t.Error("empty filter should be zero")
	}
	if (Filter{Visible: true}).NeedsText() {
		t.Error("visibility-only filter should not need text")
	}
	if !(Filter{TextExcludes: []string{"x"}}).NeedsText() {
		t.Error("excludes need text")
	}
	if !(Filter{PlaceholderContains: "x"}).NeedsPlaceholder() {
		t.Error("placeholder filter should need placeholder")
	}
}

func TestControl_Expand(t *testing.T) {
	c := Control{
		Name: "vehicle_link",
		Candidates: []Candidate{
			{Strategy: StrategyXPath, Value: "//a[contains(., '{target}')]"},
			{Strategy: StrategyCSS, Value: "input[placeholder='{query}']"},
		},
		Filter: Filter{TextContains: "{target}", TextExcludes: []string{"{flight}"}},
	}

	got := c.Expand(map[string]string{VarTarget: "DV21", VarQuery: "dv21", VarFlight: "MXNT"})

	if got.Candidates[0].Value != "//a[contains(., 'DV21')]" {
		t.Errorf("candidate 0 = %q", got.Candidates[0].Value)
	}
	if got.Candidates[1].Value != "input[placeholder='dv21']" {
		t.Errorf("candidate 1 = %q", got.Candidates[1].Value)
	}
	if got.Filter.TextContains != "DV21" || got.Filter.TextExcludes[0] != "MXNT" {
		t.Errorf("filter not expanded: %+v", got.Filter)
	}
	if c.Candidates[0].Value != "//a[contains(., '{target}')]" {
		t.Error("Expand modified the original control")
	}
}

func TestControl_Expand_QuotedValues(t *testing.T) {
	c := Control{
		Name: "vehicle_link",
		Candidates: []Candidate{
			{Strategy: StrategyXPath, Value: "//a[contains(text(), '{target}')]"},
			{Strategy: StrategyXPath, Value: `//tr[contains(., "{flight}")]`},
			{Strategy: StrategyCSS, Value: "input[placeholder='{query}']"},
		},
		Filter: Filter{TextContains: "{target}"},
	}

	got := c.Expand(map[string]string{
		VarTarget: "Nate's DV21",
		VarFlight: `say "hi" it's`,
		VarQuery:  `a\b'c`,
	})

	want := []string{
		`//a[contains(text(), "Nate's DV21")]`,
		`//tr[contains(., concat('say "hi" it', "'", 's'))]`,
		`input[placeholder='a\\b\'c']`,
	}
	for i, w := range want {
		if got.Candidates[i].Value != w {
			t.Errorf("candidate %d = %s, want %s", i, got.Candidates[i].Value, w)
		}
	}
	if got.Filter.TextContains != "Nate's DV21" {
		t.Errorf("filter = %q, want raw value", got.Filter.TextContains)
	}
}

func TestXPathLiteral(t *testing.T) {
	tests := map[string]string{
		"DV21":     "'DV21'",
		"Nate's":   `"Nate's"`,
		`6" rotor`: `'6" rotor'`,
		`'a' "b"`:  `concat("'", 'a', "'", ' "b"')`,
		"":         "''",
	}
	for in, want := range tests {
		if got := XPathLiteral(in); got != want {
			t.Errorf("XPathLiteral(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestControl_Validate_BareXPathPlaceholder(t *testing.T) {
	c := Control{
		Name:       "vehicle_link",
		Candidates: []Candidate{{Strategy: StrategyXPath, Value: "//a[contains(., 'Vehicle {target}')]"}},
	}
	if err := c.Validate(); err == nil {
		t.Error("expected error for placeholder inside a larger literal")
	}

	c.Candidates[0].Value = "//a[contains(., '{target}')]"
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestControl_DisplayName(t *testing.T) {
	if got := (Control{Name: "email_field"}).DisplayName(); got != "email field" {
		t.Errorf("DisplayName() = %q", got)
	}
	if got := (Control{Name: "all_flights", Label: "All Flights link"}).DisplayName(); got != "All Flights link" {
		t.Errorf("DisplayName() = %q", got)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
name: sample
controls:
  - name: password_field
    label: password field
    wait: 5s
    candidates:
      - css: "input[type='password']"
      - xpath: "//input[@type='password']"
  - name: flight_entry
    clickChild: a
    filter:
      visible: true
      textContains: "{flight}"
    candidates:
      - xpath: "//tr[contains(., '{flight}')]"
`)

	flow, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if flow.Name != "sample" || len(flow.Controls) != 2 {
		t.Fatalf("unexpected flow: %+v", flow)
	}

	pw := flow.Controls[0]
	if pw.Wait != 5*time.Second {
		t.Errorf("Wait = %v, want 5s", pw.Wait)
	}
	if pw.Candidates[1].Strategy != StrategyXPath {
		t.Errorf("candidate strategy = %v, want xpath", pw.Candidates[1].Strategy)
	}

	fe, ok := flow.Control("flight_entry")
	if !ok {
		t.Fatal("flight_entry not found")
	}
	if fe.ClickChild != "a" || !fe.Filter.Visible {
		t.Errorf("flight_entry = %+v", fe)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"both selectors": "name: x\ncontrols:\n  - name: a\n    candidates:\n      - css: a\n        xpath: //a\n",
		"no selector":    "name: x\ncontrols:\n  - name: a\n    candidates:\n      - {}\n",
		"no candidates":  "name: x\ncontrols:\n  - name: a\n",
		"duplicate":      "name: x\ncontrols:\n  - name: a\n    candidates: [{css: a}]\n  - name: a\n    candidates: [{css: b}]\n",
		"missing name":   "controls:\n  - name: a\n    candidates: [{css: a}]\n",
		"bad duration":   "name: x\ncontrols:\n  - name: a\n    wait: soon\n    candidates: [{css: a}]\n",
		"malformed yaml": "name: [",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoader_LoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"locators/a.yaml":    {Data: []byte("name: a\ncontrols:\n  - name: c\n    candidates: [{css: button}]\n")},
		"locators/notes.txt": {Data: []byte("ignored")},
	}

	reg := NewRegistry()
	if err := NewLoader(reg).LoadFromFS(fsys); err != nil {
		t.Fatalf("LoadFromFS() error = %v", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
	if _, err := reg.Control("a", "c"); err != nil {
		t.Errorf("Control() error = %v", err)
	}
	if _, err := reg.Control("a", "missing"); err == nil {
		t.Error("expected error for missing control")
	}
	if _, err := reg.Control("nope", "c"); err == nil {
		t.Error("expected error for missing flow")
	}
}

func TestLoader_EmbeddedCatalogue(t *testing.T) {
	reg := NewRegistry()
	if err := NewLoader(reg).LoadFromFS(resources.LocatorFiles); err != nil {
		t.Fatalf("LoadFromFS(embedded) error = %v", err)
	}

	if err := reg.Require("login", "login_button", "email_field", "continue_button", "password_field", "submit_button"); err != nil {
		t.Error(err)
	}
	if err := reg.Require("navigation", "search_input", "vehicle_link", "all_flights", "flight_entry", "logs_tab", "view_analytics", "download_log"); err != nil {
		t.Error(err)
	}

	email, _ := reg.Control("login", "email_field")
	if len(email.Candidates) != 12 {
		t.Errorf("email candidates = %d, want 12", len(email.Candidates))
	}
	pw, _ := reg.Control("login", "password_field")
	if pw.Wait != 5*time.Second {
		t.Errorf("password wait = %v, want 5s", pw.Wait)
	}

	if got := reg.List(); len(got) != 2 || got[0] != "login" || got[1] != "navigation" {
		t.Errorf("List() = %v", got)
	}
}
