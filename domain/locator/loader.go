package locator

import (
	"fmt"
	"io/fs"
	"path"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlFlow is the YAML structure for flow definitions.
type yamlFlow struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Controls    []yamlControl `yaml:"controls"`
}

type yamlControl struct {
	Name       string          `yaml:"name"`
	Label      string          `yaml:"label"`
	Candidates []yamlCandidate `yaml:"candidates"`
	Filter     *yamlFilter     `yaml:"filter,omitempty"`
	Wait       duration        `yaml:"wait,omitempty"`
	ClickChild string          `yaml:"clickChild,omitempty"`
}

// yamlCandidate holds exactly one of CSS or XPath.
type yamlCandidate struct {
	CSS   string `yaml:"css,omitempty"`
	XPath string `yaml:"xpath,omitempty"`
}

type yamlFilter struct {
	Visible             bool     `yaml:"visible"`
	TextContains        string   `yaml:"textContains,omitempty"`
	PlaceholderContains string   `yaml:"placeholderContains,omitempty"`
	TextExcludes        []string `yaml:"textExcludes,omitempty"`
	IgnoreCase          bool     `yaml:"ignoreCase,omitempty"`
}

// duration is a wrapper for time.Duration that handles YAML parsing.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Loader handles loading flow definitions from various sources.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new loader that populates the given registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// LoadFromFS loads flow definitions from an embedded or real filesystem.
// It expects YAML files in a "locators" subdirectory.
func (l *Loader) LoadFromFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, "locators")
	if err != nil {
		return fmt.Errorf("failed to read locators directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}

		if err := l.loadFile(fsys, "locators/"+entry.Name()); err != nil {
			return err
		}
	}

	return nil
}

// loadFile loads a single flow definition file.
func (l *Loader) loadFile(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read locator file %s: %w", name, err)
	}

	flow, err := Parse(data)
	if err != nil {
		return fmt.Errorf("locator file %s: %w", name, err)
	}

	l.registry.Register(flow)
	return nil
}

// Parse decodes and validates a single YAML flow definition.
func Parse(data []byte) (*Flow, error) {
	var yf yamlFlow
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, fmt.Errorf("failed to parse flow: %w", err)
	}

	flow, err := convertYAMLFlow(&yf)
	if err != nil {
		return nil, err
	}
	if err := flow.Validate(); err != nil {
		return nil, err
	}
	return flow, nil
}

// convertYAMLFlow converts a YAML flow to a domain Flow.
func convertYAMLFlow(yf *yamlFlow) (*Flow, error) {
	flow := &Flow{
		Name:        yf.Name,
		Description: yf.Description,
		Controls:    make([]Control, len(yf.Controls)),
	}

	for i := range yf.Controls {
		c, err := convertYAMLControl(&yf.Controls[i])
		if err != nil {
			return nil, err
		}
		flow.Controls[i] = c
	}

	return flow, nil
}

func convertYAMLControl(yc *yamlControl) (Control, error) {
	control := Control{
		Name:       yc.Name,
		Label:      yc.Label,
		Wait:       time.Duration(yc.Wait),
		ClickChild: yc.ClickChild,
		Candidates: make([]Candidate, len(yc.Candidates)),
	}

	for i, ycand := range yc.Candidates {
		switch {
		case ycand.CSS != "" && ycand.XPath != "":
			return Control{}, fmt.Errorf("control %s candidate %d: set css or xpath, not both", yc.Name, i)
		case ycand.CSS != "":
			control.Candidates[i] = Candidate{Strategy: StrategyCSS, Value: ycand.CSS}
		case ycand.XPath != "":
			control.Candidates[i] = Candidate{Strategy: StrategyXPath, Value: ycand.XPath}
		default:
			return Control{}, fmt.Errorf("control %s candidate %d: missing selector", yc.Name, i)
		}
	}

	if yc.Filter != nil {
		control.Filter = Filter{
			Visible:             yc.Filter.Visible,
			TextContains:        yc.Filter.TextContains,
			PlaceholderContains: yc.Filter.PlaceholderContains,
			TextExcludes:        yc.Filter.TextExcludes,
			IgnoreCase:          yc.Filter.IgnoreCase,
		}
	}

	return control, nil
}
