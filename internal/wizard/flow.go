package wizard

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownFlow is returned when a flow name is not registered.
	ErrUnknownFlow = errors.New("wizard: unknown flow")
	// ErrInvalidFlow is returned for flow definitions that cannot produce a
	// valid State.
	ErrInvalidFlow = errors.New("wizard: invalid flow definition")
)

var flowNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Flow is a named, ordered list of steps.
type Flow struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Steps []Step `json:"steps"`
}

// NewState returns the initial state for the flow.
func (f Flow) NewState() State {
	return New(f.Steps...)
}

// Validate checks that the flow is usable.
func (f Flow) Validate() error {
	if !flowNamePattern.MatchString(f.Name) {
		return fmt.Errorf("%w: name %q", ErrInvalidFlow, f.Name)
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("%w: %s has no steps", ErrInvalidFlow, f.Name)
	}
	seen := make(map[string]bool, len(f.Steps))
	for _, s := range f.Steps {
		if s.Name == "" {
			return fmt.Errorf("%w: %s has an unnamed step", ErrInvalidFlow, f.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: %s repeats step %q", ErrInvalidFlow, f.Name, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Registry holds flows by name in registration order.
type Registry struct {
	flows map[string]Flow
	order []string
}

// NewRegistry validates and registers flows. Later flows with the same name
// replace earlier ones, which lets file definitions override built-ins.
func NewRegistry(flows ...Flow) (*Registry, error) {
	r := &Registry{flows: make(map[string]Flow, len(flows))}
	for _, f := range flows {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if _, ok := r.flows[f.Name]; !ok {
			r.order = append(r.order, f.Name)
		}
		r.flows[f.Name] = f
	}
	return r, nil
}

// Get returns the named flow or ErrUnknownFlow.
func (r *Registry) Get(name string) (Flow, error) {
	f, ok := r.flows[name]
	if !ok {
		return Flow{}, fmt.Errorf("%w: %s", ErrUnknownFlow, name)
	}
	return f, nil
}

// List returns flows in registration order.
func (r *Registry) List() []Flow {
	out := make([]Flow, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.flows[name])
	}
	return out
}

// FlowsYAML is the on-disk flow file.
type FlowsYAML struct {
	Flows []FlowYAML `yaml:"flows"`
}

type FlowYAML struct {
	Name  string     `yaml:"name"`
	Title string     `yaml:"title"`
	Steps []StepYAML `yaml:"steps"`
}

type StepYAML struct {
	Name           string              `yaml:"name"`
	Title          string              `yaml:"title"`
	RequiredFields []string            `yaml:"required_fields"`
	MinSelections  int                 `yaml:"min_selections"`
	Layouts        map[string]string   `yaml:"layouts"`
	AllowedValues  map[string][]string `yaml:"allowed_values"`
}

// ToStep builds the runtime step, composing validators from the declared
// constraints.
func (s StepYAML) ToStep() Step {
	var vs []Validator
	if len(s.RequiredFields) > 0 {
		vs = append(vs, RequireFields(s.RequiredFields...))
	}
	if s.MinSelections > 0 {
		vs = append(vs, RequireSelections(s.MinSelections))
	}
	for _, field := range sortedKeys(s.Layouts) {
		vs = append(vs, FieldLayout(field, s.Layouts[field]))
	}
	for _, field := range sortedKeys(s.AllowedValues) {
		vs = append(vs, FieldOneOf(field, s.AllowedValues[field]...))
	}
	step := Step{Name: s.Name, Title: s.Title}
	if len(vs) > 0 {
		step.Validate = All(vs...)
	}
	return step
}

// ParseFlows decodes a flow file. Unknown keys are rejected.
func ParseFlows(data []byte) ([]Flow, error) {
	var doc FlowsYAML
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("wizard: parse flows: %w", err)
	}
	flows := make([]Flow, 0, len(doc.Flows))
	for _, fy := range doc.Flows {
		f := Flow{Name: fy.Name, Title: fy.Title}
		for _, sy := range fy.Steps {
			f.Steps = append(f.Steps, sy.ToStep())
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	return flows, nil
}

// LoadFlows reads and parses a flow file from disk.
func LoadFlows(path string) ([]Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wizard: read flows: %w", err)
	}
	return ParseFlows(data)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
