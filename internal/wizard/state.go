// Package wizard models linear multi-step flows (booking dialogs) as an
// explicit value: a step index over an ordered list of steps, accumulated
// form fields and selections, and a submission phase. Every transition is a
// method returning a new State; the receiver is never modified.
package wizard

import "slices"

// Phase is the submission axis of the state machine.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseComplete   Phase = "complete"
)

// Validator reports the fields that keep a step from passing. An empty
// result means the step is satisfied.
type Validator func(State) []string

// Step is one screen of a flow.
type Step struct {
	Name     string    `json:"name"`
	Title    string    `json:"title,omitempty"`
	Validate Validator `json:"-"`
}

// Selection is an item picked on a multi-select step, keyed by ID.
type Selection struct {
	ID         string            `json:"id"`
	Label      string            `json:"label,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// FailureKind discriminates the failure carried on a state.
type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureSubmission FailureKind = "submission"
)

// Failure is the last rejected transition, kept on the state so callers
// render from the state alone.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Step    string      `json:"step,omitempty"`
	Fields  []string    `json:"fields,omitempty"`
	Message string      `json:"message"`
}

// State is a wizard instance. Invariants: 0 <= StepIndex < len(Steps);
// IsSubmitting and IsComplete are never both true.
type State struct {
	StepIndex    int               `json:"step_index"`
	Steps        []Step            `json:"steps"`
	Fields       map[string]string `json:"fields"`
	Selections   []Selection       `json:"selections"`
	IsSubmitting bool              `json:"is_submitting"`
	IsComplete   bool              `json:"is_complete"`
	Failure      *Failure          `json:"failure,omitempty"`
}

// New returns the initial state (step 0, idle) for the given steps.
func New(steps ...Step) State {
	if len(steps) == 0 {
		panic("wizard: at least one step required")
	}
	return State{
		Steps:      slices.Clone(steps),
		Fields:     map[string]string{},
		Selections: []Selection{},
	}
}

// Phase returns where the state sits on the submission axis.
func (s State) Phase() Phase {
	switch {
	case s.IsComplete:
		return PhaseComplete
	case s.IsSubmitting:
		return PhaseSubmitting
	default:
		return PhaseIdle
	}
}

func (s State) idle() bool { return s.Phase() == PhaseIdle }

// CurrentStep returns the step at StepIndex.
func (s State) CurrentStep() Step {
	return s.Steps[s.StepIndex]
}

// AtLastStep reports whether StepIndex is the terminal step.
func (s State) AtLastStep() bool {
	return s.StepIndex == len(s.Steps)-1
}

// Field returns a form field value, empty when unset.
func (s State) Field(name string) string {
	return s.Fields[name]
}

// HasSelection reports whether an item with id is selected.
func (s State) HasSelection(id string) bool {
	return s.selectionIndex(id) >= 0
}

// SelectionIDs returns selected ids in selection order.
func (s State) SelectionIDs() []string {
	out := make([]string, 0, len(s.Selections))
	for _, sel := range s.Selections {
		out = append(out, sel.ID)
	}
	return out
}

// WithSteps re-attaches step definitions (and their validators) to a state
// restored from storage. The step index is clamped into range.
func (s State) WithSteps(steps []Step) State {
	ns := s.clone()
	ns.Steps = slices.Clone(steps)
	if ns.StepIndex >= len(ns.Steps) {
		ns.StepIndex = len(ns.Steps) - 1
	}
	if ns.StepIndex < 0 {
		ns.StepIndex = 0
	}
	return ns
}

func (s State) selectionIndex(id string) int {
	return slices.IndexFunc(s.Selections, func(sel Selection) bool { return sel.ID == id })
}

func (s State) clone() State {
	ns := s
	ns.Steps = slices.Clone(s.Steps)
	ns.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		ns.Fields[k] = v
	}
	ns.Selections = make([]Selection, len(s.Selections))
	copy(ns.Selections, s.Selections)
	if s.Failure != nil {
		f := *s.Failure
		f.Fields = slices.Clone(s.Failure.Fields)
		ns.Failure = &f
	}
	return ns
}
