package wizard

import (
	"context"
	"strings"
)

// SubmitFunc is the submission sink invoked by Confirm. It receives the
// submitting state so it can read fields and selections.
type SubmitFunc func(ctx context.Context, s State) error

// Advance moves to the next step when the current step validates. On failure
// the step index and selections are untouched and a *ValidationError is
// returned (and recorded on the state). On the terminal step, while
// submitting, or once complete, Advance is a no-op.
func (s State) Advance() (State, error) {
	if !s.idle() || s.AtLastStep() {
		return s, nil
	}
	if verr := s.checkStep(s.StepIndex); verr != nil {
		ns := s.clone()
		ns.Failure = verr.failure()
		return ns, verr
	}
	ns := s.clone()
	ns.StepIndex++
	ns.Failure = nil
	return ns, nil
}

// Retreat moves back one step without validating. No-op at step 0 and
// outside the idle phase.
func (s State) Retreat() State {
	if !s.idle() || s.StepIndex == 0 {
		return s
	}
	ns := s.clone()
	ns.StepIndex--
	ns.Failure = nil
	return ns
}

// ToggleSelection removes the item when its id is already selected and
// appends it otherwise. It is the only way selections change.
func (s State) ToggleSelection(item Selection) State {
	if !s.idle() || strings.TrimSpace(item.ID) == "" {
		return s
	}
	ns := s.clone()
	if i := ns.selectionIndex(item.ID); i >= 0 {
		ns.Selections = append(ns.Selections[:i], ns.Selections[i+1:]...)
	} else {
		ns.Selections = append(ns.Selections, item)
	}
	ns.Failure = nil
	return ns
}

// SetField sets a scalar form input. An empty value clears the field.
func (s State) SetField(name, value string) State {
	name = strings.TrimSpace(name)
	if !s.idle() || name == "" {
		return s
	}
	ns := s.clone()
	value = strings.TrimSpace(value)
	if value == "" {
		delete(ns.Fields, name)
	} else {
		ns.Fields[name] = value
	}
	ns.Failure = nil
	return ns
}

// Reset returns a fresh state over the same steps. It is ignored while a
// submission is in flight.
func (s State) Reset() State {
	if s.IsSubmitting {
		return s
	}
	return New(s.Steps...)
}

// BeginSubmit enters the submitting phase. ok is false when the state is not
// idle, in which case s is returned unchanged.
func (s State) BeginSubmit() (next State, ok bool) {
	if !s.idle() {
		return s, false
	}
	ns := s.clone()
	ns.IsSubmitting = true
	ns.Failure = nil
	return ns, true
}

// FinishSubmit leaves the submitting phase with the outcome of the submit
// call: complete on success, idle with a *SubmissionError otherwise.
func (s State) FinishSubmit(err error) (State, error) {
	if !s.IsSubmitting {
		return s, nil
	}
	ns := s.clone()
	ns.IsSubmitting = false
	if err != nil {
		serr := &SubmissionError{Err: err}
		ns.Failure = serr.failure()
		return ns, serr
	}
	ns.IsComplete = true
	ns.Failure = nil
	return ns, nil
}

// Confirm validates every step, then runs submit exactly once. Only the last
// step may confirm. Calling it on a submitting or complete state is a no-op
// that does not call submit.
func (s State) Confirm(ctx context.Context, submit SubmitFunc) (State, error) {
	submitting, proceed, err := s.BeginConfirm()
	if !proceed {
		return submitting, err
	}
	return submitting.FinishSubmit(submit(ctx, submitting))
}

// BeginConfirm is the first half of Confirm for callers that must persist
// the submitting state before calling the sink. proceed is false when the
// state is not idle (err nil), the last step has not been reached, or a
// step fails validation (err is a *ValidationError in both cases). Finish
// with FinishSubmit.
func (s State) BeginConfirm() (next State, proceed bool, err error) {
	if !s.idle() {
		return s, false, nil
	}
	if !s.AtLastStep() {
		verr := &ValidationError{Step: s.CurrentStep().Name, Fields: []string{StepField}}
		ns := s.clone()
		ns.Failure = verr.failure()
		return ns, false, verr
	}
	for i := range s.Steps {
		if verr := s.checkStep(i); verr != nil {
			ns := s.clone()
			ns.Failure = verr.failure()
			return ns, false, verr
		}
	}
	ns, _ := s.BeginSubmit()
	return ns, true, nil
}

// Reject records a validation failure found outside the step validators
// (for example an id that does not resolve). Only idle states record it.
func (s State) Reject(verr *ValidationError) State {
	if !s.idle() || verr == nil {
		return s
	}
	ns := s.clone()
	ns.Failure = verr.failure()
	return ns
}

func (s State) checkStep(i int) *ValidationError {
	step := s.Steps[i]
	if step.Validate == nil {
		return nil
	}
	if fields := step.Validate(s); len(fields) > 0 {
		return &ValidationError{Step: step.Name, Fields: fields}
	}
	return nil
}
