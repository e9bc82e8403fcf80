package wizard

import (
	"fmt"
	"strings"
)

// ValidationError names the fields that keep a step from passing.
type ValidationError struct {
	Step   string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("wizard: step %q: missing or invalid %s", e.Step, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) failure() *Failure {
	return &Failure{
		Kind:    FailureValidation,
		Step:    e.Step,
		Fields:  append([]string(nil), e.Fields...),
		Message: e.Error(),
	}
}

// SubmissionError wraps a failed confirmation. The wizard is back in idle and
// the confirmation may be retried.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("wizard: submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) failure() *Failure {
	return &Failure{
		Kind:    FailureSubmission,
		Message: e.Error(),
	}
}
