package wizard

import (
	"context"
	"sync"
)

// Session serializes transitions on a single State so that concurrent
// callers observe a consistent phase. The submit function passed to Confirm
// runs outside the lock; a Confirm racing with an in-flight submission sees
// the submitting phase and returns without calling submit.
type Session struct {
	mu    sync.Mutex
	state State
}

// NewSession wraps an existing state.
func NewSession(state State) *Session {
	return &Session{state: state}
}

// State returns a snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Session) Advance() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.state.Advance()
	s.state = next
	return next.clone(), err
}

func (s *Session) Retreat() State {
	return s.apply(State.Retreat)
}

func (s *Session) Reset() State {
	return s.apply(State.Reset)
}

func (s *Session) ToggleSelection(item Selection) State {
	return s.apply(func(st State) State { return st.ToggleSelection(item) })
}

func (s *Session) SetField(name, value string) State {
	return s.apply(func(st State) State { return st.SetField(name, value) })
}

// Confirm validates, flips to submitting under the lock, calls submit without
// holding it, then records the outcome.
func (s *Session) Confirm(ctx context.Context, submit SubmitFunc) (State, error) {
	s.mu.Lock()
	submitting, proceed, err := s.state.BeginConfirm()
	s.state = submitting
	s.mu.Unlock()
	if !proceed {
		return submitting.clone(), err
	}

	submitErr := submit(ctx, submitting.clone())

	s.mu.Lock()
	defer s.mu.Unlock()
	final, err := s.state.FinishSubmit(submitErr)
	s.state = final
	return final.clone(), err
}

func (s *Session) apply(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	return s.state.clone()
}
