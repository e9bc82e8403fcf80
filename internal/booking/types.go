// Package booking runs the portal's booking wizards as server-side sessions:
// it keeps each session's wizard state in a SessionStore, applies
// transitions, and hands confirmed bookings to a Submitter.
package booking

import (
	"time"

	"github.com/wolfman30/careportal/internal/wizard"
)

// Session is one wizard instance owned by a portal user.
type Session struct {
	ID        string       `json:"id"`
	Flow      string       `json:"flow"`
	Role      string       `json:"role,omitempty"`
	State     wizard.State `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Submission is what the submission sink receives on confirm.
type Submission struct {
	ID          string             `json:"id"`
	SessionID   string             `json:"session_id"`
	Flow        string             `json:"flow"`
	Role        string             `json:"role,omitempty"`
	Fields      map[string]string  `json:"fields"`
	Selections  []wizard.Selection `json:"selections"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// SessionView is the client-facing rendering of a session.
type SessionView struct {
	ID          string             `json:"id"`
	Flow        string             `json:"flow"`
	Phase       wizard.Phase       `json:"phase"`
	StepIndex   int                `json:"step_index"`
	Steps       []StepView         `json:"steps"`
	CurrentStep string             `json:"current_step"`
	AtLastStep  bool               `json:"at_last_step"`
	Fields      map[string]string  `json:"fields"`
	Selections  []wizard.Selection `json:"selections"`
	Failure     *wizard.Failure    `json:"failure,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type StepView struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// View renders the session for API responses.
func (s *Session) View() SessionView {
	steps := make([]StepView, 0, len(s.State.Steps))
	for _, st := range s.State.Steps {
		steps = append(steps, StepView{Name: st.Name, Title: st.Title})
	}
	fields := s.State.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	selections := s.State.Selections
	if selections == nil {
		selections = []wizard.Selection{}
	}
	v := SessionView{
		ID:         s.ID,
		Flow:       s.Flow,
		Phase:      s.State.Phase(),
		StepIndex:  s.State.StepIndex,
		Steps:      steps,
		AtLastStep: s.State.AtLastStep(),
		Fields:     fields,
		Selections: selections,
		Failure:    s.State.Failure,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
	if len(s.State.Steps) > 0 {
		v.CurrentStep = s.State.CurrentStep().Name
	}
	return v
}
