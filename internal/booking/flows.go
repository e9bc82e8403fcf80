package booking

import (
	"github.com/wolfman30/careportal/internal/directory"
	"github.com/wolfman30/careportal/internal/wizard"
)

// Built-in flow names.
const (
	FlowDoctorConsultation = "doctor-consultation"
	FlowLabTest            = "lab-test"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Consultation types accepted by the doctor consultation flow.
var ConsultationTypes = []string{"in_person", "video", "phone"}

// DefaultFlows returns the built-in booking flows.
func DefaultFlows() []wizard.Flow {
	return []wizard.Flow{
		{
			Name:  FlowDoctorConsultation,
			Title: "Book a consultation",
			Steps: []wizard.Step{
				{Name: "select_doctor", Title: "Choose a doctor", Validate: wizard.RequireFields("doctor_id")},
				{Name: "schedule", Title: "Pick a date and time", Validate: wizard.All(
					wizard.RequireFields("date", "time", "consultation_type"),
					wizard.FieldLayout("date", DateLayout),
					wizard.FieldLayout("time", TimeLayout),
					wizard.FieldOneOf("consultation_type", ConsultationTypes...),
				)},
				{Name: "confirm", Title: "Review and confirm"},
			},
		},
		{
			Name:  FlowLabTest,
			Title: "Book a lab test",
			Steps: []wizard.Step{
				{Name: "select_center", Title: "Choose a diagnostic center", Validate: wizard.RequireFields("center_id")},
				{Name: "select_tests", Title: "Choose tests", Validate: wizard.RequireSelections(1)},
				{Name: "schedule", Title: "Pick a date and time", Validate: wizard.All(
					wizard.RequireFields("date", "time"),
					wizard.FieldLayout("date", DateLayout),
					wizard.FieldLayout("time", TimeLayout),
				)},
				{Name: "confirm", Title: "Review and confirm"},
			},
		},
	}
}

// LoadRegistry returns the built-in flows, overridden or extended by the
// flows in path when path is set.
func LoadRegistry(path string) (*wizard.Registry, error) {
	flows := DefaultFlows()
	if path != "" {
		extra, err := wizard.LoadFlows(path)
		if err != nil {
			return nil, err
		}
		flows = append(flows, extra...)
	}
	return wizard.NewRegistry(flows...)
}

// References ties flow inputs to directory collections: field values that
// must name an existing record, and the collection that selections are
// picked from.
type References struct {
	Fields     map[string]map[string]string
	Selections map[string]string
}

// DefaultReferences matches DefaultFlows.
func DefaultReferences() References {
	return References{
		Fields: map[string]map[string]string{
			FlowDoctorConsultation: {"doctor_id": directory.CollectionDoctors},
			FlowLabTest:            {"center_id": directory.CollectionDiagnosticCenters},
		},
		Selections: map[string]string{
			FlowLabTest: directory.CollectionLabTests,
		},
	}
}
