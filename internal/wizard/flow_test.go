package wizard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flowsYAML = `
flows:
  - name: doctor-consultation
    title: Book a consultation
    steps:
      - name: select_doctor
        required_fields: [doctor_id]
      - name: schedule
        required_fields: [date, time, consultation_type]
        layouts:
          date: "2006-01-02"
          time: "15:04"
        allowed_values:
          consultation_type: [in_person, video]
      - name: confirm
`

func TestParseFlows(t *testing.T) {
	flows, err := ParseFlows([]byte(flowsYAML))
	require.NoError(t, err)
	require.Len(t, flows, 1)

	f := flows[0]
	assert.Equal(t, "doctor-consultation", f.Name)
	require.Len(t, f.Steps, 3)
	assert.Nil(t, f.Steps[2].Validate)

	s := f.NewState().SetField("doctor_id", "doc-7")
	s, err = s.Advance()
	require.NoError(t, err)

	s = s.SetField("date", "02/05/2024").SetField("time", "9am").SetField("consultation_type", "phone")
	_, err = s.Advance()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"date", "time", "consultation_type"}, verr.Fields)

	s = s.SetField("date", "2024-05-02").SetField("time", "09:00").SetField("consultation_type", "video")
	s, err = s.Advance()
	require.NoError(t, err)
	assert.True(t, s.AtLastStep())
}

func TestParseFlows_RejectsUnknownKeys(t *testing.T) {
	_, err := ParseFlows([]byte("flows:\n  - name: x\n    stepz: []\n"))
	assert.Error(t, err)
}

func TestParseFlows_RejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]string{
		"no steps":     "flows:\n  - name: empty\n",
		"bad name":     "flows:\n  - name: Bad Name\n    steps:\n      - name: a\n",
		"dup steps":    "flows:\n  - name: dup\n    steps:\n      - name: a\n      - name: a\n",
		"unnamed step": "flows:\n  - name: anon\n    steps:\n      - title: hi\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFlows([]byte(doc))
			assert.True(t, errors.Is(err, ErrInvalidFlow), "got %v", err)
		})
	}
}

func TestLoadFlows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(flowsYAML), 0o600))

	flows, err := LoadFlows(path)
	require.NoError(t, err)
	assert.Len(t, flows, 1)

	_, err = LoadFlows(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	a := Flow{Name: "a", Steps: []Step{{Name: "one"}}}
	b := Flow{Name: "b", Steps: []Step{{Name: "one"}}}
	override := Flow{Name: "a", Title: "override", Steps: []Step{{Name: "one"}, {Name: "two"}}}

	reg, err := NewRegistry(a, b, override)
	require.NoError(t, err)

	got, err := reg.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "override", got.Title)

	names := []string{}
	for _, f := range reg.List() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)

	_, err = reg.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownFlow)

	_, err = NewRegistry(Flow{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidFlow)
}

func TestPredicates(t *testing.T) {
	s := New(Step{Name: "only"}).SetField("kind", "video").SetField("day", "2024-13-01")

	assert.Empty(t, FieldOneOf("kind", "video", "phone")(s))
	assert.Equal(t, []string{"kind"}, FieldOneOf("kind", "phone")(s))
	assert.Empty(t, FieldOneOf("absent", "x")(s))

	assert.Equal(t, []string{"day"}, FieldLayout("day", "2006-01-02")(s))
	assert.Empty(t, FieldLayout("absent", "2006-01-02")(s))

	assert.Equal(t, []string{"a", "b"}, RequireFields("a", "kind", "b")(s))
	assert.Equal(t, []string{SelectionsField}, RequireSelections(1)(s))
	assert.Empty(t, RequireSelections(0)(s))

	combined := All(RequireFields("day"), FieldLayout("day", "2006-01-02"), nil, RequireFields("zz"))
	assert.Equal(t, []string{"day", "zz"}, combined(s))
}
